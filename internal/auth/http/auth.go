package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/wayfarerhq/wayfarer/internal/auth/domain"
	"github.com/wayfarerhq/wayfarer/internal/auth/service"
	"github.com/wayfarerhq/wayfarer/pkg/httpx"
)

// maxBodyBytes bounds request bodies on the auth endpoints.
const maxBodyBytes = 1 << 20

// AuthHandler serves the credential endpoints: register, login, oauth,
// refresh and logout.
type AuthHandler struct {
	Sessions *service.SessionService
}

type tokenResponse struct {
	*domain.TokenPair
	User domain.Profile `json:"user"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		httpx.BadRequest("malformed JSON body").Write(w)
		return false
	}
	return true
}

// deviceInfo captures the request origin recorded with each refresh token.
func deviceInfo(r *http.Request) domain.DeviceInfo {
	return domain.DeviceInfo{
		UserAgent: r.UserAgent(),
		Platform:  r.Header.Get("X-Platform"),
		IP:        httpx.IPKeyExtractor(r),
	}
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.BadRequest("email and password are required").Write(w)
		return
	}

	pair, profile, err := h.Sessions.Register(r.Context(), req.Email, req.Password, deviceInfo(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, tokenResponse{TokenPair: pair, User: profile})
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.BadRequest("email and password are required").Write(w)
		return
	}

	pair, profile, err := h.Sessions.Login(r.Context(), req.Email, req.Password, deviceInfo(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{TokenPair: pair, User: profile})
}

// HandleOAuth signs in a user already verified by an external identity
// provider. The provider handshake happens upstream; this endpoint receives
// the verified assertion fields.
func (h *AuthHandler) HandleOAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider   string          `json:"provider"`
		ProviderID string          `json:"provider_id"`
		Email      string          `json:"email"`
		Profile    json.RawMessage `json:"profile"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	switch req.Provider {
	case domain.ProviderGoogle, domain.ProviderGitHub:
	default:
		httpx.BadRequest("unsupported provider").Write(w)
		return
	}
	if req.ProviderID == "" || req.Email == "" {
		httpx.BadRequest("provider_id and email are required").Write(w)
		return
	}

	pair, profile, err := h.Sessions.LoginWithOAuth(r.Context(),
		req.Provider, req.ProviderID, req.Email, string(req.Profile), deviceInfo(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{TokenPair: pair, User: profile})
}

func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		httpx.BadRequest("refresh_token is required").Write(w)
		return
	}

	pair, err := h.Sessions.Rotate(r.Context(), req.RefreshToken, deviceInfo(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		httpx.BadRequest("refresh_token is required").Write(w)
		return
	}

	if err := h.Sessions.Logout(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MeHandler returns the authenticated user's profile.
type MeHandler struct {
	Users *service.UserService
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ident, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		httpx.ErrUnauthenticated.Write(w)
		return
	}

	profile, err := h.Users.GetProfile(r.Context(), ident.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profile)
}
