package http

import (
	"net/http"

	"github.com/wayfarerhq/wayfarer/internal/auth/service"
	"github.com/wayfarerhq/wayfarer/pkg/httpx"
)

// SessionsHandler serves session inspection and bulk revocation, both for
// the authenticated user and, behind the admin guard, for arbitrary users.
type SessionsHandler struct {
	Sessions *service.SessionService
}

type sessionsResponse struct {
	Sessions []service.SessionInfo `json:"sessions"`
}

type revokedResponse struct {
	Revoked int64 `json:"revoked"`
}

func (h *SessionsHandler) HandleListOwn(w http.ResponseWriter, r *http.Request) {
	ident, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		httpx.ErrUnauthenticated.Write(w)
		return
	}
	h.list(w, r, ident.UserID)
}

func (h *SessionsHandler) HandleRevokeOwn(w http.ResponseWriter, r *http.Request) {
	ident, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		httpx.ErrUnauthenticated.Write(w)
		return
	}
	h.revoke(w, r, ident.UserID)
}

func (h *SessionsHandler) HandleListUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if userID == "" {
		httpx.BadRequest("user id missing").Write(w)
		return
	}
	h.list(w, r, userID)
}

func (h *SessionsHandler) HandleRevokeUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if userID == "" {
		httpx.BadRequest("user id missing").Write(w)
		return
	}
	h.revoke(w, r, userID)
}

func (h *SessionsHandler) list(w http.ResponseWriter, r *http.Request, userID string) {
	sessions, err := h.Sessions.ListSessions(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []service.SessionInfo{}
	}
	httpx.WriteJSON(w, http.StatusOK, sessionsResponse{Sessions: sessions})
}

func (h *SessionsHandler) revoke(w http.ResponseWriter, r *http.Request, userID string) {
	revoked, err := h.Sessions.RevokeAllSessions(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, revokedResponse{Revoked: revoked})
}
