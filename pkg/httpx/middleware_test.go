package httpx_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wayfarerhq/wayfarer/pkg/httpx"
	"github.com/wayfarerhq/wayfarer/pkg/jwtx"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func withIdentity(r *http.Request, ident jwtx.Identity) *http.Request {
	return r.WithContext(httpx.ContextWithIdentity(r.Context(), ident))
}

func TestAuthn(t *testing.T) {
	t.Parallel()

	codec, err := jwtx.NewHS256([]byte("0123456789abcdef0123456789abcdef"), "wayfarer-test")
	require.NoError(t, err)

	var seen jwtx.Identity
	handler := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := httpx.IdentityFromContext(r.Context())
		require.True(t, ok)
		seen = ident
		w.WriteHeader(http.StatusOK)
	}), httpx.Authn(codec))

	t.Run("missing bearer token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, httpx.CodeUnauthenticated, decodeError(t, rec))
	})

	t.Run("malformed token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, httpx.CodeMalformedToken, decodeError(t, rec))
	})

	t.Run("expired token", func(t *testing.T) {
		claims := jwtx.NewAccessClaims("u1", "u@example.com", jwtx.RoleUser, "rt1",
			"wayfarer-test", time.Minute, time.Now().Add(-time.Hour))
		token, err := codec.Sign(claims)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, httpx.CodeExpiredToken, decodeError(t, rec))
	})

	t.Run("valid token reaches the handler with identity", func(t *testing.T) {
		claims := jwtx.NewAccessClaims("u1", "u@example.com", jwtx.RoleAdmin, "rt1",
			"wayfarer-test", time.Minute, time.Now())
		token, err := codec.Sign(claims)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "u1", seen.UserID)
		require.Equal(t, "rt1", seen.RefreshID)
		require.True(t, seen.IsAdmin())
	})
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	handler := httpx.Chain(okHandler(), httpx.RequireAdmin())

	t.Run("no identity denies with unauthenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, httpx.CodeUnauthenticated, decodeError(t, rec))
	})

	t.Run("non-admin role is forbidden", func(t *testing.T) {
		req := withIdentity(httptest.NewRequest(http.MethodGet, "/", nil),
			jwtx.Identity{UserID: "u1", Role: jwtx.RoleUser})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, httpx.CodeForbidden, decodeError(t, rec))
	})

	t.Run("admin passes", func(t *testing.T) {
		req := withIdentity(httptest.NewRequest(http.MethodGet, "/", nil),
			jwtx.Identity{UserID: "u1", Role: jwtx.RoleAdmin})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

type staticResolver map[string]httpx.TripRole

func (r staticResolver) ResolveRole(_ context.Context, tripID, userID string) (httpx.TripRole, error) {
	role, ok := r[tripID+"/"+userID]
	if !ok {
		return 0, httpx.ErrNoCollaboration
	}
	return role, nil
}

func TestRequireTripRole(t *testing.T) {
	t.Parallel()

	resolver := staticResolver{
		"trip-1/owner-user":  httpx.TripRoleOwner,
		"trip-1/editor-user": httpx.TripRoleEditor,
		"trip-1/viewer-user": httpx.TripRoleViewer,
	}
	handler := httpx.Chain(okHandler(), httpx.RequireTripRole(resolver, httpx.TripRoleEditor))

	request := func(userID string) *http.Request {
		req := httptest.NewRequest(http.MethodPut, "/v1/trips/trip-1", nil)
		req.SetPathValue("tripID", "trip-1")
		return withIdentity(req, jwtx.Identity{UserID: userID, Role: jwtx.RoleUser})
	}

	t.Run("owner satisfies editor requirement", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, request("owner-user"))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("editor satisfies editor requirement", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, request("editor-user"))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("viewer is denied", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, request("viewer-user"))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, httpx.CodeForbidden, decodeError(t, rec))
	})

	t.Run("absent collaboration is denied", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, request("stranger"))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no identity denies with unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/v1/trips/trip-1", nil)
		req.SetPathValue("tripID", "trip-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("trip id falls back to the body", func(t *testing.T) {
		body := strings.NewReader(`{"trip_id":"trip-1","note":"pack sunscreen"}`)
		req := withIdentity(httptest.NewRequest(http.MethodPost, "/v1/itinerary/reorder", body),
			jwtx.Identity{UserID: "owner-user", Role: jwtx.RoleUser})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing trip id is a bad request", func(t *testing.T) {
		req := withIdentity(httptest.NewRequest(http.MethodPost, "/v1/itinerary/reorder",
			strings.NewReader(`{}`)), jwtx.Identity{UserID: "owner-user", Role: jwtx.RoleUser})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, httpx.CodeInvalidRequest, decodeError(t, rec))
	})
}

func TestTripRoleOrdering(t *testing.T) {
	t.Parallel()

	require.True(t, httpx.TripRoleOwner.Satisfies(httpx.TripRoleViewer))
	require.True(t, httpx.TripRoleOwner.Satisfies(httpx.TripRoleOwner))
	require.True(t, httpx.TripRoleEditor.Satisfies(httpx.TripRoleViewer))
	require.False(t, httpx.TripRoleViewer.Satisfies(httpx.TripRoleEditor))
	require.False(t, httpx.TripRoleEditor.Satisfies(httpx.TripRoleOwner))

	role, ok := httpx.ParseTripRole("editor")
	require.True(t, ok)
	require.Equal(t, httpx.TripRoleEditor, role)

	_, ok = httpx.ParseTripRole("superuser")
	require.False(t, ok)
}
