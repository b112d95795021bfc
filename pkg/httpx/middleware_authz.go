package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wayfarerhq/wayfarer/pkg/slogx"
)

// TripRole is a per-trip collaboration capability level. The ordering is
// total and fixed: a higher level always satisfies a lower requirement.
type TripRole int

const (
	TripRoleViewer TripRole = iota + 1
	TripRoleEditor
	TripRoleOwner
)

// ParseTripRole maps the stored role string onto its capability level.
func ParseTripRole(s string) (TripRole, bool) {
	switch s {
	case "viewer":
		return TripRoleViewer, true
	case "editor":
		return TripRoleEditor, true
	case "owner":
		return TripRoleOwner, true
	default:
		return 0, false
	}
}

func (r TripRole) String() string {
	switch r {
	case TripRoleViewer:
		return "viewer"
	case TripRoleEditor:
		return "editor"
	case TripRoleOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// Satisfies reports whether the held level meets the required one.
func (r TripRole) Satisfies(required TripRole) bool { return r >= required }

// ErrNoCollaboration is returned by resolvers when the user has no role on
// the trip.
var ErrNoCollaboration = errors.New("httpx: no collaboration role")

// CollaborationResolver looks up the collaboration role a user holds on a
// trip. The trips module owns the implementation; the guard only consumes it.
type CollaborationResolver interface {
	ResolveRole(ctx context.Context, tripID, userID string) (TripRole, error)
}

// RequireAdmin denies requests whose identity lacks the global admin role.
// A missing identity is an authentication failure, not an authorization one.
func RequireAdmin() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := IdentityFromContext(r.Context())
			if !ok {
				ErrUnauthenticated.Write(w)
				return
			}
			if !ident.IsAdmin() {
				Forbidden("admin role required").Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireTripRole denies requests whose identity holds no collaboration role
// of at least the required level on the target trip. Routes without a
// declared level are simply not wrapped; authorization is opt-in per route.
//
// The trip id is resolved from the "tripID" path value first, falling back
// to a "trip_id" body field for action-style endpoints.
func RequireTripRole(resolver CollaborationResolver, required TripRole) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			ident, ok := IdentityFromContext(r.Context())
			if !ok {
				ErrUnauthenticated.Write(w)
				return
			}

			tripID := r.PathValue("tripID")
			if tripID == "" {
				tripID = tripIDFromBody(r)
			}
			if tripID == "" {
				BadRequest("trip id missing").Write(w)
				return
			}

			held, err := resolver.ResolveRole(r.Context(), tripID, ident.UserID)
			switch {
			case errors.Is(err, ErrNoCollaboration):
				Forbidden("insufficient trip role").Write(w)
				return
			case err != nil:
				log.Error("collaboration lookup failed", "trip_id", tripID, "err", err)
				ErrInternal.Write(w)
				return
			}

			if !held.Satisfies(required) {
				Forbidden("insufficient trip role").Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// maxGuardBodyBytes bounds how much of the body the guard will buffer while
// looking for a trip id.
const maxGuardBodyBytes = 1 << 20

// tripIDFromBody peeks at a JSON body for a trip_id field, then restores the
// body so the downstream handler can read it again.
func tripIDFromBody(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxGuardBodyBytes))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var payload struct {
		TripID string `json:"trip_id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.TripID
}
