// Package http exposes the trips API. Every route is authenticated; mutating
// routes additionally require a collaboration role on the target trip.
package http

import (
	"net/http"

	"github.com/wayfarerhq/wayfarer/internal/trips/service"
	"github.com/wayfarerhq/wayfarer/pkg/httpx"
	"github.com/wayfarerhq/wayfarer/pkg/jwtx"
)

// Register mounts the trips routes on mux. The required collaboration level
// per route is declared here, in one place, rather than inside handlers:
// reads need viewer, content changes need editor, sharing and deletion stay
// with the owner.
func Register(mux *http.ServeMux, verifier jwtx.Verifier, svc *service.TripService) {
	h := &TripsHandler{Trips: svc}

	authn := httpx.Authn(verifier)
	limit := httpx.RateLimitByIP(httpx.ModerateLimit)

	viewer := httpx.RequireTripRole(svc, httpx.TripRoleViewer)
	editor := httpx.RequireTripRole(svc, httpx.TripRoleEditor)
	owner := httpx.RequireTripRole(svc, httpx.TripRoleOwner)

	mux.Handle("POST /v1/trips",
		httpx.Chain(http.HandlerFunc(h.HandleCreate), authn, limit))
	mux.Handle("GET /v1/trips",
		httpx.Chain(http.HandlerFunc(h.HandleList), authn, limit))

	mux.Handle("GET /v1/trips/{tripID}",
		httpx.Chain(http.HandlerFunc(h.HandleGet), authn, viewer, limit))
	mux.Handle("PATCH /v1/trips/{tripID}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate), authn, editor, limit))
	mux.Handle("DELETE /v1/trips/{tripID}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete), authn, owner, limit))

	mux.Handle("GET /v1/trips/{tripID}/collaborators",
		httpx.Chain(http.HandlerFunc(h.HandleListCollaborators), authn, viewer, limit))
	mux.Handle("DELETE /v1/trips/{tripID}/collaborators/{userID}",
		httpx.Chain(http.HandlerFunc(h.HandleUnshare), authn, owner, limit))

	// Action-style sharing endpoint; the guard reads trip_id from the body.
	mux.Handle("POST /v1/trips/share",
		httpx.Chain(http.HandlerFunc(h.HandleShare), authn, owner, limit))
}
