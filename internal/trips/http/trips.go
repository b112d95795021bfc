package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/trips/domain"
	"github.com/wayfarerhq/wayfarer/internal/trips/service"
	"github.com/wayfarerhq/wayfarer/pkg/httpx"
	"github.com/wayfarerhq/wayfarer/pkg/slogx"
)

const maxBodyBytes = 1 << 20

// TripsHandler serves trip CRUD and collaboration management.
type TripsHandler struct {
	Trips *service.TripService
}

type tripRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartsOn    *time.Time `json:"starts_on"`
	EndsOn      *time.Time `json:"ends_on"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		httpx.BadRequest("malformed JSON body").Write(w)
		return false
	}
	return true
}

func writeTripError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		(&httpx.APIError{
			Status:      http.StatusNotFound,
			Code:        httpx.CodeNotFound,
			Description: "trip not found",
		}).Write(w)
	case errors.Is(err, service.ErrInvalidTrip):
		httpx.BadRequest("trip name is required").Write(w)
	case errors.Is(err, service.ErrInvalidRole):
		httpx.BadRequest("unknown collaboration role").Write(w)
	case errors.Is(err, service.ErrOwnerRole):
		httpx.BadRequest("the owner role cannot be granted").Write(w)
	default:
		slogx.FromContext(r.Context()).Error("unhandled trips error", "err", err)
		httpx.ErrInternal.Write(w)
	}
}

func (h *TripsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ident, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		httpx.ErrUnauthenticated.Write(w)
		return
	}

	var req tripRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	trip, err := h.Trips.CreateTrip(r.Context(), ident.UserID, req.Name, req.Description, req.StartsOn, req.EndsOn)
	if err != nil {
		writeTripError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, trip)
}

func (h *TripsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ident, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		httpx.ErrUnauthenticated.Write(w)
		return
	}

	trips, err := h.Trips.ListTrips(r.Context(), ident.UserID)
	if err != nil {
		writeTripError(w, r, err)
		return
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"trips": trips})
}

func (h *TripsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	trip, err := h.Trips.GetTrip(r.Context(), r.PathValue("tripID"))
	if err != nil {
		writeTripError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, trip)
}

func (h *TripsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	trip, err := h.Trips.UpdateTrip(r.Context(), r.PathValue("tripID"), req.Name, req.Description, req.StartsOn, req.EndsOn)
	if err != nil {
		writeTripError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, trip)
}

func (h *TripsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Trips.DeleteTrip(r.Context(), r.PathValue("tripID")); err != nil {
		writeTripError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TripsHandler) HandleListCollaborators(w http.ResponseWriter, r *http.Request) {
	collabs, err := h.Trips.ListCollaborators(r.Context(), r.PathValue("tripID"))
	if err != nil {
		writeTripError(w, r, err)
		return
	}
	if collabs == nil {
		collabs = []domain.Collaborator{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"collaborators": collabs})
}

// HandleShare grants a role via an action-style body: the authorization
// guard has already resolved trip_id from the same payload.
func (h *TripsHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TripID string `json:"trip_id"`
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Role == "" {
		httpx.BadRequest("user_id and role are required").Write(w)
		return
	}

	collab, err := h.Trips.ShareTrip(r.Context(), req.TripID, req.UserID, req.Role)
	if err != nil {
		writeTripError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, collab)
}

func (h *TripsHandler) HandleUnshare(w http.ResponseWriter, r *http.Request) {
	if err := h.Trips.UnshareTrip(r.Context(), r.PathValue("tripID"), r.PathValue("userID")); err != nil {
		writeTripError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
