// Package service holds the trips business logic and the collaboration
// role resolver consumed by the HTTP authorization guards.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/trips/domain"
	"github.com/wayfarerhq/wayfarer/internal/trips/store"
	"github.com/wayfarerhq/wayfarer/pkg/httpx"
)

var (
	ErrNotFound    = errors.New("trip_not_found")
	ErrInvalidTrip = errors.New("invalid_trip")
	ErrInvalidRole = errors.New("invalid_role")
	ErrOwnerRole   = errors.New("owner_role_is_implicit")
)

type TripService struct {
	Store store.Store
}

// ResolveRole implements httpx.CollaborationResolver. The trip owner holds
// the owner role implicitly; everyone else needs a collaborator row.
func (s *TripService) ResolveRole(ctx context.Context, tripID, userID string) (httpx.TripRole, error) {
	trip, err := s.Store.Trips().GetTrip(ctx, tripID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, httpx.ErrNoCollaboration
		}
		return 0, err
	}
	if trip.OwnerID == userID {
		return httpx.TripRoleOwner, nil
	}

	stored, err := s.Store.Collaborators().GetCollaboratorRole(ctx, tripID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, httpx.ErrNoCollaboration
		}
		return 0, err
	}
	role, ok := httpx.ParseTripRole(stored)
	if !ok {
		return 0, httpx.ErrNoCollaboration
	}
	return role, nil
}

// CreateTrip creates a trip owned by ownerID.
func (s *TripService) CreateTrip(ctx context.Context, ownerID, name, description string, startsOn, endsOn *time.Time) (domain.Trip, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Trip{}, ErrInvalidTrip
	}

	now := time.Now()
	t := domain.Trip{
		ID:          domain.NewTripID(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		StartsOn:    startsOn,
		EndsOn:      endsOn,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Trips().CreateTrip(ctx, t); err != nil {
		return domain.Trip{}, err
	}
	return t, nil
}

// GetTrip fetches a trip. Authorization happens in the guard layer.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (domain.Trip, error) {
	t, err := s.Store.Trips().GetTrip(ctx, tripID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Trip{}, ErrNotFound
	}
	return t, err
}

// UpdateTrip changes the mutable fields of a trip.
func (s *TripService) UpdateTrip(ctx context.Context, tripID, name, description string, startsOn, endsOn *time.Time) (domain.Trip, error) {
	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return domain.Trip{}, err
	}

	if name = strings.TrimSpace(name); name != "" {
		t.Name = name
	}
	t.Description = description
	t.StartsOn = startsOn
	t.EndsOn = endsOn

	if err := s.Store.Trips().UpdateTrip(ctx, t); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Trip{}, ErrNotFound
		}
		return domain.Trip{}, err
	}
	return s.GetTrip(ctx, tripID)
}

// DeleteTrip removes the trip and, through the schema, its collaborators.
func (s *TripService) DeleteTrip(ctx context.Context, tripID string) error {
	err := s.Store.Trips().DeleteTrip(ctx, tripID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// ListTrips returns the trips the user owns or collaborates on.
func (s *TripService) ListTrips(ctx context.Context, userID string) ([]domain.Trip, error) {
	return s.Store.Trips().ListUserTrips(ctx, userID)
}

// ShareTrip grants or changes a collaborator's role. The owner role is held
// by the trip owner only and cannot be granted.
func (s *TripService) ShareTrip(ctx context.Context, tripID, userID, role string) (domain.Collaborator, error) {
	if !domain.ValidRole(role) {
		return domain.Collaborator{}, ErrInvalidRole
	}
	if role == domain.RoleOwner {
		return domain.Collaborator{}, ErrOwnerRole
	}
	if _, err := s.GetTrip(ctx, tripID); err != nil {
		return domain.Collaborator{}, err
	}

	c := domain.Collaborator{
		TripID:    tripID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now(),
	}
	if err := s.Store.Collaborators().UpsertCollaborator(ctx, c); err != nil {
		return domain.Collaborator{}, err
	}
	return c, nil
}

// UnshareTrip removes a collaborator. Removing someone who was never on the
// trip is a no-op success.
func (s *TripService) UnshareTrip(ctx context.Context, tripID, userID string) error {
	err := s.Store.Collaborators().RemoveCollaborator(ctx, tripID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// ListCollaborators returns the explicit role grants on a trip.
func (s *TripService) ListCollaborators(ctx context.Context, tripID string) ([]domain.Collaborator, error) {
	if _, err := s.GetTrip(ctx, tripID); err != nil {
		return nil, err
	}
	return s.Store.Collaborators().ListCollaborators(ctx, tripID)
}
