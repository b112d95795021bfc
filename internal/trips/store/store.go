// Package store defines the trips data access interfaces.
package store

import (
	"context"
	"errors"

	"github.com/wayfarerhq/wayfarer/internal/trips/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the trips data access root.
type Store interface {
	Trips() Trips
	Collaborators() Collaborators
}

// Trips persists trip records.
type Trips interface {
	CreateTrip(ctx context.Context, t domain.Trip) error
	GetTrip(ctx context.Context, id string) (domain.Trip, error)
	UpdateTrip(ctx context.Context, t domain.Trip) error
	DeleteTrip(ctx context.Context, id string) error

	// ListUserTrips returns trips the user owns or collaborates on, newest
	// first.
	ListUserTrips(ctx context.Context, userID string) ([]domain.Trip, error)
}

// Collaborators persists per-trip role grants.
type Collaborators interface {
	// UpsertCollaborator grants or changes the user's role on the trip.
	UpsertCollaborator(ctx context.Context, c domain.Collaborator) error

	RemoveCollaborator(ctx context.Context, tripID, userID string) error

	// GetCollaboratorRole returns the stored role, ErrNotFound when the user
	// has no grant on the trip.
	GetCollaboratorRole(ctx context.Context, tripID, userID string) (string, error)

	ListCollaborators(ctx context.Context, tripID string) ([]domain.Collaborator, error)
}
