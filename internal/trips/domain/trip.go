// Package domain holds the trip-planning core types.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Collaboration roles on a trip, lowest capability first. The trip owner
// holds the owner role implicitly; it is never stored as a collaborator row.
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleOwner  = "owner"
)

// Trip is a planned trip. OwnerID references the auth user who created it.
type Trip struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	StartsOn    *time.Time `json:"starts_on,omitempty"`
	EndsOn      *time.Time `json:"ends_on,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Collaborator grants a user a role on a trip.
type Collaborator struct {
	TripID    string    `json:"trip_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTripID mints a trip identifier.
func NewTripID() string { return uuid.NewString() }

// ValidTripID reports whether s parses as a trip identifier.
func ValidTripID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// ValidRole reports whether s is a storable collaboration role.
func ValidRole(s string) bool {
	switch s {
	case RoleViewer, RoleEditor, RoleOwner:
		return true
	}
	return false
}
