package service

import (
	"context"

	"github.com/wayfarerhq/wayfarer/internal/auth/domain"
	"github.com/wayfarerhq/wayfarer/internal/auth/store"
)

type UserService struct {
	Store store.Store
}

// GetProfile fetches the client-visible profile of a user.
func (s *UserService) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	return u.Profile(), nil
}
