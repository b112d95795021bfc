package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/auth/domain"
	"github.com/wayfarerhq/wayfarer/internal/auth/events"
	"github.com/wayfarerhq/wayfarer/internal/auth/store"
	"github.com/wayfarerhq/wayfarer/pkg/cryptox"
	"github.com/wayfarerhq/wayfarer/pkg/idx"
	"github.com/wayfarerhq/wayfarer/pkg/jwtx"
	"github.com/wayfarerhq/wayfarer/pkg/slogx"
)

// MinPasswordLength is the floor for local account passwords.
const MinPasswordLength = 8

// Register creates a local account and logs it straight in.
func (s *SessionService) Register(ctx context.Context, email, password string, device domain.DeviceInfo) (*domain.TokenPair, domain.Profile, error) {
	now := time.Now()
	email = normalizeEmail(email)

	if !validEmail(email) {
		return nil, domain.Profile{}, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, domain.Profile{}, ErrWeakPassword
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, domain.Profile{}, err
	}

	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         jwtx.RoleUser,
		ProviderType: domain.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domain.Profile{}, ErrEmailTaken
		}
		return nil, domain.Profile{}, err
	}

	pair, err := s.issuePair(ctx, s.Store.RefreshTokens(), u, device, now)
	if err != nil {
		return nil, domain.Profile{}, err
	}

	slogx.FromContext(ctx).Info("user registered", slog.String("user_id", u.ID))
	s.publish(ctx, events.Event{
		Type:       events.TypeUserRegistered,
		UserID:     u.ID,
		Email:      email,
		IP:         device.IP,
		UserAgent:  device.UserAgent,
		OccurredAt: now,
	})

	return pair, u.Profile(), nil
}

// LoginWithOAuth signs in (or first provisions) an account backed by an
// external identity provider. The provider has already verified the user, so
// the password lockout machinery does not apply; the login is still stamped.
//
// An email already claimed by a differently-linked account is refused rather
// than silently merged.
func (s *SessionService) LoginWithOAuth(ctx context.Context, providerType, providerID, email, profileJSON string, device domain.DeviceInfo) (*domain.TokenPair, domain.Profile, error) {
	now := time.Now()
	email = normalizeEmail(email)

	u, err := s.Store.Users().GetUserByProvider(ctx, providerType, providerID)
	switch {
	case err == nil:
		// Existing linked account.
	case errors.Is(err, store.ErrNotFound):
		u, err = s.provisionOAuthUser(ctx, providerType, providerID, email, profileJSON, now)
		if err != nil {
			return nil, domain.Profile{}, err
		}
	default:
		return nil, domain.Profile{}, err
	}

	if err := s.Store.Users().RecordLoginSuccess(ctx, u.ID, device.IP, now); err != nil {
		return nil, domain.Profile{}, err
	}
	lastLogin := now
	u.LastLoginAt = &lastLogin

	pair, err := s.issuePair(ctx, s.Store.RefreshTokens(), u, device, now)
	if err != nil {
		return nil, domain.Profile{}, err
	}

	slogx.FromContext(ctx).Info("oauth login succeeded",
		slog.String("user_id", u.ID),
		slog.String("provider", providerType),
	)
	s.publish(ctx, events.Event{
		Type:       events.TypeLoginSucceeded,
		UserID:     u.ID,
		Email:      u.Email,
		IP:         device.IP,
		UserAgent:  device.UserAgent,
		Detail:     "provider " + providerType,
		OccurredAt: now,
	})

	return pair, u.Profile(), nil
}

func (s *SessionService) provisionOAuthUser(ctx context.Context, providerType, providerID, email, profileJSON string, now time.Time) (domain.User, error) {
	if !validEmail(email) {
		return domain.User{}, ErrInvalidEmail
	}

	// A local account already using this email keeps it; linking accounts
	// is an explicit user action, not a login side effect.
	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	u := domain.User{
		ID:              idx.New().String(),
		Email:           email,
		Role:            jwtx.RoleUser,
		ProviderType:    providerType,
		ProviderID:      providerID,
		IsOAuthUser:     true,
		ProviderProfile: profileJSON,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	s.publish(ctx, events.Event{
		Type:       events.TypeUserRegistered,
		UserID:     u.ID,
		Email:      email,
		Detail:     "provider " + providerType,
		OccurredAt: now,
	})
	return u, nil
}

// validEmail is a shape check, not RFC validation. The address must have one
// "@" with something on both sides and no spaces.
func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	if strings.ContainsAny(email, " \t") {
		return false
	}
	return !strings.Contains(email[at+1:], "@")
}
