// Package service holds the auth business logic: session issuance, refresh
// rotation with reuse detection, brute-force lockout and account lifecycle.
// Services depend on the store interfaces only; HTTP concerns stay out.
package service

import (
	"context"
	"errors"
	"fmt"
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

// Lockout policy defaults. Overridable per service instance through config.
const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 15 * time.Minute
)

var (
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrAccountLocked       = errors.New("account_locked")
	ErrInvalidRefreshToken = errors.New("invalid_refresh_token")
	ErrExpiredRefreshToken = errors.New("expired_refresh_token")
	ErrTokenReuseDetected  = errors.New("token_reuse_detected")
	ErrEmailTaken          = errors.New("email_taken")
	ErrWeakPassword        = errors.New("weak_password")
	ErrInvalidEmail        = errors.New("invalid_email")
)

// AccountLockedError carries the lockout deadline so the transport layer can
// answer with a Retry-After. errors.Is(err, ErrAccountLocked) matches it.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account_locked until %s", e.Until.Format(time.RFC3339))
}

func (e *AccountLockedError) Is(target error) bool { return target == ErrAccountLocked }

// SessionService implements login, refresh rotation and logout.
type SessionService struct {
	Store  store.Store
	Signer jwtx.Signer
	Events events.Publisher

	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	LockoutThreshold int
	LockoutDuration  time.Duration
}

// Login authenticates an email/password pair and mints a fresh token pair.
//
// The lockout gate is checked before the password so a locked account answers
// identically for right and wrong passwords. Every failed password attempt
// bumps the per-user counter; crossing the threshold closes the gate for the
// configured duration. A success resets the counter and stamps last-login.
func (s *SessionService) Login(ctx context.Context, email, password string, device domain.DeviceInfo) (*domain.TokenPair, domain.Profile, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.publish(ctx, events.Event{
				Type:       events.TypeLoginFailed,
				Email:      email,
				IP:         device.IP,
				UserAgent:  device.UserAgent,
				Detail:     "unknown email",
				OccurredAt: now,
			})
			return nil, domain.Profile{}, ErrInvalidCredentials
		}
		return nil, domain.Profile{}, err
	}

	if u.LockedAt(now) {
		s.publish(ctx, events.Event{
			Type:       events.TypeLoginFailed,
			UserID:     u.ID,
			Email:      email,
			IP:         device.IP,
			UserAgent:  device.UserAgent,
			Detail:     "account locked",
			OccurredAt: now,
		})
		return nil, domain.Profile{}, &AccountLockedError{Until: *u.LockedUntil}
	}

	// OAuth-only accounts have no password; the attempt still counts.
	if u.PasswordHash == "" || cryptox.VerifyPassword(password, u.PasswordHash) != nil {
		return nil, domain.Profile{}, s.recordLoginFailure(ctx, u, device, now)
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

	l.Info("login succeeded", slog.String("user_id", u.ID))
	s.publish(ctx, events.Event{
		Type:       events.TypeLoginSucceeded,
		UserID:     u.ID,
		Email:      email,
		IP:         device.IP,
		UserAgent:  device.UserAgent,
		OccurredAt: now,
	})

	return pair, u.Profile(), nil
}

// recordLoginFailure bumps the counter atomically and closes the lockout
// gate when the threshold is crossed. The crossing attempt itself still
// answers invalid_credentials; only later attempts hit the locked gate.
func (s *SessionService) recordLoginFailure(ctx context.Context, u domain.User, device domain.DeviceInfo, now time.Time) error {
	l := slogx.FromContext(ctx)

	count, err := s.Store.Users().IncrementLoginFailures(ctx, u.ID)
	if err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		Type:       events.TypeLoginFailed,
		UserID:     u.ID,
		Email:      u.Email,
		IP:         device.IP,
		UserAgent:  device.UserAgent,
		Detail:     fmt.Sprintf("failed attempt %d", count),
		OccurredAt: now,
	})

	if count < s.lockoutThreshold() {
		return ErrInvalidCredentials
	}

	until := now.Add(s.lockoutDuration())
	if err := s.Store.Users().LockAccount(ctx, u.ID, until); err != nil {
		return err
	}

	l.Warn("account locked after repeated login failures",
		slog.String("user_id", u.ID),
		slog.Int("failures", count),
		slog.Time("until", until),
	)
	s.publish(ctx, events.Event{
		Type:       events.TypeAccountLocked,
		UserID:     u.ID,
		Email:      u.Email,
		IP:         device.IP,
		Detail:     fmt.Sprintf("locked after %d failures", count),
		OccurredAt: now,
	})

	return ErrInvalidCredentials
}

// Rotate exchanges a refresh token for a new pair, retiring the old token.
//
// Presenting a token that exists but is no longer active is treated as theft
// evidence: every active session of the user is revoked before the error is
// returned. A token not on record at all is plain invalid and revokes
// nothing. Under concurrent rotation of the same token exactly one caller
// wins; the loser lands on the reuse branch.
func (s *SessionService) Rotate(ctx context.Context, refreshOpaque string, device domain.DeviceInfo) (*domain.TokenPair, error) {
	now := time.Now()
	fp := cryptox.Fingerprint(refreshOpaque)

	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	if !rt.Active {
		return nil, s.handleReuse(ctx, rt, device, now)
	}
	if now.After(rt.ExpiresAt) {
		return nil, ErrExpiredRefreshToken
	}

	u, err := s.Store.Users().GetUserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	newOpaque, newRT, err := s.newRefreshRecord(u.ID, device, now)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.signAccess(u, newRT.ID, now)
	if err != nil {
		return nil, err
	}

	// Consume-old plus create-new is one atomic unit. The conditional flip
	// inside ConsumeRefreshToken is the serialization point.
	var lost bool
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		ok, err := tx.RefreshTokens().ConsumeRefreshToken(ctx, fp, now)
		if err != nil {
			return err
		}
		if !ok {
			lost = true
			return errRotationLost
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, newRT)
	})
	if lost {
		return nil, s.handleReuse(ctx, rt, device, now)
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:       events.TypeTokenRotated,
		UserID:     u.ID,
		IP:         device.IP,
		UserAgent:  device.UserAgent,
		OccurredAt: now,
	})

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL().Seconds()),
	}, nil
}

// errRotationLost aborts the rotation transaction when another caller
// consumed the token first. Never returned to callers.
var errRotationLost = errors.New("rotation lost race")

// handleReuse is the compensating control for refresh-token reuse: revoke
// every active session of the user, then report the incident. The event is
// published before returning so the signal cannot be lost to a fast caller.
func (s *SessionService) handleReuse(ctx context.Context, rt domain.RefreshToken, device domain.DeviceInfo, now time.Time) error {
	l := slogx.FromContext(ctx)

	revoked, err := s.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, rt.UserID)
	if err != nil {
		return err
	}

	l.Warn("refresh token reuse detected",
		slog.String("user_id", rt.UserID),
		slog.String("token_id", rt.ID),
		slog.Int64("sessions_revoked", revoked),
	)
	s.publish(ctx, events.Event{
		Type:       events.TypeTokenReuseDetected,
		UserID:     rt.UserID,
		IP:         device.IP,
		UserAgent:  device.UserAgent,
		Detail:     fmt.Sprintf("revoked %d active sessions", revoked),
		OccurredAt: now,
	})

	return ErrTokenReuseDetected
}

// Logout retires the session behind the given refresh token. Unknown or
// already-retired tokens are a silent success so logout can be retried.
func (s *SessionService) Logout(ctx context.Context, refreshOpaque string) error {
	now := time.Now()
	fp := cryptox.Fingerprint(refreshOpaque)

	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if !rt.Active {
		return nil
	}

	if err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, fp); err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		Type:       events.TypeLogout,
		UserID:     rt.UserID,
		OccurredAt: now,
	})
	return nil
}

// issuePair creates a refresh record and signs the matching access token.
func (s *SessionService) issuePair(ctx context.Context, rts store.RefreshTokens, u domain.User, device domain.DeviceInfo, now time.Time) (*domain.TokenPair, error) {
	opaque, rt, err := s.newRefreshRecord(u.ID, device, now)
	if err != nil {
		return nil, err
	}
	if err := rts.CreateRefreshToken(ctx, rt); err != nil {
		return nil, err
	}

	accessToken, err := s.signAccess(u, rt.ID, now)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: opaque,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL().Seconds()),
	}, nil
}

func (s *SessionService) newRefreshRecord(userID string, device domain.DeviceInfo, now time.Time) (string, domain.RefreshToken, error) {
	opaque, err := cryptox.NewOpaqueToken(cryptox.RefreshTokenBytes)
	if err != nil {
		return "", domain.RefreshToken{}, err
	}
	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.Fingerprint(opaque),
		Active:    true,
		UserAgent: device.UserAgent,
		Platform:  device.Platform,
		ExpiresAt: now.Add(s.refreshTTL()),
		CreatedAt: now,
	}
	return opaque, rt, nil
}

func (s *SessionService) signAccess(u domain.User, refreshID string, now time.Time) (string, error) {
	claims := jwtx.NewAccessClaims(u.ID, u.Email, u.Role, refreshID, s.Issuer, s.accessTTL(), now)
	return s.Signer.Sign(claims)
}

// publish emits a security event, logging a delivery failure instead of
// failing the operation that produced it.
func (s *SessionService) publish(ctx context.Context, ev events.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		slogx.FromContext(ctx).Error("publishing security event",
			slog.String("event", ev.Type),
			slog.Any("error", err),
		)
	}
}

func (s *SessionService) lockoutThreshold() int {
	if s.LockoutThreshold > 0 {
		return s.LockoutThreshold
	}
	return DefaultLockoutThreshold
}

func (s *SessionService) lockoutDuration() time.Duration {
	if s.LockoutDuration > 0 {
		return s.LockoutDuration
	}
	return DefaultLockoutDuration
}

func (s *SessionService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (s *SessionService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
