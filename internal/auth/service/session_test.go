package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wayfarerhq/wayfarer/internal/auth/domain"
	"github.com/wayfarerhq/wayfarer/internal/auth/events"
	"github.com/wayfarerhq/wayfarer/internal/auth/store"
	"github.com/wayfarerhq/wayfarer/internal/auth/store/drivers/sqlite"
	"github.com/wayfarerhq/wayfarer/pkg/cryptox"
	"github.com/wayfarerhq/wayfarer/pkg/jwtx"
)

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func (p *capturePublisher) has(eventType string) bool {
	for _, typ := range p.types() {
		if typ == eventType {
			return true
		}
	}
	return false
}

func newTestService(t *testing.T) (*SessionService, *sqlite.Store, *capturePublisher) {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, err := jwtx.NewHS256([]byte("test-secret-0123456789abcdef"), "wayfarer-test")
	require.NoError(t, err)

	pub := &capturePublisher{}
	svc := &SessionService{
		Store:  st,
		Signer: signer,
		Events: pub,
		Issuer: "wayfarer-test",
	}
	return svc, st, pub
}

var testDevice = domain.DeviceInfo{
	UserAgent: "go-test",
	Platform:  "test",
	IP:        "192.0.2.1",
}

func registerUser(t *testing.T, svc *SessionService, email, password string) (*domain.TokenPair, domain.Profile) {
	t.Helper()
	pair, profile, err := svc.Register(context.Background(), email, password, testDevice)
	require.NoError(t, err)
	return pair, profile
}

func TestRegister(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	pair, profile, err := svc.Register(ctx, "Alice@Example.com", "correct horse", testDevice)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, "alice@example.com", profile.Email)
	require.Equal(t, jwtx.RoleUser, profile.Role)
	require.True(t, pub.has(events.TypeUserRegistered))

	t.Run("duplicate email refused", func(t *testing.T) {
		_, _, err := svc.Register(ctx, "alice@example.com", "another pass", testDevice)
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("weak password refused", func(t *testing.T) {
		_, _, err := svc.Register(ctx, "bob@example.com", "short", testDevice)
		require.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("bad email refused", func(t *testing.T) {
		for _, email := range []string{"", "no-at-sign", "@start", "end@", "two@@ats"} {
			_, _, err := svc.Register(ctx, email, "long enough pass", testDevice)
			require.ErrorIs(t, err, ErrInvalidEmail, "email %q", email)
		}
	})
}

func TestLogin(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	registerUser(t, svc, "alice@example.com", "correct horse")

	t.Run("valid credentials mint a verifiable pair", func(t *testing.T) {
		pair, profile, err := svc.Login(ctx, "alice@example.com", "correct horse", testDevice)
		require.NoError(t, err)
		require.NotNil(t, profile.LastLoginAt)

		verifier, err := jwtx.NewHS256([]byte("test-secret-0123456789abcdef"), "wayfarer-test")
		require.NoError(t, err)
		claims, err := verifier.Verify(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, profile.ID, claims.Subject)
		require.Equal(t, "alice@example.com", claims.Email)
		require.Equal(t, jwtx.RoleUser, claims.Role)
		require.NotEmpty(t, claims.RTJ)
		require.True(t, pub.has(events.TypeLoginSucceeded))
	})

	t.Run("email is case-insensitive", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "ALICE@example.COM", "correct horse", testDevice)
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "alice@example.com", "wrong", testDevice)
		require.ErrorIs(t, err, ErrInvalidCredentials)
		require.True(t, pub.has(events.TypeLoginFailed))
	})

	t.Run("unknown email answers like a wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "nobody@example.com", "whatever", testDevice)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLoginLockout(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	registerUser(t, svc, "alice@example.com", "correct horse")

	// Five failures all answer invalid_credentials; the fifth closes the
	// gate behind itself, so the sixth hits the lock.
	for i := 0; i < DefaultLockoutThreshold; i++ {
		_, _, err := svc.Login(ctx, "alice@example.com", "wrong", testDevice)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	require.True(t, pub.has(events.TypeAccountLocked))

	_, _, err := svc.Login(ctx, "alice@example.com", "wrong", testDevice)
	require.ErrorIs(t, err, ErrAccountLocked)

	var locked *AccountLockedError
	require.ErrorAs(t, err, &locked)
	require.WithinDuration(t, time.Now().Add(DefaultLockoutDuration), locked.Until, time.Minute)

	t.Run("correct password is refused while locked", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "alice@example.com", "correct horse", testDevice)
		require.ErrorIs(t, err, ErrAccountLocked)
	})

}

func TestLockoutExpiry(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.LockoutDuration = 200 * time.Millisecond
	ctx := context.Background()
	registerUser(t, svc, "alice@example.com", "correct horse")

	for i := 0; i < DefaultLockoutThreshold; i++ {
		_, _, err := svc.Login(ctx, "alice@example.com", "wrong", testDevice)
		require.Error(t, err)
	}
	_, _, err := svc.Login(ctx, "alice@example.com", "correct horse", testDevice)
	require.ErrorIs(t, err, ErrAccountLocked)

	// An elapsed lock admits the user again and the success resets the
	// failure counter.
	time.Sleep(300 * time.Millisecond)
	_, profile, err := svc.Login(ctx, "alice@example.com", "correct horse", testDevice)
	require.NoError(t, err)
	require.NotNil(t, profile.LastLoginAt)

	_, _, err = svc.Login(ctx, "alice@example.com", "wrong", testDevice)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRotate(t *testing.T) {
	svc, st, pub := newTestService(t)
	ctx := context.Background()
	pair, profile := registerUser(t, svc, "alice@example.com", "correct horse")

	t.Run("rotation retires the old token", func(t *testing.T) {
		next, err := svc.Rotate(ctx, pair.RefreshToken, testDevice)
		require.NoError(t, err)
		require.NotEqual(t, pair.RefreshToken, next.RefreshToken)
		require.NotEmpty(t, next.AccessToken)
		require.True(t, pub.has(events.TypeTokenRotated))

		old, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.Fingerprint(pair.RefreshToken))
		require.NoError(t, err)
		require.False(t, old.Active)

		// Replaying the retired token is theft evidence: every session of
		// the user dies, the fresh one included.
		_, err = svc.Rotate(ctx, pair.RefreshToken, testDevice)
		require.ErrorIs(t, err, ErrTokenReuseDetected)
		require.True(t, pub.has(events.TypeTokenReuseDetected))

		active, err := st.RefreshTokens().CountActiveUserRefreshTokens(ctx, profile.ID)
		require.NoError(t, err)
		require.Zero(t, active)

		_, err = svc.Rotate(ctx, next.RefreshToken, testDevice)
		require.ErrorIs(t, err, ErrTokenReuseDetected)
	})
}

func TestRotateUnknownToken(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	_, profile := registerUser(t, svc, "alice@example.com", "correct horse")

	// A token that never existed is plain invalid and revokes nothing.
	_, err := svc.Rotate(ctx, "never-issued-token", testDevice)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	active, err := st.RefreshTokens().CountActiveUserRefreshTokens(ctx, profile.ID)
	require.NoError(t, err)
	require.Equal(t, 1, active)
}

func TestRotateExpiredToken(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	_, profile := registerUser(t, svc, "alice@example.com", "correct horse")

	opaque, err := cryptox.NewOpaqueToken(cryptox.RefreshTokenBytes)
	require.NoError(t, err)
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        "expired-rec",
		UserID:    profile.ID,
		TokenHash: cryptox.Fingerprint(opaque),
		Active:    true,
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err = svc.Rotate(ctx, opaque, testDevice)
	require.ErrorIs(t, err, ErrExpiredRefreshToken)
}

func TestLogout(t *testing.T) {
	svc, st, pub := newTestService(t)
	ctx := context.Background()
	pair, profile := registerUser(t, svc, "alice@example.com", "correct horse")

	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))
	require.True(t, pub.has(events.TypeLogout))

	active, err := st.RefreshTokens().CountActiveUserRefreshTokens(ctx, profile.ID)
	require.NoError(t, err)
	require.Zero(t, active)

	t.Run("repeat logout and unknown tokens succeed", func(t *testing.T) {
		require.NoError(t, svc.Logout(ctx, pair.RefreshToken))
		require.NoError(t, svc.Logout(ctx, "never-issued-token"))
	})

	t.Run("refreshing after logout is reuse", func(t *testing.T) {
		_, err := svc.Rotate(ctx, pair.RefreshToken, testDevice)
		require.ErrorIs(t, err, ErrTokenReuseDetected)
	})
}

func TestLoginWithOAuth(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	t.Run("first login provisions the account", func(t *testing.T) {
		pair, profile, err := svc.LoginWithOAuth(ctx, domain.ProviderGoogle, "g-123", "carol@example.com", `{"name":"Carol"}`, testDevice)
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.Equal(t, "carol@example.com", profile.Email)
		require.True(t, pub.has(events.TypeUserRegistered))

		again, profile2, err := svc.LoginWithOAuth(ctx, domain.ProviderGoogle, "g-123", "carol@example.com", "", testDevice)
		require.NoError(t, err)
		require.Equal(t, profile.ID, profile2.ID)
		require.NotEqual(t, pair.RefreshToken, again.RefreshToken)
	})

	t.Run("email owned by a local account is refused", func(t *testing.T) {
		registerUser(t, svc, "dave@example.com", "correct horse")
		_, _, err := svc.LoginWithOAuth(ctx, domain.ProviderGitHub, "gh-9", "dave@example.com", "", testDevice)
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("password login against an oauth-only account fails", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "carol@example.com", "anything at all", testDevice)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestSessionAdministration(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, profile := registerUser(t, svc, "alice@example.com", "correct horse")

	// A second device logs in.
	_, _, err := svc.Login(ctx, "alice@example.com", "correct horse", domain.DeviceInfo{UserAgent: "other", Platform: "ios"})
	require.NoError(t, err)

	sessions, err := svc.ListSessions(ctx, profile.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	for _, sess := range sessions {
		require.True(t, sess.Active)
		require.NotEmpty(t, sess.ID)
	}

	revoked, err := svc.RevokeAllSessions(ctx, profile.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, revoked)

	sessions, err = svc.ListSessions(ctx, profile.ID)
	require.NoError(t, err)
	for _, sess := range sessions {
		require.False(t, sess.Active)
	}
}

var _ store.Store = (*sqlite.Store)(nil)
