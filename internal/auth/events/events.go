// Package events publishes security-relevant authentication events. The
// session service emits an event for every outcome that an operator or a
// downstream consumer would want to act on; publishing must never change the
// outcome of the operation that produced the event.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/wayfarerhq/wayfarer/pkg/slogx"
)

// Event types emitted by the auth subsystem.
const (
	TypeLoginSucceeded     = "auth.login_succeeded"
	TypeLoginFailed        = "auth.login_failed"
	TypeAccountLocked      = "auth.account_locked"
	TypeTokenRotated       = "auth.token_rotated"
	TypeTokenReuseDetected = "auth.token_reuse_detected"
	TypeLogout             = "auth.logout"
	TypeUserRegistered     = "auth.user_registered"
)

// Event is a single security event. UserID may be empty when the subject
// could not be resolved, e.g. a login attempt against an unknown email.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id,omitempty"`
	Email      string    `json:"email,omitempty"`
	IP         string    `json:"ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers security events. Implementations must be safe for
// concurrent use. Errors are for the caller to log, not to act on.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// LogPublisher writes events to the structured log. It is the default sink
// when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, ev Event) error {
	slogx.FromContext(ctx).Info("security event",
		slog.String("event", ev.Type),
		slog.String("user_id", ev.UserID),
		slog.String("ip", ev.IP),
		slog.String("detail", ev.Detail),
	)
	return nil
}

func (LogPublisher) Close() error { return nil }
