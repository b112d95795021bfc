package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/auth/domain"
	"github.com/wayfarerhq/wayfarer/pkg/slogx"
)

// SessionInfo is the client-visible projection of a refresh-token record.
// The token fingerprint never leaves the service layer.
type SessionInfo struct {
	ID         string  `json:"id"`
	Active     bool    `json:"active"`
	UserAgent  string  `json:"user_agent,omitempty"`
	Platform   string  `json:"platform,omitempty"`
	CreatedAt  string  `json:"created_at"`
	ExpiresAt  string  `json:"expires_at"`
	LastUsedAt *string `json:"last_used_at,omitempty"`
}

// ListSessions returns the user's refresh-token records, newest first.
func (s *SessionService) ListSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	records, err := s.Store.RefreshTokens().ListUserRefreshTokens(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]SessionInfo, 0, len(records))
	for _, rt := range records {
		out = append(out, sessionInfo(rt))
	}
	return out, nil
}

// RevokeAllSessions force-logs-out every device of the user and returns how
// many sessions were active. Used by admins and by users resetting their own
// security posture.
func (s *SessionService) RevokeAllSessions(ctx context.Context, userID string) (int64, error) {
	revoked, err := s.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
	if err != nil {
		return 0, err
	}
	slogx.FromContext(ctx).Info("revoked all user sessions",
		slog.String("user_id", userID),
		slog.Int64("revoked", revoked),
	)
	return revoked, nil
}

func sessionInfo(rt domain.RefreshToken) SessionInfo {
	info := SessionInfo{
		ID:        rt.ID,
		Active:    rt.Active,
		UserAgent: rt.UserAgent,
		Platform:  rt.Platform,
		CreatedAt: rt.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt: rt.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if rt.LastUsedAt != nil {
		used := rt.LastUsedAt.UTC().Format(time.RFC3339)
		info.LastUsedAt = &used
	}
	return info
}
