package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/auth/service"
	"github.com/wayfarerhq/wayfarer/internal/auth/store"
	"github.com/wayfarerhq/wayfarer/pkg/httpx"
	"github.com/wayfarerhq/wayfarer/pkg/slogx"
)

// writeServiceError maps service-layer failures onto the stable API error
// taxonomy. Unmapped errors are logged and answered as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var locked *service.AccountLockedError

	switch {
	case errors.As(err, &locked):
		httpx.AccountLocked(time.Until(locked.Until)).Write(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.ErrInvalidCredentials.Write(w)
	case errors.Is(err, service.ErrInvalidRefreshToken):
		httpx.Unauthorized(httpx.CodeInvalidRefresh, "refresh token not recognised").Write(w)
	case errors.Is(err, service.ErrExpiredRefreshToken):
		httpx.Unauthorized(httpx.CodeExpiredRefresh, "refresh token expired, log in again").Write(w)
	case errors.Is(err, service.ErrTokenReuseDetected):
		httpx.Unauthorized(httpx.CodeTokenReuse, "refresh token reuse detected, all sessions revoked").Write(w)
	case errors.Is(err, service.ErrEmailTaken):
		(&httpx.APIError{
			Status:      http.StatusConflict,
			Code:        httpx.CodeEmailTaken,
			Description: "email already registered",
		}).Write(w)
	case errors.Is(err, service.ErrWeakPassword):
		httpx.BadRequest("password too short").Write(w)
	case errors.Is(err, service.ErrInvalidEmail):
		httpx.BadRequest("invalid email address").Write(w)
	case errors.Is(err, store.ErrNotFound):
		(&httpx.APIError{
			Status:      http.StatusNotFound,
			Code:        httpx.CodeNotFound,
			Description: "resource not found",
		}).Write(w)
	case errors.Is(err, store.ErrUnavailable):
		httpx.ErrStorageUnavailable.Write(w)
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		httpx.ErrInternal.Write(w)
	}
}
