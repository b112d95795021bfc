package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WriteJSON writes a JSON response with the given status code. Responses
// from this package carry credentials, so caching is always disabled.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// Stable machine-readable error codes of the authentication API.
const (
	CodeInvalidRequest      = "invalid_request"
	CodeUnauthenticated     = "unauthenticated"
	CodeInvalidCredentials  = "invalid_credentials"
	CodeAccountLocked       = "account_locked"
	CodeInvalidToken        = "invalid_token"
	CodeExpiredToken        = "expired_token"
	CodeMalformedToken      = "malformed_token"
	CodeInvalidRefresh      = "invalid_refresh_token"
	CodeExpiredRefresh      = "expired_refresh_token"
	CodeTokenReuse          = "token_reuse_detected"
	CodeForbidden           = "forbidden"
	CodeRateLimited         = "rate_limited"
	CodeEmailTaken          = "email_taken"
	CodeNotFound            = "not_found"
	CodeStorageUnavailable  = "storage_unavailable"
	CodeInternalServerError = "server_error"
)

// APIError is a terminal, user-visible failure with a stable code, an
// HTTP-appropriate status and an optional Retry-After hint.
type APIError struct {
	Status      int           `json:"-"`
	Code        string        `json:"error"`
	Description string        `json:"error_description"`
	RetryAfter  time.Duration `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Write renders the error as a structured JSON response.
func (e *APIError) Write(w http.ResponseWriter) {
	if e.RetryAfter > 0 {
		secs := int(e.RetryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
	}
	WriteJSON(w, e.Status, e)
}

var (
	// ErrUnauthenticated is returned when no valid identity is attached to
	// the request.
	ErrUnauthenticated = &APIError{
		Status:      http.StatusUnauthorized,
		Code:        CodeUnauthenticated,
		Description: "authentication required",
	}

	// ErrInvalidCredentials covers both unknown accounts and wrong
	// passwords; the two are deliberately indistinguishable.
	ErrInvalidCredentials = &APIError{
		Status:      http.StatusUnauthorized,
		Code:        CodeInvalidCredentials,
		Description: "invalid email or password",
	}

	// ErrInternal is the catch-all for unexpected failures.
	ErrInternal = &APIError{
		Status:      http.StatusInternalServerError,
		Code:        CodeInternalServerError,
		Description: "internal server error",
	}

	// ErrStorageUnavailable is returned when the storage layer stays
	// unreachable after bounded retries.
	ErrStorageUnavailable = &APIError{
		Status:      http.StatusServiceUnavailable,
		Code:        CodeStorageUnavailable,
		Description: "storage temporarily unavailable",
	}
)

// BadRequest builds a 400 with the given description.
func BadRequest(desc string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: CodeInvalidRequest, Description: desc}
}

// Unauthorized builds a 401 with a taxonomy code and description.
func Unauthorized(code, desc string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: code, Description: desc}
}

// Forbidden builds a 403 naming the capability that was missing.
func Forbidden(desc string) *APIError {
	return &APIError{Status: http.StatusForbidden, Code: CodeForbidden, Description: desc}
}

// AccountLocked builds a 423 carrying the remaining lockout duration.
func AccountLocked(retryAfter time.Duration) *APIError {
	return &APIError{
		Status:      http.StatusLocked,
		Code:        CodeAccountLocked,
		Description: "account temporarily locked after repeated failed logins",
		RetryAfter:  retryAfter,
	}
}

// RateLimited builds a 429 carrying the suggested retry delay.
func RateLimited(retryAfter time.Duration) *APIError {
	return &APIError{
		Status:      http.StatusTooManyRequests,
		Code:        CodeRateLimited,
		Description: "too many requests, slow down",
		RetryAfter:  retryAfter,
	}
}
