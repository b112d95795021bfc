package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/wayfarerhq/wayfarer/pkg/jwtx"
	"github.com/wayfarerhq/wayfarer/pkg/slogx"
)

// Authn validates the bearer access token and injects the resulting identity
// into the request context. No database access happens here; token
// verification is signature plus expiry only.
func Authn(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				ErrUnauthenticated.Write(w)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("access token rejected", "err", err)
				Unauthorized(validatorCode(err), "token verification failed").Write(w)
				return
			}

			ctx := ContextWithIdentity(r.Context(), claims.Identity())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validatorCode(err error) string {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return CodeExpiredToken
	case errors.Is(err, jwtx.ErrMalformed):
		return CodeMalformedToken
	default:
		return CodeInvalidToken
	}
}
