package httpx

import (
	"context"

	"github.com/wayfarerhq/wayfarer/pkg/jwtx"
)

type ctxKey int

const identityKey ctxKey = iota

// ContextWithIdentity attaches a validated identity to the context. The
// identity is an immutable value; handlers never mutate it.
func ContextWithIdentity(ctx context.Context, ident jwtx.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFromContext returns the identity set by the Authn middleware.
// ok is false on routes where authentication did not run or failed upstream.
func IdentityFromContext(ctx context.Context) (jwtx.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(jwtx.Identity)
	return ident, ok
}
