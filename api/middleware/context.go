package middleware

import (
	"context"

	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type principalKey struct{}

// WithPrincipal stores the authenticated caller on ctx.
func WithPrincipal(ctx context.Context, principal auth.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext returns the caller Auth stored. ok is false for
// anonymous requests.
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	if ctx == nil {
		return auth.Principal{}, false
	}
	principal, ok := ctx.Value(principalKey{}).(auth.Principal)
	return principal, ok && principal.Valid()
}

// RequirePrincipal is PrincipalFromContext for handlers that cannot run anonymously.
func RequirePrincipal(ctx context.Context) (auth.Principal, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return auth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return principal, nil
}
