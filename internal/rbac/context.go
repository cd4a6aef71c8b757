package rbac

import "context"

type identityContextKey struct{}

// ContextWithIdentity stores the resolved identity in context so handlers
// downstream of the middleware can attribute changes without re-resolving.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext extracts the identity placed by the middleware.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityContextKey{}).(*Identity)
	return identity
}
