package auth

import (
	"context"
	"errors"

	"github.com/akademia-app/akademia/internal/rbac"
	"github.com/akademia-app/akademia/internal/shared"
)

// Resolver resolves the current request identity from the session bound
// to the context. It implements rbac.IdentityResolver.
type Resolver struct {
	repo Repository
}

// NewResolver constructs a Resolver.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

var _ rbac.IdentityResolver = (*Resolver)(nil)

// ResolveCurrentUser returns the identity for the session user, or
// (nil, nil) when the request is anonymous or the account is gone or
// deactivated. Storage failures propagate so guards fail closed.
func (r *Resolver) ResolveCurrentUser(ctx context.Context) (*rbac.Identity, error) {
	sess := shared.SessionFromContext(ctx)
	if !sess.IsAuthenticated() {
		return nil, nil
	}
	identity, err := r.repo.GetIdentity(ctx, sess.UserID())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return identity, nil
}
