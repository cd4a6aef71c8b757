package rbac

import (
	"context"
	"errors"
	"fmt"

	"log/slog"
)

var (
	// ErrUnauthenticated indicates no identity could be resolved for the request.
	ErrUnauthenticated = errors.New("rbac: unauthenticated")
	// ErrUnauthorized indicates the identity lacks the required grant.
	ErrUnauthorized = errors.New("rbac: unauthorized")
)

// DeniedError names the missing capability behind an ErrUnauthorized.
type DeniedError struct {
	Action  string
	Subject string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("rbac: missing permission %s on %s", e.Action, e.Subject)
}

func (e *DeniedError) Unwrap() error {
	return ErrUnauthorized
}

// IdentityResolver resolves the current request's identity. A (nil, nil)
// return means no authenticated user.
type IdentityResolver interface {
	ResolveCurrentUser(ctx context.Context) (*Identity, error)
}

// Guard enforces permission decisions at the boundary of privileged
// operations. Every state-changing or sensitive-read handler goes through
// RequirePermission before touching anything else.
type Guard struct {
	resolver IdentityResolver
	logger   *slog.Logger
}

// NewGuard constructs a Guard.
func NewGuard(resolver IdentityResolver, logger *slog.Logger) *Guard {
	return &Guard{resolver: resolver, logger: logger}
}

// RequirePermission resolves the current identity and checks the required
// (action, subject) grant. On success the identity is returned so callers
// can use it for attribution. Any failure aborts the operation: resolver
// errors propagate as-is, a missing identity yields ErrUnauthenticated,
// and a missing grant yields a DeniedError wrapping ErrUnauthorized.
func (g *Guard) RequirePermission(ctx context.Context, action, subject string) (*Identity, error) {
	if g == nil || g.resolver == nil {
		return nil, ErrUnauthenticated
	}
	identity, err := g.resolver.ResolveCurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, ErrUnauthenticated
	}
	if !HasPermission(identity, action, subject) {
		if g.logger != nil {
			g.logger.Warn("permission denied",
				slog.Int64("user_id", identity.ID),
				slog.String("action", action),
				slog.String("subject", subject))
		}
		return nil, &DeniedError{Action: normalize(action), Subject: normalize(subject)}
	}
	return identity, nil
}
