package rbac

import (
	"errors"
	"net/http"

	"log/slog"
)

// Middleware adapts the Guard to chi-style HTTP middleware.
type Middleware struct {
	Guard  *Guard
	Logger *slog.Logger
}

// Require enforces the (action, subject) grant before the wrapped handler
// runs. Unauthenticated requests are redirected to the login page;
// authenticated requests without the grant receive 403. The resolved
// identity is stored in the request context for the handler.
func (m Middleware) Require(action, subject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := m.Guard.RequirePermission(r.Context(), action, subject)
			if err != nil {
				m.deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
	case errors.Is(err, ErrUnauthorized):
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	default:
		if m.Logger != nil {
			m.Logger.Error("rbac resolve identity", slog.Any("error", err))
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
