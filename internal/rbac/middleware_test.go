package rbac_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademia-app/akademia/internal/rbac"
)

func protectedEndpoint(mw rbac.Middleware, action, subject string, seen **rbac.Identity) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = rbac.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return mw.Require(action, subject)(inner)
}

func TestRequireRedirectsAnonymous(t *testing.T) {
	mw := rbac.Middleware{Guard: rbac.NewGuard(&stubResolver{}, nil)}
	var seen *rbac.Identity
	handler := protectedEndpoint(mw, "manage", "settings", &seen)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/roles", nil))

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth/login", res.Header().Get("Location"))
	assert.Nil(t, seen)
}

func TestRequireForbidsMissingGrant(t *testing.T) {
	mw := rbac.Middleware{Guard: rbac.NewGuard(&stubResolver{identity: teacherIdentity()}, nil)}
	var seen *rbac.Identity
	handler := protectedEndpoint(mw, "manage", "settings", &seen)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/roles", nil))

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Nil(t, seen)
}

func TestRequirePassesIdentityToHandler(t *testing.T) {
	mw := rbac.Middleware{Guard: rbac.NewGuard(&stubResolver{identity: teacherIdentity()}, nil)}
	var seen *rbac.Identity
	handler := protectedEndpoint(mw, "read", "course", &seen)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/courses", nil))

	assert.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, seen)
	assert.Equal(t, int64(7), seen.ID)
}
