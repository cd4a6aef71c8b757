package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "akademia_session", time.Hour, false), srv
}

func TestSessionRoundTrip(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.False(t, sess.IsAuthenticated())

	sess.SetUserID(7)
	sess.AddFlash(FlashMessage{Kind: "success", Message: "Selamat datang kembali"})

	rec := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, rec, req, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "akademia_session", cookies[0].Name)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	reloaded, err := manager.Load(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, int64(7), reloaded.UserID())
	assert.True(t, reloaded.IsAuthenticated())

	flash := reloaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Selamat datang kembali", flash.Message)
	assert.Nil(t, reloaded.PopFlash())
}

func TestSessionDestroy(t *testing.T) {
	manager, srv := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUserID(7)
	require.NoError(t, manager.Commit(ctx, httptest.NewRecorder(), req, sess))
	require.True(t, srv.Exists("akademia:sess:"+sess.ID))

	manager.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, rec, req, sess))

	assert.False(t, srv.Exists("akademia:sess:"+sess.ID))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestCSRFTokenLifecycle(t *testing.T) {
	manager, _ := newTestManager(t)
	csrf := NewCSRFManager("rahasia-csrf")
	ctx := context.Background()

	sess, err := manager.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	token, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	again, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, token, again, "EnsureToken must be stable per session")

	assert.NoError(t, csrf.VerifyToken(ctx, sess, token))
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, "palsu"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, nil, token), ErrCSRFTokenMissing)
}
