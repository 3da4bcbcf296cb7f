package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expeditor/backoffice/internal/auth"
	"github.com/expeditor/backoffice/internal/config"
	"github.com/expeditor/backoffice/internal/model"
	"github.com/expeditor/backoffice/internal/utils"
)

// mwSessions is a single-user session store for middleware tests.
type mwSessions struct {
	sess    *model.Session
	traffic []int64
}

func (s *mwSessions) GetActive(_ context.Context, userID uint64) (model.Session, error) {
	if s.sess == nil || s.sess.UserID != userID {
		return model.Session{}, errors.New("not found")
	}
	return *s.sess, nil
}

func (s *mwSessions) Upsert(_ context.Context, userID uint64, token, ip, ua string, delta int64) (model.Session, error) {
	if s.sess == nil {
		s.sess = &model.Session{UserID: userID}
	}
	s.sess.RefreshToken = token
	s.sess.SessionStart = time.Now()
	s.sess.SessionEnd = nil
	s.sess.Traffic += delta
	return *s.sess, nil
}

func (s *mwSessions) Close(_ context.Context, userID uint64) error {
	s.sess = nil
	return nil
}

func (s *mwSessions) AddTraffic(_ context.Context, token string, delta int64) error {
	if s.sess != nil && s.sess.RefreshToken == token {
		s.sess.Traffic += delta
		s.traffic = append(s.traffic, delta)
	}
	return nil
}

func mwManager(sessions *mwSessions) *auth.Manager {
	cfg := config.Config{
		JWTSecret:     "middleware-test-secret",
		AccessTTLMin:  5,
		RefreshTTLMin: 60,
	}
	return auth.NewManager(cfg, nil, nil, sessions)
}

func echoHandler(t *testing.T) echo.HandlerFunc {
	t.Helper()
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"user_id":  c.Get(CtxUserID),
			"username": c.Get(CtxUsername),
			"role":     c.Get(CtxRole),
		})
	}
}

func doRequest(t *testing.T, mgr *auth.Manager, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := JWTAuth(mgr)(echoHandler(t))
	require.NoError(t, h(c))
	return rec
}

func TestJWTAuthMissingHeader(t *testing.T) {
	mgr := mwManager(&mwSessions{})
	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	rec := doRequest(t, mgr, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthGarbageToken(t *testing.T) {
	mgr := mwManager(&mwSessions{})
	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rec := doRequest(t, mgr, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthValidTokenPassesAndAccountsTraffic(t *testing.T) {
	sessions := &mwSessions{}
	mgr := mwManager(sessions)

	refresh, err := utils.NewRefreshToken(mgr.Cfg.JWTSecret, 1, "alice", "user", 60)
	require.NoError(t, err)
	_, err = sessions.Upsert(context.Background(), 1, refresh.Token, "", "", 0)
	require.NoError(t, err)

	access, err := utils.NewAccessToken(mgr.Cfg.JWTSecret, 1, "alice", "user", 5)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+access.Token)
	rec := doRequest(t, mgr, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)

	// No cookie on the request: accounting falls back to the stored token.
	require.NotEmpty(t, sessions.traffic)
	assert.Greater(t, sessions.traffic[0], int64(0))
	assert.Equal(t, sessions.traffic[0], sessions.sess.Traffic)
}

func TestJWTAuthTransparentRefresh(t *testing.T) {
	sessions := &mwSessions{}
	mgr := mwManager(sessions)

	stored, err := utils.NewRefreshToken(mgr.Cfg.JWTSecret, 1, "alice", "user", 60)
	require.NoError(t, err)
	_, err = sessions.Upsert(context.Background(), 1, stored.Token, "", "", 0)
	require.NoError(t, err)

	expired, err := utils.NewAccessToken(mgr.Cfg.JWTSecret, 1, "alice", "user", -1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+expired.Token)
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: stored.Token})
	rec := doRequest(t, mgr, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)

	// New access token surfaced to the client.
	newAuth := rec.Header().Get("Authorization")
	require.True(t, strings.HasPrefix(newAuth, "Bearer "))
	fresh, err := utils.DecodeToken(mgr.Cfg.JWTSecret, strings.TrimPrefix(newAuth, "Bearer "))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), fresh.UserID)

	// Refresh token rotated: cookie reset and stored copy replaced.
	setCookie := strings.Join(rec.Header().Values("Set-Cookie"), "\n")
	assert.Contains(t, setCookie, RefreshCookieName+"=")
	assert.NotEqual(t, stored.Token, sessions.sess.RefreshToken)

	// Traffic lands on the rotated token's session.
	require.NotEmpty(t, sessions.traffic)
}

func TestJWTAuthRefreshFailureClearsCookie(t *testing.T) {
	mgr := mwManager(&mwSessions{}) // no active session anywhere

	expired, err := utils.NewAccessToken(mgr.Cfg.JWTSecret, 1, "alice", "user", -1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+expired.Token)
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "stale"})
	rec := doRequest(t, mgr, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "re-authentication required")

	setCookie := strings.Join(rec.Header().Values("Set-Cookie"), "\n")
	assert.Contains(t, setCookie, RefreshCookieName+"=")
	assert.Contains(t, setCookie, "Max-Age=0") // expired immediately
}

func TestJWTAuthMismatchedCookie(t *testing.T) {
	sessions := &mwSessions{}
	mgr := mwManager(sessions)

	stored, err := utils.NewRefreshToken(mgr.Cfg.JWTSecret, 1, "alice", "user", 60)
	require.NoError(t, err)
	_, err = sessions.Upsert(context.Background(), 1, stored.Token, "", "", 0)
	require.NoError(t, err)

	other, err := utils.NewRefreshToken(mgr.Cfg.JWTSecret, 1, "alice", "user", 30)
	require.NoError(t, err)
	expired, err := utils.NewAccessToken(mgr.Cfg.JWTSecret, 1, "alice", "user", -1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+expired.Token)
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: other.Token})
	rec := doRequest(t, mgr, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// The mismatch alone does not kill the session.
	assert.NotNil(t, sessions.sess)
	assert.Equal(t, stored.Token, sessions.sess.RefreshToken)
}
