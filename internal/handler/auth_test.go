package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expeditor/backoffice/internal/auth"
	"github.com/expeditor/backoffice/internal/config"
	"github.com/expeditor/backoffice/internal/middleware"
	"github.com/expeditor/backoffice/internal/model"
	"github.com/expeditor/backoffice/internal/repository"
	"github.com/expeditor/backoffice/internal/utils"
)

type fakeUsers struct{ users map[string]model.User }

func (f *fakeUsers) GetByUsername(_ context.Context, name string) (model.User, error) {
	u, ok := f.users[name]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

type fakeRoles struct{}

func (fakeRoles) GetByID(_ context.Context, id uint64) (model.Role, error) {
	if id == 1 {
		return model.Role{ID: 1, Name: model.RoleUser}, nil
	}
	return model.Role{}, repository.ErrNotFound
}

type fakeSessions struct{ sess *model.Session }

func (f *fakeSessions) GetActive(_ context.Context, userID uint64) (model.Session, error) {
	if f.sess == nil || f.sess.UserID != userID {
		return model.Session{}, repository.ErrNotFound
	}
	return *f.sess, nil
}

func (f *fakeSessions) Upsert(_ context.Context, userID uint64, token, ip, ua string, delta int64) (model.Session, error) {
	if f.sess == nil {
		f.sess = &model.Session{UserID: userID, SessionStart: time.Now()}
	}
	f.sess.RefreshToken = token
	f.sess.Traffic += delta
	f.sess.IPAddress = ip
	f.sess.DeviceInfo = ua
	return *f.sess, nil
}

func (f *fakeSessions) Close(_ context.Context, userID uint64) error {
	f.sess = nil
	return nil
}

func (f *fakeSessions) AddTraffic(_ context.Context, token string, delta int64) error {
	return nil
}

func newAuthHandlerForTest(t *testing.T) (*AuthHandler, *fakeSessions) {
	t.Helper()
	hash, err := utils.HashPassword("s3cret", 4)
	require.NoError(t, err)

	cfg := config.Config{
		JWTSecret:      "handler-test-secret",
		AccessTTLMin:   5,
		RefreshTTLMin:  60,
		BcryptCost:     4,
		CookieSameSite: "strict",
	}
	users := &fakeUsers{users: map[string]model.User{
		"alice": {ID: 10, Username: "alice", PasswordHash: hash, RoleID: 1, IsActive: true},
	}}
	sessions := &fakeSessions{}
	mgr := auth.NewManager(cfg, users, fakeRoles{}, sessions)
	return NewAuthHandler(mgr, nil), sessions
}

func postJSON(path, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

func TestLoginHandlerSuccess(t *testing.T) {
	h, sessions := newAuthHandlerForTest(t)
	e := echo.New()
	req, rec := postJSON("/v1/auth/login", `{"username":"alice","password":"s3cret"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
	assert.Contains(t, rec.Body.String(), `"access_token"`)
	assert.Contains(t, rec.Body.String(), `"token_type":"bearer"`)

	setCookie := strings.Join(rec.Header().Values("Set-Cookie"), "\n")
	assert.Contains(t, setCookie, middleware.RefreshCookieName+"=")
	require.NotNil(t, sessions.sess)
	assert.Equal(t, uint64(10), sessions.sess.UserID)
}

func TestLoginHandlerBadCredentials(t *testing.T) {
	h, sessions := newAuthHandlerForTest(t)
	e := echo.New()
	req, rec := postJSON("/v1/auth/login", `{"username":"alice","password":"nope"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessions.sess)
}

func TestLoginHandlerMissingFields(t *testing.T) {
	h, _ := newAuthHandlerForTest(t)
	e := echo.New()
	req, rec := postJSON("/v1/auth/login", `{"username":"alice"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshHandlerRotates(t *testing.T) {
	h, sessions := newAuthHandlerForTest(t)
	e := echo.New()

	// Open a session first.
	req, rec := postJSON("/v1/auth/login", `{"username":"alice","password":"s3cret"}`)
	require.NoError(t, h.Login(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)
	stored := sessions.sess.RefreshToken

	req, rec = postJSON("/v1/auth/refresh", `{"refresh_token":"`+stored+`"}`)
	require.NoError(t, h.Refresh(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, stored, sessions.sess.RefreshToken)
}

func TestRefreshHandlerWithoutSession(t *testing.T) {
	h, _ := newAuthHandlerForTest(t)
	e := echo.New()

	tok, err := utils.NewRefreshToken("handler-test-secret", 10, "alice", "user", 60)
	require.NoError(t, err)

	req, rec := postJSON("/v1/auth/refresh", `{"refresh_token":"`+tok.Token+`"}`)
	require.NoError(t, h.Refresh(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutHandlerIdempotent(t *testing.T) {
	h, sessions := newAuthHandlerForTest(t)
	e := echo.New()

	req, rec := postJSON("/v1/auth/login", `{"username":"alice","password":"s3cret"}`)
	require.NoError(t, h.Login(e.NewContext(req, rec)))
	require.NotNil(t, sessions.sess)

	for i := 0; i < 2; i++ {
		req, rec = postJSON("/v1/auth/logout", "")
		c := e.NewContext(req, rec)
		c.Set(middleware.CtxUserID, uint64(10))
		require.NoError(t, h.Logout(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Nil(t, sessions.sess)
}

func TestUpdateProfileUsernameConflict(t *testing.T) {
	h, _ := newAuthHandlerForTest(t)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	h.Users = repository.NewUserRepo(db)

	mock.ExpectExec("UPDATE users SET username=").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'bob' for key 'users.username'"))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/v1/profile", strings.NewReader(`{"username":"bob"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxUserID, uint64(10))

	require.NoError(t, h.UpdateProfile(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "username or email already in use")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionHandlerNotFound(t *testing.T) {
	h, _ := newAuthHandlerForTest(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxUserID, uint64(10))

	require.NoError(t, h.Session(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionHandlerReturnsTraffic(t *testing.T) {
	h, sessions := newAuthHandlerForTest(t)
	e := echo.New()

	req, rec := postJSON("/v1/auth/login", `{"username":"alice","password":"s3cret"}`)
	require.NoError(t, h.Login(e.NewContext(req, rec)))
	sessions.sess.Traffic = 2048

	req = httptest.NewRequest(http.MethodGet, "/v1/session", nil)
	rec = httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxUserID, uint64(10))

	require.NoError(t, h.Session(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"traffic":2048`)
}
