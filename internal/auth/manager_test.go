package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expeditor/backoffice/internal/config"
	"github.com/expeditor/backoffice/internal/model"
	"github.com/expeditor/backoffice/internal/utils"
)

var errStubNotFound = errors.New("not found")

type stubUsers struct{ byName map[string]model.User }

func (s *stubUsers) GetByUsername(_ context.Context, name string) (model.User, error) {
	u, ok := s.byName[name]
	if !ok {
		return model.User{}, errStubNotFound
	}
	return u, nil
}

func (s *stubUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	for _, u := range s.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, errStubNotFound
}

type stubRoles struct{ byID map[uint64]model.Role }

func (s *stubRoles) GetByID(_ context.Context, id uint64) (model.Role, error) {
	r, ok := s.byID[id]
	if !ok {
		return model.Role{}, errStubNotFound
	}
	return r, nil
}

// stubSessions keeps the one-active-row-per-user shape of the SQL store in
// memory; the mutex stands in for the row lock.
type stubSessions struct {
	mu     sync.Mutex
	active map[uint64]*model.Session
	nextID uint64
}

func newStubSessions() *stubSessions {
	return &stubSessions{active: make(map[uint64]*model.Session)}
}

func (s *stubSessions) GetActive(_ context.Context, userID uint64) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.active[userID]; ok {
		return *sess, nil
	}
	return model.Session{}, errStubNotFound
}

func (s *stubSessions) Upsert(_ context.Context, userID uint64, token, ip, ua string, delta int64) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.active[userID]
	if !ok {
		s.nextID++
		sess = &model.Session{ID: s.nextID, UserID: userID}
		s.active[userID] = sess
	}
	sess.RefreshToken = token
	sess.SessionStart = time.Now()
	sess.SessionEnd = nil
	sess.Traffic += delta
	sess.IPAddress = ip
	sess.DeviceInfo = ua
	return *sess, nil
}

func (s *stubSessions) Close(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, userID)
	return nil
}

func (s *stubSessions) AddTraffic(_ context.Context, token string, delta int64) error {
	if token == "" || delta == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.active {
		if sess.RefreshToken == token {
			sess.Traffic += delta
		}
	}
	return nil
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:     "manager-test-secret",
		AccessTTLMin:  5,
		RefreshTTLMin: 60,
		BcryptCost:    4,
	}
}

func newTestManager(t *testing.T) (*Manager, *stubSessions) {
	t.Helper()
	hash, err := utils.HashPassword("s3cret", 4)
	require.NoError(t, err)

	users := &stubUsers{byName: map[string]model.User{
		"alice":    {ID: 1, Username: "alice", PasswordHash: hash, RoleID: 2, IsActive: true},
		"disabled": {ID: 2, Username: "disabled", PasswordHash: hash, RoleID: 2, IsActive: false},
	}}
	roles := &stubRoles{byID: map[uint64]model.Role{
		1: {ID: 1, Name: model.RoleAdmin},
		2: {ID: 2, Name: model.RoleUser},
	}}
	sessions := newStubSessions()
	return NewManager(testConfig(), users, roles, sessions), sessions
}

func TestLoginOpensSession(t *testing.T) {
	mgr, sessions := newTestManager(t)
	ctx := context.Background()

	res, err := mgr.Login(ctx, "alice", "s3cret", "10.0.0.1", "cli/1.0", 128)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.UserID)
	assert.Equal(t, model.RoleUser, res.Role)

	claims, err := utils.DecodeToken(mgr.Cfg.JWTSecret, res.Tokens.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, model.RoleUser, claims.Role)

	sess, err := sessions.GetActive(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, res.Tokens.Refresh.Token, sess.RefreshToken)
	assert.Equal(t, int64(128), sess.Traffic)
	assert.Equal(t, "10.0.0.1", sess.IPAddress)
}

func TestLoginFailures(t *testing.T) {
	mgr, sessions := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Login(ctx, "alice", "wrong", "", "", 0)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = mgr.Login(ctx, "nobody", "s3cret", "", "", 0)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = mgr.Login(ctx, "disabled", "s3cret", "", "", 0)
	assert.ErrorIs(t, err, ErrAccountDisabled)

	// Failed logins leave the store untouched.
	_, err = sessions.GetActive(ctx, 1)
	assert.Error(t, err)
	_, err = sessions.GetActive(ctx, 2)
	assert.Error(t, err)
}

func TestRepeatedLoginKeepsSingleSession(t *testing.T) {
	mgr, sessions := newTestManager(t)
	ctx := context.Background()

	first, err := mgr.Login(ctx, "alice", "s3cret", "10.0.0.1", "a", 100)
	require.NoError(t, err)
	second, err := mgr.Login(ctx, "alice", "s3cret", "10.0.0.2", "b", 50)
	require.NoError(t, err)
	assert.NotEqual(t, first.Tokens.Refresh.Token, second.Tokens.Refresh.Token)

	sessions.mu.Lock()
	count := len(sessions.active)
	sessions.mu.Unlock()
	assert.Equal(t, 1, count)

	sess, err := sessions.GetActive(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second.Tokens.Refresh.Token, sess.RefreshToken)
	assert.Equal(t, int64(150), sess.Traffic)
	assert.Equal(t, "10.0.0.2", sess.IPAddress)

	// The superseded refresh token no longer matches the stored copy.
	_, err = mgr.Refresh(ctx, 1, first.Tokens.Refresh.Token)
	assert.ErrorIs(t, err, ErrRefreshMismatch)
}

func TestConcurrentLoginsOneActiveSession(t *testing.T) {
	mgr, sessions := newTestManager(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Login(ctx, "alice", "s3cret", "10.0.0.1", "cli", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sessions.mu.Lock()
	defer sessions.mu.Unlock()
	assert.Len(t, sessions.active, 1)
	assert.Equal(t, int64(16), sessions.active[1].Traffic)
}

func TestRefreshRotatesPair(t *testing.T) {
	mgr, sessions := newTestManager(t)
	ctx := context.Background()

	res, err := mgr.Login(ctx, "alice", "s3cret", "", "", 0)
	require.NoError(t, err)

	pair, err := mgr.Refresh(ctx, 1, res.Tokens.Refresh.Token)
	require.NoError(t, err)
	assert.NotEqual(t, res.Tokens.Refresh.Token, pair.Refresh.Token)

	sess, err := sessions.GetActive(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, pair.Refresh.Token, sess.RefreshToken)

	claims, err := utils.DecodeToken(mgr.Cfg.JWTSecret, pair.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestRefreshWithEmptyPresentedUsesStored(t *testing.T) {
	// Pure API clients without the cookie refresh on the stored token alone.
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Login(ctx, "alice", "s3cret", "", "", 0)
	require.NoError(t, err)

	_, err = mgr.Refresh(ctx, 1, "")
	assert.NoError(t, err)
}

func TestRefreshNoSession(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.Refresh(context.Background(), 1, "anything")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRefreshExpiredStoredTokenClosesSession(t *testing.T) {
	mgr, sessions := newTestManager(t)
	ctx := context.Background()

	expired, err := utils.NewRefreshToken(mgr.Cfg.JWTSecret, 1, "alice", model.RoleUser, -1)
	require.NoError(t, err)
	_, err = sessions.Upsert(ctx, 1, expired.Token, "", "", 0)
	require.NoError(t, err)

	_, err = mgr.Refresh(ctx, 1, expired.Token)
	assert.ErrorIs(t, err, ErrReauthRequired)

	_, err = sessions.GetActive(ctx, 1)
	assert.Error(t, err)
}

func TestLogoutIdempotent(t *testing.T) {
	mgr, sessions := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Login(ctx, "alice", "s3cret", "", "", 0)
	require.NoError(t, err)

	require.NoError(t, mgr.Logout(ctx, 1))
	_, err = sessions.GetActive(ctx, 1)
	assert.Error(t, err)

	// Second logout, and logout for a user with no session, both succeed.
	assert.NoError(t, mgr.Logout(ctx, 1))
	assert.NoError(t, mgr.Logout(ctx, 99))
}
