package auth

import (
	"context"

	"github.com/expeditor/backoffice/internal/config"
	"github.com/expeditor/backoffice/internal/model"
	"github.com/expeditor/backoffice/internal/utils"
)

// UserStore is the slice of the user repository the manager needs.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// RoleStore resolves role ids to names for token claims.
type RoleStore interface {
	GetByID(ctx context.Context, id uint64) (model.Role, error)
}

// SessionStore is the persistence contract for session rows. Upsert must be
// atomic per user: two concurrent logins for the same user may not end up
// with two active rows. The SQL implementation serializes them with a
// SELECT ... FOR UPDATE inside one transaction.
type SessionStore interface {
	GetActive(ctx context.Context, userID uint64) (model.Session, error)
	Upsert(ctx context.Context, userID uint64, refreshToken, ip, userAgent string, trafficDelta int64) (model.Session, error)
	Close(ctx context.Context, userID uint64) error
	AddTraffic(ctx context.Context, refreshToken string, delta int64) error
}

// Manager drives the per-user session state machine:
//
//	LoggedOut -> (Login) -> Active -> (Logout | refresh failure | role cascade) -> LoggedOut
//
// Login updates the session row in place on repeated logins, so a user has
// at most one active session at any time.
type Manager struct {
	Cfg      config.Config
	Users    UserStore
	Roles    RoleStore
	Sessions SessionStore
}

func NewManager(cfg config.Config, users UserStore, roles RoleStore, sessions SessionStore) *Manager {
	return &Manager{Cfg: cfg, Users: users, Roles: roles, Sessions: sessions}
}

// TokenPair is what a successful login or refresh produces. RefreshToken is
// empty on refresh paths that did not rotate (currently none do).
type TokenPair struct {
	Access  utils.SignedToken
	Refresh utils.SignedToken
}

// LoginResult carries the minted tokens plus the identity summary the login
// response exposes.
type LoginResult struct {
	Tokens   TokenPair
	UserID   uint64
	Username string
	Role     string
}

// Verify checks a username/password pair against the store. It is a pure
// read: no session is touched. Failures are ErrInvalidCredentials for an
// unknown name or wrong password and ErrAccountDisabled for inactive
// accounts.
func (m *Manager) Verify(ctx context.Context, username, password string) (model.User, error) {
	u, err := m.Users.GetByUsername(ctx, username)
	if err != nil {
		return model.User{}, ErrInvalidCredentials
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return model.User{}, ErrAccountDisabled
	}
	return u, nil
}

// Login verifies credentials, mints an access+refresh pair and upserts the
// session row. On a repeated login the existing active row is refreshed in
// place (new token, reset start, cleared end marker); a failed verification
// leaves the store untouched. traffic is the request's byte size and seeds
// the session's traffic counter.
func (m *Manager) Login(ctx context.Context, username, password, ip, userAgent string, traffic int64) (LoginResult, error) {
	u, err := m.Verify(ctx, username, password)
	if err != nil {
		return LoginResult{}, err
	}

	roleName := m.roleName(ctx, u.RoleID)

	access, err := utils.NewAccessToken(m.Cfg.JWTSecret, u.ID, u.Username, roleName, m.Cfg.AccessTTLMin)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, err := utils.NewRefreshToken(m.Cfg.JWTSecret, u.ID, u.Username, roleName, m.Cfg.RefreshTTLMin)
	if err != nil {
		return LoginResult{}, err
	}

	if _, err := m.Sessions.Upsert(ctx, u.ID, refresh.Token, ip, userAgent, traffic); err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		Tokens:   TokenPair{Access: access, Refresh: refresh},
		UserID:   u.ID,
		Username: u.Username,
		Role:     roleName,
	}, nil
}

// Refresh reissues an access token for a user whose access token has
// expired. The stored refresh token on the active session is the source of
// truth: when presented is non-empty it must match the stored copy, and the
// stored copy must itself decode cleanly. An expired or invalid stored
// token closes the session and demands re-authentication. On success the
// refresh token is rotated and the new one replaces the stored copy.
func (m *Manager) Refresh(ctx context.Context, userID uint64, presented string) (TokenPair, error) {
	sess, err := m.Sessions.GetActive(ctx, userID)
	if err != nil {
		return TokenPair{}, ErrSessionNotFound
	}
	if presented != "" && presented != sess.RefreshToken {
		return TokenPair{}, ErrRefreshMismatch
	}

	claims, err := utils.DecodeToken(m.Cfg.JWTSecret, sess.RefreshToken)
	if err != nil {
		// Stored refresh token is expired or bogus: the session is over.
		_ = m.Sessions.Close(ctx, userID)
		return TokenPair{}, ErrReauthRequired
	}
	if claims.UserID != userID {
		_ = m.Sessions.Close(ctx, userID)
		return TokenPair{}, ErrReauthRequired
	}

	access, err := utils.NewAccessToken(m.Cfg.JWTSecret, claims.UserID, claims.Username, claims.Role, m.Cfg.AccessTTLMin)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := utils.NewRefreshToken(m.Cfg.JWTSecret, claims.UserID, claims.Username, claims.Role, m.Cfg.RefreshTTLMin)
	if err != nil {
		return TokenPair{}, err
	}
	if _, err := m.Sessions.Upsert(ctx, userID, refresh.Token, sess.IPAddress, sess.DeviceInfo, 0); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Logout closes the user's active session. It is idempotent and always
// succeeds: logging out twice, or with no session at all, is not an error.
// Note the residual-validity window: an already-issued access token stays
// usable until its natural expiry, only refresh is blocked from here on.
func (m *Manager) Logout(ctx context.Context, userID uint64) error {
	return m.Sessions.Close(ctx, userID)
}

func (m *Manager) roleName(ctx context.Context, roleID uint64) string {
	if roleID == 0 {
		return model.RoleGuest
	}
	role, err := m.Roles.GetByID(ctx, roleID)
	if err != nil {
		return model.RoleGuest
	}
	return role.Name
}
