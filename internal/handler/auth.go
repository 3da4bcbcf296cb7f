package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/expeditor/backoffice/internal/auth"
	"github.com/expeditor/backoffice/internal/middleware"
	"github.com/expeditor/backoffice/internal/model"
	"github.com/expeditor/backoffice/internal/repository"
	"github.com/expeditor/backoffice/internal/utils"
)

// AuthHandler bundles dependencies for the auth and profile endpoints.
type AuthHandler struct {
	Mgr   *auth.Manager
	Users *repository.UserRepo
}

func NewAuthHandler(mgr *auth.Manager, users *repository.UserRepo) *AuthHandler {
	return &AuthHandler{Mgr: mgr, Users: users}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type profileResp struct {
	ID         uint64 `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Company    string `json:"company"`
	RoleID     uint64 `json:"role_id"`
	IsActive   bool   `json:"is_active"`
	IsVerified bool   `json:"is_verified"`
}

type profilePatchReq struct {
	Username    *string `json:"username"`
	Email       *string `json:"email"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	Company     *string `json:"company"`
	OldPassword string  `json:"old_password"`
	NewPassword string  `json:"new_password"`
}

type sessionResp struct {
	UserID       uint64     `json:"user_id"`
	SessionStart time.Time  `json:"session_start"`
	SessionEnd   *time.Time `json:"session_end"`
	Traffic      int64      `json:"traffic"`
	IPAddress    string     `json:"ip_address"`
	DeviceInfo   string     `json:"device_info"`
}

func toProfile(u model.User) profileResp {
	return profileResp{
		ID: u.ID, Username: u.Username, Email: u.Email,
		FirstName: u.FirstName, LastName: u.LastName,
		Phone: u.Phone, Address: u.Address, Company: u.Company,
		RoleID: u.RoleID, IsActive: u.IsActive, IsVerified: u.IsVerified,
	}
}

// Login: verify credentials, open (or refresh in place) the single session
// and hand back a token pair. The refresh token also travels in an HttpOnly
// cookie so browser clients get transparent refresh for free.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	traffic := c.Request().ContentLength
	if traffic < 0 {
		traffic = 0
	}
	res, err := h.Mgr.Login(ctx, req.Username, req.Password, c.RealIP(), c.Request().UserAgent(), traffic)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, auth.ErrAccountDisabled):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account disabled"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	middleware.SetRefreshCookie(c, h.Mgr.Cfg, res.Tokens.Refresh.Token, res.Tokens.Refresh.Exp)
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  res.Tokens.Access.Token,
		"token_type":    "bearer",
		"expires":       res.Tokens.Access.Exp,
		"refresh_token": res.Tokens.Refresh.Token,
		"user_id":       res.UserID,
		"username":      res.Username,
		"role":          res.Role,
	})
}

// Refresh: explicit token exchange for API clients that do not rely on the
// middleware's transparent path. The presented token identifies its owner
// (the signature must verify even when expired) and must match the stored
// session copy; on success the pair is rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	presented := strings.TrimSpace(req.RefreshToken)
	if presented == "" {
		if cookie, err := c.Cookie(middleware.RefreshCookieName); err == nil {
			presented = cookie.Value
		}
	}
	if presented == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	claims, err := utils.DecodeTokenAllowExpired(h.Mgr.Cfg.JWTSecret, presented)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Mgr.Refresh(ctx, claims.UserID, presented)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrRefreshMismatch) ||
			errors.Is(err, auth.ErrReauthRequired) {
			middleware.ClearRefreshCookie(c, h.Mgr.Cfg)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "re-authentication required"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}

	middleware.SetRefreshCookie(c, h.Mgr.Cfg, pair.Refresh.Token, pair.Refresh.Exp)
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  pair.Access.Token,
		"token_type":    "bearer",
		"expires":       pair.Access.Exp,
		"refresh_token": pair.Refresh.Token,
	})
}

// Logout closes the caller's session. Idempotent: a second logout still
// reports success.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, ok := c.Get(middleware.CtxUserID).(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Mgr.Logout(ctx, uid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	middleware.ClearRefreshCookie(c, h.Mgr.Cfg)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Profile returns the caller's own user record.
func (h *AuthHandler) Profile(c echo.Context) error {
	uid, ok := c.Get(middleware.CtxUserID).(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, toProfile(u))
}

// UpdateProfile applies a partial update to the caller's record. A password
// change requires the current password; role and activity flags can only be
// touched through the admin user endpoints.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	uid, ok := c.Get(middleware.CtxUserID).(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req profilePatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	patch := repository.UserPatch{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
		Company:   req.Company,
	}
	if req.NewPassword != "" {
		u, err := h.Users.GetByID(ctx, uid)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
		}
		if !utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "wrong current password"})
		}
		hash, err := utils.HashPassword(req.NewPassword, h.Mgr.Cfg.BcryptCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
		}
		patch.PasswordHash = &hash
	}

	if err := h.Users.Update(ctx, uid, patch); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username or email already in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, toProfile(u))
}

// Session exposes the caller's active session row, traffic counter included.
func (h *AuthHandler) Session(c echo.Context) error {
	uid, ok := c.Get(middleware.CtxUserID).(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Mgr.Sessions.GetActive(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active session"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load session failed"})
	}
	return c.JSON(http.StatusOK, sessionResp{
		UserID:       s.UserID,
		SessionStart: s.SessionStart,
		SessionEnd:   s.SessionEnd,
		Traffic:      s.Traffic,
		IPAddress:    s.IPAddress,
		DeviceInfo:   s.DeviceInfo,
	})
}
