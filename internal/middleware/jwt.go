package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/expeditor/backoffice/internal/auth"
    "github.com/expeditor/backoffice/internal/utils"
)

// Context keys under which JWTAuth stores the resolved identity. Handlers
// read them back via c.Get().
const (
    CtxUserID   = "user_id"
    CtxUsername = "username"
    CtxRole     = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's identity claims into the request context.
//
// An expired access token does not fail the request outright: when the
// refresh_token cookie holds a token matching the user's active session,
// the middleware rotates the pair, surfaces the new access token in the
// Authorization response header, resets the cookie and lets the request
// through as if nothing happened. Only a failed refresh turns into a 401,
// with the cookie cleared so the client knows to re-authenticate.
//
// After the handler runs, the request and response byte counts are added
// to the active session's traffic counter. Accounting is best effort and
// never fails the request.
func JWTAuth(mgr *auth.Manager) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            header := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(header, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(header, "Bearer ")

            claims, err := utils.DecodeToken(mgr.Cfg.JWTSecret, raw)
            switch {
            case err == nil:
                setIdentity(c, claims)
                if err := next(c); err != nil {
                    return err
                }
                accountTraffic(c, mgr, "")
                return nil

            case errors.Is(err, utils.ErrTokenExpired):
                // Transparent refresh: identify the owner from the expired
                // token (signature still has to check out), then try the
                // stored refresh token.
                expired, derr := utils.DecodeTokenAllowExpired(mgr.Cfg.JWTSecret, raw)
                if derr != nil {
                    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
                }
                presented := ""
                if cookie, cerr := c.Cookie(RefreshCookieName); cerr == nil {
                    presented = cookie.Value
                }
                pair, rerr := mgr.Refresh(c.Request().Context(), expired.UserID, presented)
                if rerr != nil {
                    ClearRefreshCookie(c, mgr.Cfg)
                    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "re-authentication required"})
                }

                c.Response().Header().Set("Authorization", "Bearer "+pair.Access.Token)
                SetRefreshCookie(c, mgr.Cfg, pair.Refresh.Token, pair.Refresh.Exp)

                fresh, derr := utils.DecodeToken(mgr.Cfg.JWTSecret, pair.Access.Token)
                if derr != nil {
                    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
                }
                setIdentity(c, fresh)
                if err := next(c); err != nil {
                    return err
                }
                accountTraffic(c, mgr, pair.Refresh.Token)
                return nil

            default:
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
        }
    }
}

func setIdentity(c echo.Context, claims utils.Claims) {
    c.Set(CtxUserID, claims.UserID)
    c.Set(CtxUsername, claims.Username)
    c.Set(CtxRole, claims.Role)
}

// accountTraffic adds request+response bytes to the session found by its
// refresh token. rotated carries the fresh token after a transparent
// refresh; otherwise the cookie (or the stored session token) identifies
// the session. Every failure path is a silent no-op.
func accountTraffic(c echo.Context, mgr *auth.Manager, rotated string) {
    delta := c.Response().Size
    if cl := c.Request().ContentLength; cl > 0 {
        delta += cl
    }
    if delta <= 0 {
        return
    }

    token := rotated
    if token == "" {
        if cookie, err := c.Cookie(RefreshCookieName); err == nil {
            token = cookie.Value
        }
    }
    ctx := c.Request().Context()
    if token == "" {
        // No cookie client (e.g. pure API callers): fall back to the
        // active session's stored token.
        uid, ok := c.Get(CtxUserID).(uint64)
        if !ok {
            return
        }
        sess, err := mgr.Sessions.GetActive(ctx, uid)
        if err != nil {
            return
        }
        token = sess.RefreshToken
    }
    _ = mgr.Sessions.AddTraffic(ctx, token, delta)
}
