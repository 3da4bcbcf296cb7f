package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/expeditor/backoffice/internal/config"
)

// RefreshCookieName is the cookie carrying the refresh token. It is
// HttpOnly so scripts never see it; the browser sends it back on every
// request and the auth middleware uses it for transparent refresh.
const RefreshCookieName = "refresh_token"

func sameSite(mode string) http.SameSite {
	switch mode {
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteStrictMode
	}
}

// SetRefreshCookie attaches the refresh token to the response. Max-Age is
// derived from the token's own expiry so cookie and token die together.
func SetRefreshCookie(c echo.Context, cfg config.Config, token string, exp time.Time) {
	maxAge := int(time.Until(exp) / time.Second)
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: sameSite(cfg.CookieSameSite),
	})
}

// ClearRefreshCookie expires the refresh cookie immediately.
func ClearRefreshCookie(c echo.Context, cfg config.Config) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: sameSite(cfg.CookieSameSite),
	})
}
