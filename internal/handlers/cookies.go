package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bajar/internal/config"
)

// setRefreshCookie delivers the refresh token as an HTTP-only cookie.
// In development the cookie rides plain HTTP with SameSite=Lax; every
// other environment gets Secure + SameSite=None so the cross-origin
// storefront can send it.
func setRefreshCookie(c *gin.Context, cfg config.Config, value string) {
	if cfg.IsDevelopment() {
		c.SetSameSite(http.SameSiteLaxMode)
	} else {
		c.SetSameSite(http.SameSiteNoneMode)
	}
	c.SetCookie(
		cfg.Session.CookieName,
		value,
		int(cfg.Session.RefreshTTL.Seconds()),
		"/",
		"",
		!cfg.IsDevelopment(),
		true,
	)
}

// clearRefreshCookie expires the cookie immediately. Called on logout
// regardless of whether a stored grant existed.
func clearRefreshCookie(c *gin.Context, cfg config.Config) {
	if cfg.IsDevelopment() {
		c.SetSameSite(http.SameSiteLaxMode)
	} else {
		c.SetSameSite(http.SameSiteNoneMode)
	}
	c.SetCookie(cfg.Session.CookieName, "", -1, "/", "", !cfg.IsDevelopment(), true)
}
