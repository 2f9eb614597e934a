package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/go-identity/sso-broker/pkg/broker"
	"github.com/go-identity/sso-broker/pkg/core"
)

// sessionCookies collects the broker session cookie jar from the request.
func sessionCookies(c *gin.Context) map[string]string {
	jar := make(map[string]string)
	for _, name := range []string{broker.CookieAccessToken, broker.CookieIDToken, broker.CookieRefreshToken} {
		if value, err := c.Cookie(name); err == nil {
			jar[name] = value
		}
	}
	return jar
}

// setAuthCookies writes the session cookies of a freshly issued token set.
// The refresh token outlives the others, so it gets its own max age.
func setAuthCookies(c *gin.Context, tokens core.TokenSet, refreshMaxAge int) {
	// Allow plain-HTTP cookies only for local testing.
	secure := !strings.HasPrefix(c.Request.Host, "localhost")
	c.SetSameSite(http.SameSiteStrictMode)

	maxAge := int(tokens.ExpiresIn)
	if tokens.AccessToken != "" {
		c.SetCookie(broker.CookieAccessToken, tokens.AccessToken, maxAge, "/", "", secure, false)
	}
	if tokens.IDToken != "" {
		c.SetCookie(broker.CookieIDToken, tokens.IDToken, maxAge, "/", "", secure, false)
	}
	if tokens.RefreshToken != "" {
		c.SetCookie(broker.CookieRefreshToken, tokens.RefreshToken, refreshMaxAge, "/", "", secure, false)
	}
}
