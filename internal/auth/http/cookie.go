package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookie writes and reads the session cookie. The cookie is always HttpOnly and
// SameSite=Strict; Secure is set in production.
type SessionCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// Read returns the cookie token, or "" when absent.
func (s SessionCookie) Read(c *gin.Context) string {
	token, err := c.Cookie(s.Name)
	if err != nil {
		return ""
	}
	return token
}

// Set writes token with a max age of one TTL.
func (s SessionCookie) Set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(s.Name, token, int(s.TTL.Seconds()), "/", "", s.Secure, true)
}

// Clear expires the cookie in the browser.
func (s SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(s.Name, "", -1, "/", "", s.Secure, true)
}
