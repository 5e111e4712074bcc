package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookieName is the cookie the front end carries the session token in
const SessionCookieName = "jwt"

// SessionCookieManager wraps a session token into an HTTP-only cookie and
// reverses that on logout
type SessionCookieManager struct {
	maxAge int
	secure bool
}

// NewSessionCookieManager creates a cookie manager whose max-age matches the
// session token ttl; secure is on in production
func NewSessionCookieManager(ttl time.Duration, secure bool) *SessionCookieManager {
	return &SessionCookieManager{
		maxAge: int(ttl.Seconds()),
		secure: secure,
	}
}

// Attach sets the session cookie on the response
func (m *SessionCookieManager) Attach(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, m.maxAge, "/", "", m.secure, true)
}

// Clear removes the session cookie. Clearing an absent cookie is not an error.
func (m *SessionCookieManager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", m.secure, true)
}

// Token reads the session token from the request cookie
func (m *SessionCookieManager) Token(c *gin.Context) (string, error) {
	return c.Cookie(SessionCookieName)
}
