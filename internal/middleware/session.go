package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/akylbek/payment-system/checkout-gateway/internal/session"
)

const (
	SessionCookie = "checkout_session"
	sessionKey    = "checkout_session"
)

// Session loads the customer's checkout session from its cookie, starting
// a new one when the cookie is missing or malformed.
//
// The gateway returns the customer with a cross-site POST, so the cookie is
// issued with SameSite=None on secure connections. Without that the browser
// drops it on the way back and the callback lands in an empty session.
func Session(store *session.Store, ttlSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookie)
		if err == nil {
			_, err = uuid.Parse(id)
		}
		if err != nil {
			id = uuid.New().String()
		}

		secure := isSecure(c.Request)
		if secure {
			c.SetSameSite(http.SameSiteNoneMode)
		} else {
			c.SetSameSite(http.SameSiteLaxMode)
		}
		c.SetCookie(SessionCookie, id, ttlSeconds, "/", "", secure, true)

		c.Set(sessionKey, store.Get(id))
		c.Next()
	}
}

// SessionFrom returns the session attached by Session.
func SessionFrom(c *gin.Context) *session.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(*session.Session); ok {
			return sess
		}
	}
	return nil
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
