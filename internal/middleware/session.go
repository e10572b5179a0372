package middleware

import (
	"net/http" // HTTP status codes

	"discord_polls/internal/domain"
	"discord_polls/internal/session"

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// Context keys
const (
	sessionKey  = "session"
	identityKey = "identity"
)

// SessionMiddleware loads the visitor's session, refreshes its cookie and
// exposes the logged-in identity, if any, on the request context. A fresh
// session gets its cookie only once SaveSession stores it.
func SessionMiddleware(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, _ := c.Cookie(session.CookieName) // Missing cookie means a new visitor
		sess, err := store.Load(c.Request.Context(), cookie)
		if err != nil {
			logrus.WithError(err).Error("Failed to load session")
			c.HTML(http.StatusInternalServerError, "error.html", gin.H{"message": "Something went wrong. Try again later."})
			c.Abort()
			return
		}

		if !sess.IsNew() {
			// Slide the cookie expiry along with the stored data
			if err := issueCookie(c, store, sess); err != nil {
				logrus.WithError(err).Error("Failed to sign session cookie")
				c.HTML(http.StatusInternalServerError, "error.html", gin.H{"message": "Something went wrong. Try again later."})
				c.Abort()
				return
			}
		}

		c.Set(sessionKey, sess) // Store session in context
		if id, ok := sess.Identity(); ok {
			c.Set(identityKey, id) // Store identity in context
		}
		c.Next() // Proceed to the next handler
	}
}

// SaveSession stores the request's session and, the first time, issues
// the cookie pointing at it. Call it before writing the response body.
func SaveSession(c *gin.Context, store *session.Store) error {
	sess := CurrentSession(c)
	wasNew := sess.IsNew()

	if err := store.Save(c.Request.Context(), sess); err != nil {
		return err
	}
	if wasNew {
		return issueCookie(c, store, sess)
	}
	return nil
}

// ClearSessionCookie tells the browser to drop the session cookie
func ClearSessionCookie(c *gin.Context, store *session.Store) {
	c.SetCookie(session.CookieName, "", -1, "/", "", store.Secure(), true)
}

func issueCookie(c *gin.Context, store *session.Store, sess *session.Session) error {
	token, err := store.Token(sess) // Cookie value for this session
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, token, int(store.TTL().Seconds()), "/", "", store.Secure(), true)
	return nil
}

// CurrentSession returns the session loaded by SessionMiddleware
func CurrentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

// CurrentIdentity returns the logged-in identity of the request
func CurrentIdentity(c *gin.Context) (*domain.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	id, ok := v.(*domain.Identity)
	if !ok || id == nil {
		return nil, false // Logged out during this request
	}
	return id, true
}

// SetIdentity updates the request's identity after a login or logout.
// nil makes the request anonymous.
func SetIdentity(c *gin.Context, id *domain.Identity) {
	c.Set(identityKey, id)
}
