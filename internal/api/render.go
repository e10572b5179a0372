package api

import (
	"net/http" // HTTP status codes

	"discord_polls/internal/discord"
	"discord_polls/internal/middleware"
	"discord_polls/internal/session"

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

const internalErrorMessage = "Something went wrong. Try again later."

// page adds what the layout needs to a template's data
func page(c *gin.Context, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	if id, ok := middleware.CurrentIdentity(c); ok {
		data["identity"] = id // Shown in the navigation bar
	}
	return data
}

// renderError renders the error page with a message safe to show users
func renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", page(c, gin.H{"message": message, "page_title": "Error"}))
}

// internalError logs err with fields and renders a generic 500 page
func internalError(c *gin.Context, err error, msg string, fields logrus.Fields) {
	logrus.WithFields(fields).WithError(err).Error(msg)
	renderError(c, http.StatusInternalServerError, internalErrorMessage)
}

// loginURL returns the Discord authorize link for anonymous visitors,
// remembering its state in their session. Logged-in visitors get "".
func loginURL(c *gin.Context, sessions *session.Store, dc *discord.Client) (string, error) {
	if _, ok := middleware.CurrentIdentity(c); ok {
		return "", nil
	}
	sess := middleware.CurrentSession(c)
	if sess.OAuthState == "" {
		sess.OAuthState = session.NewState()
		if err := middleware.SaveSession(c, sessions); err != nil {
			return "", err
		}
	}
	return dc.AuthURL(sess.OAuthState), nil
}
