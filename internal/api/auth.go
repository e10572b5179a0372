package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Timestamps

	"discord_polls/internal/discord"
	"discord_polls/internal/middleware"
	"discord_polls/internal/repository"
	"discord_polls/internal/session"

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// HomeHandler renders the landing page with the Discord login link
func HomeHandler(sessions *session.Store, dc *discord.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		uri, err := loginURL(c, sessions, dc)
		if err != nil {
			internalError(c, err, "Failed to save session", nil)
			return
		}
		c.HTML(http.StatusOK, "home.html", page(c, gin.H{"discord_uri": uri}))
	}
}

// AuthorizeHandler completes the Discord login: it trades the code for the
// user's profile, stores the identity in the session and sends the user
// back to the poll they were looking at, or to the latest poll
func AuthorizeHandler(repo *repository.Repository, sessions *session.Store, dc *discord.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sess := middleware.CurrentSession(c)

		code := c.Query("code")
		if code == "" {
			// Discord sends ?error=access_denied when the user cancels
			renderError(c, http.StatusBadRequest, "Discord did not send an authorization code.")
			return
		}
		if sess.OAuthState == "" || c.Query("state") != sess.OAuthState {
			renderError(c, http.StatusBadRequest, "This login link has expired. Please log in again.")
			return
		}

		user, err := dc.Authenticate(ctx, code)
		if err != nil {
			logrus.WithError(err).Warn("Discord login failed")
			renderError(c, http.StatusBadGateway, "Could not log in with Discord. Please try again.")
			return
		}

		id := user.Identity()
		sess.Login(id)
		if err := middleware.SaveSession(c, sessions); err != nil {
			internalError(c, err, "Failed to save session", logrus.Fields{"username": id.Username})
			return
		}
		middleware.SetIdentity(c, &id)

		logrus.WithFields(logrus.Fields{
			"username":      id.Username,
			"discriminator": id.Discriminator,
			"discord_id":    user.ID,
			"timestamp":     time.Now().Format(time.RFC3339),
		}).Info("User logged in")

		// Back to the poll the visitor was on before logging in
		if sess.CurrentPollID != 0 {
			c.Redirect(http.StatusFound, "/poll/"+strconv.FormatUint(uint64(sess.CurrentPollID), 10))
			return
		}

		latest, err := repo.LatestPoll(ctx)
		if errors.Is(err, repository.ErrPollNotFound) {
			c.Redirect(http.StatusFound, "/create_poll") // Nothing to vote on yet
			return
		}
		if err != nil {
			internalError(c, err, "Failed to load latest poll", nil)
			return
		}

		c.HTML(http.StatusOK, "latest.html", page(c, gin.H{
			"title":      latest.Title,
			"page_title": latest.Title,
			"poll":       latest,
			"poll_id":    latest.ID,
		}))
	}
}

// LogoutHandler forgets the session and returns home
func LogoutHandler(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := middleware.CurrentSession(c)
		id, _ := middleware.CurrentIdentity(c)

		if err := sessions.Destroy(c.Request.Context(), sess); err != nil {
			internalError(c, err, "Failed to destroy session", nil)
			return
		}
		middleware.ClearSessionCookie(c, sessions) // Drop the cookie
		middleware.SetIdentity(c, nil)

		if id != nil {
			logrus.WithFields(logrus.Fields{
				"username":      id.Username,
				"discriminator": id.Discriminator,
			}).Info("User logged out")
		}
		c.Redirect(http.StatusFound, "/")
	}
}
