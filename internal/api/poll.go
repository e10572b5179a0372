package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Timestamps

	"discord_polls/internal/discord"
	"discord_polls/internal/domain"
	"discord_polls/internal/middleware"
	"discord_polls/internal/repository"
	"discord_polls/internal/session"

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// PollURI is the :id path parameter of poll routes
type PollURI struct {
	ID uint `uri:"id" binding:"required,gt=0"` // Poll id
}

// CreatePollRequest is the submitted poll form
type CreatePollRequest struct {
	Title   string `form:"title" binding:"required"` // Poll question
	Option1 string `form:"option1"`                   // Up to four answers, blanks are skipped
	Option2 string `form:"option2"`
	Option3 string `form:"option3"`
	Option4 string `form:"option4"`
}

// Options lists the option fields in form order
func (r CreatePollRequest) Options() []string {
	return []string{r.Option1, r.Option2, r.Option3, r.Option4}
}

// PollHandler shows a poll's voting form and makes it the session's
// current poll
func PollHandler(repo *repository.Repository, sessions *session.Store, dc *discord.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var uri PollURI
		if err := c.ShouldBindUri(&uri); err != nil {
			renderError(c, http.StatusNotFound, "Poll not found.")
			return
		}
		pollID := uri.ID

		poll, err := repo.Poll(ctx, pollID)
		if errors.Is(err, repository.ErrPollNotFound) {
			renderError(c, http.StatusNotFound, "Poll not found.")
			return
		}
		if err != nil {
			internalError(c, err, "Failed to load poll", logrus.Fields{"poll_id": pollID})
			return
		}

		// Remember the poll so login can bring the visitor back here
		sess := middleware.CurrentSession(c)
		if sess.CurrentPollID != poll.ID {
			sess.CurrentPollID = poll.ID
			if err := middleware.SaveSession(c, sessions); err != nil {
				internalError(c, err, "Failed to save session", logrus.Fields{"poll_id": pollID})
				return
			}
		}

		discordURI, err := loginURL(c, sessions, dc)
		if err != nil {
			internalError(c, err, "Failed to save session", nil)
			return
		}

		c.HTML(http.StatusOK, "latest.html", page(c, gin.H{
			"title":       poll.Title,
			"page_title":  poll.Title,
			"poll":        poll,
			"poll_id":     poll.ID,
			"discord_uri": discordURI,
		}))
	}
}

// CreatePollFormHandler renders an empty poll form
func CreatePollFormHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "create_poll.html", page(c, gin.H{
			"page_title": "Create a poll",
			"options":    make([]string, domain.MaxOptions), // One input per option slot
		}))
	}
}

// CreatePollHandler creates a poll from the form and redirects to it
func CreatePollHandler(repo *repository.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := middleware.CurrentIdentity(c) // Guaranteed by RequireIdentity

		var req CreatePollRequest
		if err := c.ShouldBind(&req); err != nil {
			invalidPollForm(c, req)
			return
		}

		poll, err := repo.CreatePoll(c.Request.Context(), *id, req.Title, req.Options())
		if errors.Is(err, repository.ErrInvalidPoll) {
			invalidPollForm(c, req)
			return
		}
		if err != nil {
			internalError(c, err, "Failed to create poll", logrus.Fields{"username": id.Username})
			return
		}

		// Log poll creation
		logrus.WithFields(logrus.Fields{
			"poll_id":       poll.ID,
			"owner":         id.Username,
			"discriminator": id.Discriminator,
			"options":       len(poll.Options),
			"timestamp":     time.Now().Format(time.RFC3339),
		}).Info("Poll created")

		c.Redirect(http.StatusFound, "/poll/"+strconv.FormatUint(uint64(poll.ID), 10))
	}
}

// invalidPollForm re-renders the poll form with what the user typed
func invalidPollForm(c *gin.Context, req CreatePollRequest) {
	c.HTML(http.StatusBadRequest, "create_poll.html", page(c, gin.H{
		"page_title": "Create a poll",
		"error":      "A poll needs a title and at least one option.",
		"title":      req.Title,
		"options":    req.Options(),
	}))
}

// ManagePollsHandler lists the polls owned by the logged-in user
func ManagePollsHandler(repo *repository.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := middleware.CurrentIdentity(c)

		polls, err := repo.PollsByOwner(c.Request.Context(), *id)
		if err != nil {
			internalError(c, err, "Failed to list polls", logrus.Fields{"username": id.Username})
			return
		}

		c.HTML(http.StatusOK, "manage_polls.html", page(c, gin.H{
			"page_title": "My polls",
			"polls":      polls,
		}))
	}
}
