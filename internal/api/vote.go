package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"time"     // Timestamps

	"discord_polls/internal/middleware"
	"discord_polls/internal/repository"
	"discord_polls/internal/utils"

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// VoteRequest is the submitted voting form
type VoteRequest struct {
	Vote uint `form:"vote" binding:"required,gt=0"` // Chosen option id
}

// VoteHandler records the logged-in user's vote for the option posted in
// the "vote" form field
func VoteHandler(repo *repository.Repository, rdb redis.Cmdable, allowRepeat bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, _ := middleware.CurrentIdentity(c)

		var uri PollURI
		if err := c.ShouldBindUri(&uri); err != nil {
			renderError(c, http.StatusNotFound, "Poll not found.")
			return
		}
		pollID := uri.ID

		var req VoteRequest
		if err := c.ShouldBind(&req); err != nil {
			renderError(c, http.StatusBadRequest, "Pick an option before voting.")
			return
		}

		option, err := repo.CastVote(ctx, *id, pollID, req.Vote, allowRepeat)
		switch {
		case errors.Is(err, repository.ErrPollNotFound):
			renderError(c, http.StatusNotFound, "Poll not found.")
			return
		case errors.Is(err, repository.ErrOptionNotFound), errors.Is(err, repository.ErrOptionNotInPoll):
			renderError(c, http.StatusBadRequest, "That option is not part of this poll.")
			return
		case errors.Is(err, repository.ErrAlreadyVoted):
			renderError(c, http.StatusConflict, "You have already voted in this poll.")
			return
		case err != nil:
			internalError(c, err, "Vote failed", logrus.Fields{"poll_id": pollID, "option_id": req.Vote})
			return
		}

		// Tallies changed, retire the cached results
		if err := utils.BumpCacheVersion(ctx, rdb, utils.ResultsVersionKey(pollID)); err != nil {
			logrus.WithError(err).WithField("poll_id", pollID).Warn("Failed to invalidate results cache")
		}

		// Log the vote
		logrus.WithFields(logrus.Fields{
			"poll_id":       pollID,
			"option_id":     option.ID,
			"username":      id.Username,
			"discriminator": id.Discriminator,
			"timestamp":     time.Now().Format(time.RFC3339),
		}).Info("Vote cast")

		c.HTML(http.StatusOK, "vote_success.html", page(c, gin.H{
			"page_title": "Thanks for voting",
			"option":     option.Text,
			"poll_id":    pollID,
		}))
	}
}
