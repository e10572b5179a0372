package api

import (
	"context"  // Context for Redis operations
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"time"     // Time durations

	"discord_polls/internal/discord"
	"discord_polls/internal/domain"
	"discord_polls/internal/middleware"
	"discord_polls/internal/repository"
	"discord_polls/internal/session"
	"discord_polls/internal/utils"

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// OptionURI is the :option_id path parameter
type OptionURI struct {
	ID uint `uri:"option_id" binding:"required,gt=0"` // Option id
}

// ViewPollHandler renders a poll's tallies. The poll owner also gets links
// to pick a winner per option.
func ViewPollHandler(
	repo *repository.Repository, rdb redis.Cmdable, ttl time.Duration, sessions *session.Store, dc *discord.Client,
) gin.HandlerFunc {
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

		tallies, err := cachedResults(ctx, repo, rdb, ttl, pollID)
		if err != nil {
			internalError(c, err, "Failed to tally poll", logrus.Fields{"poll_id": pollID})
			return
		}

		ownerViewing := false
		if id, ok := middleware.CurrentIdentity(c); ok {
			ownerViewing = poll.OwnedBy(*id)
		}

		discordURI, err := loginURL(c, sessions, dc)
		if err != nil {
			internalError(c, err, "Failed to save session", nil)
			return
		}

		c.HTML(http.StatusOK, "view_poll.html", page(c, gin.H{
			"page_title":    poll.Title,
			"poll":          poll,
			"votes":         tallies,
			"owner_viewing": ownerViewing,
			"discord_uri":   discordURI,
		}))
	}
}

// cachedResults serves tallies from Redis when possible. Redis failures
// only cost a trip to the database. The cache key carries the poll's
// results version, read before the database, so tallies computed before a
// vote can only land under a version that vote already retired.
func cachedResults(
	ctx context.Context, repo *repository.Repository, rdb redis.Cmdable, ttl time.Duration, pollID uint,
) ([]domain.OptionTally, error) {
	version, err := utils.CacheVersion(ctx, rdb, utils.ResultsVersionKey(pollID))
	if err != nil {
		logrus.WithError(err).WithField("poll_id", pollID).Warn("Results cache unavailable")
		return repo.Results(ctx, pollID)
	}
	cacheKey := utils.ResultsCacheKey(pollID, version)

	var tallies []domain.OptionTally
	found, err := utils.GetCache(ctx, rdb, cacheKey, &tallies)
	if err != nil {
		logrus.WithError(err).WithField("poll_id", pollID).Warn("Results cache unavailable")
	}
	if err == nil && found {
		return tallies, nil
	}

	tallies, err = repo.Results(ctx, pollID)
	if err != nil {
		return nil, err
	}

	// Cache the tallies until the next vote or ttl
	if err := utils.SetCache(ctx, rdb, cacheKey, tallies, ttl); err != nil {
		logrus.WithError(err).WithField("poll_id", pollID).Warn("Failed to cache results")
	}
	return tallies, nil
}

// PickWinnerHandler draws a random voter of an option. Only the poll owner
// may draw.
func PickWinnerHandler(repo *repository.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, _ := middleware.CurrentIdentity(c)

		var uri OptionURI
		if err := c.ShouldBindUri(&uri); err != nil {
			renderError(c, http.StatusNotFound, "Option not found.")
			return
		}
		optionID := uri.ID

		option, poll, err := repo.Option(ctx, optionID)
		if errors.Is(err, repository.ErrOptionNotFound) {
			renderError(c, http.StatusNotFound, "Option not found.")
			return
		}
		if err != nil {
			internalError(c, err, "Failed to load option", logrus.Fields{"option_id": optionID})
			return
		}
		if !poll.OwnedBy(*id) {
			renderError(c, http.StatusForbidden, "Only the poll owner can pick a winner.")
			return
		}

		voters, err := repo.Voters(ctx, optionID)
		if err != nil {
			internalError(c, err, "Failed to list voters", logrus.Fields{"option_id": optionID})
			return
		}

		winner, err := repo.PickWinner(ctx, optionID)
		if errors.Is(err, repository.ErrNoVoters) {
			winner = nil // Rendered as "no winner"
		} else if err != nil {
			internalError(c, err, "Failed to pick winner", logrus.Fields{"option_id": optionID})
			return
		} else {
			logrus.WithFields(logrus.Fields{
				"poll_id":   poll.ID,
				"option_id": optionID,
				"winner":    winner.Voter().String(),
				"voters":    len(voters),
			}).Info("Winner picked")
		}

		c.HTML(http.StatusOK, "winner.html", page(c, gin.H{
			"page_title": "Winner",
			"poll":       poll,
			"option":     option,
			"voters":     voters,
			"winner":     winner,
		}))
	}
}
