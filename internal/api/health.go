package api

import (
	"net/http" // HTTP status codes

	"discord_polls/internal/repository"

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// HealthHandler reports whether the database and Redis are reachable
func HealthHandler(repo *repository.Repository, rdb redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if err := repo.Ping(ctx); err != nil {
			logrus.WithError(err).Error("Health check: database unreachable")
			c.String(http.StatusServiceUnavailable, "database unavailable")
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).Error("Health check: redis unreachable")
			c.String(http.StatusServiceUnavailable, "redis unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	}
}
