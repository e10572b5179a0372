package main

import (
	"context"   // context package is needed for Redis operations
	"errors"    // Error matching
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal notification
	"syscall"   // SIGTERM
	"time"      // Shutdown timeout

	"discord_polls/internal/api"        // Custom package for HTTP handlers
	"discord_polls/internal/config"     // Custom package for configuration
	"discord_polls/internal/db"         // Custom package for database setup
	"discord_polls/internal/discord"    // Custom package for Discord OAuth
	"discord_polls/internal/repository" // Custom package for SQL access
	"discord_polls/internal/session"    // Custom package for sessions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Only used outside production when SESSION_SECRET is unset
const devSessionSecret = "dev-only-session-secret"

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	sessionSecret := cfg.SessionSecret
	if sessionSecret == "" {
		if cfg.IsProd {
			logrus.Fatal("SESSION_SECRET must be set in production")
		}
		logrus.Warn("SESSION_SECRET is not set, using an insecure development secret")
		sessionSecret = devSessionSecret
	}

	// Connect to the database
	gormDB, err := db.Open(cfg.DatabaseURL, db.PoolConfig{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := api.NewRouter(api.Dependencies{
		Repo: repository.NewRepository(gormDB),
		Sessions: session.NewStore(redisClient, session.Options{
			Secret: sessionSecret,
			TTL:    cfg.SessionTTL,
			Secure: cfg.IsProd, // HTTPS-only cookie in production
		}),
		Discord: discord.NewClient(discord.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURL,
			APIBase:      cfg.DiscordAPIBase,
			Timeout:      cfg.DiscordTimeout,
		}),
		Redis:            redisClient,
		ResultsCacheTTL:  cfg.ResultsCacheTTL,
		AllowRepeatVotes: cfg.AllowRepeatVotes,
	})
	if err != nil {
		logrus.Fatalf("failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("Server running on %s", cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	// Wait for Ctrl+C or a stop from the process manager
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = redisClient.Close()
}
