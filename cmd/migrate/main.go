package main

import (
	"discord_polls/internal/config" // Custom import path (Config)
	"discord_polls/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration

	gormDB, err := db.Open(cfg.DatabaseURL, db.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	if err := db.Migrate(gormDB); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}
}
