package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"    // MySQL driver for GORM
	"gorm.io/driver/postgres" // PostgreSQL driver for GORM
	"gorm.io/gorm"            // GORM ORM library
	"gorm.io/gorm/logger"
)

// ErrUnsupportedURL is returned for a DATABASE_URL with an unknown scheme
var ErrUnsupportedURL = errors.New("unsupported database url scheme")

// PoolConfig sizes the connection pool
type PoolConfig struct {
	MaxOpenConns int
	MaxIdleConns int
}

// Dialector picks the GORM driver for a DATABASE_URL.
// postgres:// and postgresql:// go to pgx; mysql:// is stripped and the rest
// handed to go-sql-driver as a DSN (user:pass@tcp(host:port)/db).
func Dialector(databaseURL string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgres.Open(databaseURL), nil
	case strings.HasPrefix(databaseURL, "mysql://"):
		dsn := strings.TrimPrefix(databaseURL, "mysql://")
		if !strings.Contains(dsn, "parseTime=") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
		return mysql.Open(dsn), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, schemeOf(databaseURL))
}

// Open connects to the database and configures the pool
func Open(databaseURL string, pool PoolConfig) (*gorm.DB, error) {
	dialector, err := Dialector(databaseURL)
	if err != nil {
		return nil, err
	}
	return OpenDialector(dialector, pool)
}

// OpenDialector is Open for an already built dialector
func OpenDialector(dialector gorm.Dialector, pool PoolConfig) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// RandomFunc returns the SQL random-ordering function of db's dialect
func RandomFunc(db *gorm.DB) string {
	if db.Dialector.Name() == "mysql" {
		return "RAND()"
	}
	return "RANDOM()" // postgres, sqlite
}

func schemeOf(databaseURL string) string {
	if i := strings.Index(databaseURL, "://"); i >= 0 {
		return databaseURL[:i]
	}
	return ""
}
