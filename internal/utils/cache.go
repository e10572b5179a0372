package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"strconv"       // Key formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// SessionKey is the Redis key holding a session's data
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// ResultsVersionKey is the Redis counter bumped whenever a poll's tallies
// change
func ResultsVersionKey(pollID uint) string {
	return "results:poll:" + strconv.FormatUint(uint64(pollID), 10) + ":version"
}

// ResultsCacheKey is the Redis key holding a poll's tallies as of version
func ResultsCacheKey(pollID uint, version int64) string {
	return "results:poll:" + strconv.FormatUint(uint64(pollID), 10) + ":v" + strconv.FormatInt(version, 10)
}

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb redis.Cmdable, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Bytes() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb redis.Cmdable, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// TouchCache extends the TTL of a key
func TouchCache(ctx context.Context, rdb redis.Cmdable, key string, ttl time.Duration) error {
	return rdb.Expire(ctx, key, ttl).Err()
}

// CacheVersion reads a version counter, 0 when it was never bumped
func CacheVersion(ctx context.Context, rdb redis.Cmdable, key string) (int64, error) {
	v, err := rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil // Never bumped
	}
	return v, err
}

// BumpCacheVersion moves readers of a versioned cache to a new key. Entries
// stored under older versions are never read again and expire by TTL.
func BumpCacheVersion(ctx context.Context, rdb redis.Cmdable, key string) error {
	return rdb.Incr(ctx, key).Err()
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb redis.Cmdable, keys ...string) error {
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}
