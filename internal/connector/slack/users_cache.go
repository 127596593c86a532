package slack

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// userCacheKey namespaces the cached user directory.
const userCacheKey = "taskmatrix:slack:users"

// UserCache keeps the Slack user directory warm between import cycles so
// repeated imports skip users.list. Redis being absent or unreachable
// degrades silently to a cache miss.
type UserCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewUserCache creates the cache. Returns nil when client is nil, which every
// caller treats as "no cache".
func NewUserCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *UserCache {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached directory, or ok=false on miss or any Redis error.
func (c *UserCache) Get(ctx context.Context) (map[string]string, bool) {
	raw, err := c.client.Get(ctx, userCacheKey).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("slack user cache read failed", slog.String("error", err.Error()))
		}
		return nil, false
	}

	var users map[string]string
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		c.logger.Debug("slack user cache entry invalid, ignoring")
		return nil, false
	}
	return users, true
}

// Set stores the directory with the configured TTL. Failures are logged and
// swallowed.
func (c *UserCache) Set(ctx context.Context, users map[string]string) {
	raw, err := json.Marshal(users)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, userCacheKey, raw, c.ttl).Err(); err != nil {
		c.logger.Debug("slack user cache write failed", slog.String("error", err.Error()))
	}
}
