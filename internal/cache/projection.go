package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/raceday-mx/raceday-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	sessionContextPrefix = "session_ctx:"
	userSessionsPrefix   = "user_sessions:"
)

// ProjectionCache stores resolved user-context snapshots keyed by session id,
// with a per-user index so a role or profile change can drop every projection
// for that user at once. All methods degrade to cache misses on Redis
// failure; callers fall back to a fresh resolve.
type ProjectionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewProjectionCache returns nil when no Redis address is configured, which
// callers treat as "no cache".
func NewProjectionCache(cfg *config.Config) *ProjectionCache {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &ProjectionCache{rdb: rdb, ttl: cfg.ProjectionTTL}
}

func (c *ProjectionCache) Get(ctx context.Context, sessionID string, dest any) bool {
	if c == nil {
		return false
	}
	b, err := c.rdb.Get(ctx, sessionContextPrefix+sessionID).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false
	}
	return true
}

func (c *ProjectionCache) Set(ctx context.Context, userID, sessionID string, value any) {
	if c == nil {
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		return
	}
	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, sessionContextPrefix+sessionID, b, c.ttl)
	pipe.SAdd(ctx, userSessionsPrefix+userID, sessionID)
	pipe.Expire(ctx, userSessionsPrefix+userID, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("projection cache write failed", "error", err)
	}
}

// InvalidateUser drops every cached projection belonging to the user.
func (c *ProjectionCache) InvalidateUser(ctx context.Context, userID string) {
	if c == nil {
		return
	}
	indexKey := userSessionsPrefix + userID
	sessionIDs, err := c.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		slog.Warn("projection cache invalidation failed", "error", err, "user_id", userID)
		return
	}
	keys := make([]string, 0, len(sessionIDs)+1)
	for _, sid := range sessionIDs {
		keys = append(keys, sessionContextPrefix+sid)
	}
	keys = append(keys, indexKey)
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("projection cache invalidation failed", "error", err, "user_id", userID)
	}
}

// InvalidateSession drops one session's projection, used on sign-out.
func (c *ProjectionCache) InvalidateSession(ctx context.Context, userID, sessionID string) {
	if c == nil {
		return
	}
	pipe := c.rdb.Pipeline()
	pipe.Del(ctx, sessionContextPrefix+sessionID)
	pipe.SRem(ctx, userSessionsPrefix+userID, sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("projection cache invalidation failed", "error", err, "session_id", sessionID)
	}
}

func (c *ProjectionCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}
