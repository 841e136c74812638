package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionCache fronts the session table for token verification.
type SessionCache interface {
	Get(ctx context.Context, token string) (*Session, bool)
	Set(ctx context.Context, s Session)
	Delete(ctx context.Context, token string)
	DeleteForUser(ctx context.Context, userID string)
}

// maxCacheTTL bounds how long a revoked session can survive in a cache that
// missed its invalidation.
const maxCacheTTL = 10 * time.Minute

// RedisSessionCache stores sessions under session:<sha256(token)> and keeps a
// per-user set of those keys so logoutAll can drop them together.
type RedisSessionCache struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisSessionCache returns a cache backed by rdb; nil rdb yields NopCache.
func NewRedisSessionCache(rdb *redis.Client) SessionCache {
	if rdb == nil {
		return NopCache{}
	}
	return &RedisSessionCache{rdb: rdb, now: time.Now}
}

func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "session:" + hex.EncodeToString(sum[:])
}

func userKey(userID string) string { return "session:user:" + userID }

func (c *RedisSessionCache) Get(ctx context.Context, token string) (*Session, bool) {
	raw, err := c.rdb.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("session cache get failed", "err", err)
		}
		return nil, false
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	return &s, true
}

func (c *RedisSessionCache) Set(ctx context.Context, s Session) {
	ttl := s.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return
	}
	if ttl > maxCacheTTL {
		ttl = maxCacheTTL
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	key := sessionKey(s.Token)
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, raw, ttl)
	pipe.SAdd(ctx, userKey(s.UserID), key)
	pipe.Expire(ctx, userKey(s.UserID), maxCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("session cache set failed", "err", err)
	}
}

func (c *RedisSessionCache) Delete(ctx context.Context, token string) {
	if err := c.rdb.Del(ctx, sessionKey(token)).Err(); err != nil {
		slog.Warn("session cache delete failed", "err", err)
	}
}

func (c *RedisSessionCache) DeleteForUser(ctx context.Context, userID string) {
	keys, err := c.rdb.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		slog.Warn("session cache members failed", "err", err)
		return
	}
	keys = append(keys, userKey(userID))
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("session cache delete-all failed", "err", err)
	}
}

// NopCache never caches.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*Session, bool) { return nil, false }
func (NopCache) Set(context.Context, Session)                 {}
func (NopCache) Delete(context.Context, string)               {}
func (NopCache) DeleteForUser(context.Context, string)        {}
