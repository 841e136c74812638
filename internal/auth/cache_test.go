package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"jobmate/research-service/internal/auth"
)

func TestRedisSessionCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	cache := auth.NewRedisSessionCache(rdb)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	cache.Set(ctx, auth.Session{Token: "t1", UserID: "u1", ExpiresAt: exp})
	cache.Set(ctx, auth.Session{Token: "t2", UserID: "u1", ExpiresAt: exp})

	got, ok := cache.Get(ctx, "t1")
	if !ok || got.UserID != "u1" || !got.ExpiresAt.Equal(exp) {
		t.Fatalf("Get = %+v, %v", got, ok)
	}
	for _, k := range mr.Keys() {
		if k == "session:t1" {
			t.Error("raw token used as a cache key")
		}
	}
	if ttl := mr.TTL(mr.Keys()[0]); ttl <= 0 || ttl > 10*time.Minute {
		t.Errorf("ttl = %v, want capped at 10m", ttl)
	}

	cache.Delete(ctx, "t1")
	if _, ok := cache.Get(ctx, "t1"); ok {
		t.Error("t1 still cached after Delete")
	}

	cache.DeleteForUser(ctx, "u1")
	if _, ok := cache.Get(ctx, "t2"); ok {
		t.Error("t2 still cached after DeleteForUser")
	}
}

func TestRedisSessionCache_SkipsExpired(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cache := auth.NewRedisSessionCache(rdb)
	cache.Set(context.Background(), auth.Session{Token: "t", UserID: "u", ExpiresAt: time.Now().Add(-time.Second)})
	if len(mr.Keys()) != 0 {
		t.Errorf("keys = %v, want none", mr.Keys())
	}
}

func TestNewRedisSessionCache_Nil(t *testing.T) {
	if _, ok := auth.NewRedisSessionCache(nil).(auth.NopCache); !ok {
		t.Fatal("nil client should give NopCache")
	}
}

func TestService_UsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	users, sessions := newMemUsers(), newMemSessions()
	svc := auth.NewService(users, sessions, auth.NewRedisSessionCache(rdb), auth.NewTokenManager(testSecret))
	g := register(t, svc, "alice", "alice@example.com")

	// Cached: survives the row disappearing until logout clears the cache.
	delete(sessions.rows, g.Token)
	if _, ok := svc.Verify(context.Background(), g.Token); !ok {
		t.Fatal("cached session not honoured")
	}
	svc.Logout(context.Background(), g.Token, false)
	if _, ok := svc.Verify(context.Background(), g.Token); ok {
		t.Fatal("session valid after logout")
	}
}
