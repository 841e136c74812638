// Package events publishes domain events to Redis pub/sub for downstream
// consumers (SSE gateways, notifiers). Publishing is always best-effort.
package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Channel names.
const (
	IngestFinished   = "EVENT_INGEST_FINISHED"
	ProjectCompleted = "EVENT_PROJECT_COMPLETED"
)

// Publisher sends an event. Implementations never fail the caller.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload map[string]any)
}

// RedisPublisher publishes JSON payloads with PUBLISH.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher returns a Publisher backed by rdb. A nil client yields Nop.
func NewRedisPublisher(rdb *redis.Client) Publisher {
	if rdb == nil {
		return Nop{}
	}
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload map[string]any) {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["type"] = channel

	event, err := json.Marshal(body)
	if err != nil {
		slog.Warn("marshal event failed", "channel", channel, "err", err)
		return
	}
	if err := p.rdb.Publish(ctx, channel, event).Err(); err != nil {
		slog.Warn("publish failed", "channel", channel, "err", err)
	}
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, map[string]any) {}
