package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"jobmate/research-service/internal/apperr"
)

// State is the lifecycle position of a task.
//
//	pending ──► running ──► succeeded | failed | timed_out
//	   └──────────────────► failed (queue full)
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateTimedOut
}

// Counters tally what a run did with each extracted record.
type Counters struct {
	Extracted int `json:"extracted"`
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Excluded  int `json:"excluded"`
	Failed    int `json:"failed"`
	Enriched  int `json:"enriched"`
}

// Task is the observable record of one ingestion run.
type Task struct {
	ID         string     `json:"task_id"`
	Source     string     `json:"source"`
	State      State      `json:"status"`
	Counters   Counters   `json:"counters"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// StatusTTL is how long a task stays observable.
const StatusTTL = 24 * time.Hour

var errTaskNotFound = apperr.NotFound("Task not found")

// StatusStore keeps task records by id.
type StatusStore interface {
	Save(ctx context.Context, t Task) error
	Load(ctx context.Context, id string) (*Task, error)
}

// NewStatusStore returns a Redis-backed store, or an in-process one when rdb
// is nil.
func NewStatusStore(rdb *redis.Client) StatusStore {
	if rdb == nil {
		return NewMemoryStatusStore()
	}
	return &RedisStatusStore{rdb: rdb}
}

// ─── Redis ──────────────────────────────────────────────────────────────────

// RedisStatusStore keeps each task as JSON under ingest:task:<id>.
type RedisStatusStore struct {
	rdb *redis.Client
}

func taskKey(id string) string { return "ingest:task:" + id }

func (s *RedisStatusStore) Save(ctx context.Context, t Task) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := s.rdb.Set(ctx, taskKey(t.ID), b, StatusTTL).Err(); err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func (s *RedisStatusStore) Load(ctx context.Context, id string) (*Task, error) {
	b, err := s.rdb.Get(ctx, taskKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	var t Task
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &t, nil
}

// ─── In-process ─────────────────────────────────────────────────────────────

// MemoryStatusStore keeps tasks in a map, dropping them after StatusTTL.
type MemoryStatusStore struct {
	mu    sync.RWMutex
	tasks map[string]memEntry
	now   func() time.Time
}

type memEntry struct {
	task    Task
	expires time.Time
}

// NewMemoryStatusStore returns an empty MemoryStatusStore.
func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{tasks: map[string]memEntry{}, now: time.Now}
}

// WithClock overrides the time source used for expiry.
func (s *MemoryStatusStore) WithClock(now func() time.Time) *MemoryStatusStore {
	s.now = now
	return s
}

func (s *MemoryStatusStore) Save(_ context.Context, t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, e := range s.tasks {
		if now.After(e.expires) {
			delete(s.tasks, id)
		}
	}
	s.tasks[t.ID] = memEntry{task: t, expires: now.Add(StatusTTL)}
	return nil
}

func (s *MemoryStatusStore) Load(_ context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tasks[id]
	if !ok || s.now().After(e.expires) {
		return nil, errTaskNotFound
	}
	t := e.task
	return &t, nil
}
