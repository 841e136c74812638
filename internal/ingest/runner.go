package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/events"
)

// AllSources selects every rule in one task.
const AllSources = "all"

// RunnerConfig sizes the worker pool.
type RunnerConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type queued struct {
	task  Task
	rules []Rule
}

// Runner executes ingestion tasks on a fixed pool of workers fed by a
// bounded queue. Submit never blocks: a full queue rejects the task.
type Runner struct {
	rules    []Rule
	byName   map[string]Rule
	pipeline *Pipeline
	status   StatusStore
	events   events.Publisher
	timeout  time.Duration
	workers  int
	queue    chan queued
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewRunner returns a Runner over rules. Call Start to launch its workers.
func NewRunner(rules []Rule, p *Pipeline, status StatusStore, pub events.Publisher, cfg RunnerConfig) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if pub == nil {
		pub = events.Nop{}
	}
	byName := make(map[string]Rule, len(rules))
	for _, r := range rules {
		byName[r.Name] = r
	}
	return &Runner{
		rules:    rules,
		byName:   byName,
		pipeline: p,
		status:   status,
		events:   pub,
		timeout:  cfg.Timeout,
		workers:  cfg.Workers,
		queue:    make(chan queued, cfg.QueueSize),
		now:      time.Now,
	}
}

// Sources returns the configured rules.
func (r *Runner) Sources() []Rule { return r.rules }

// Start launches the workers. They stop when ctx is cancelled, failing any
// task still queued.
func (r *Runner) Start(ctx context.Context) {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go func(n int) {
			defer r.wg.Done()
			slog.Debug("ingest worker started", "worker", n)
			for {
				select {
				case <-ctx.Done():
					r.drain(ctx)
					return
				case q := <-r.queue:
					r.run(ctx, q)
				}
			}
		}(i)
	}
}

// drain marks every task still in the queue failed.
func (r *Runner) drain(ctx context.Context) {
	for {
		select {
		case q := <-r.queue:
			t := q.task
			finished := r.now().UTC()
			t.State, t.Error, t.FinishedAt = StateFailed, "cancelled at shutdown", &finished
			r.save(ctx, t)
			slog.Info("ingest task dropped at shutdown", "task_id", t.ID, "source", t.Source)
		default:
			return
		}
	}
}

// Wait blocks until every worker has returned.
func (r *Runner) Wait() { r.wg.Wait() }

// Submit queues a run of source (a rule name or AllSources) and returns the
// pending task.
func (r *Runner) Submit(ctx context.Context, source string) (*Task, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		source = AllSources
	}
	var rules []Rule
	if source == AllSources {
		rules = r.rules
	} else if rule, ok := r.byName[source]; ok {
		rules = []Rule{rule}
	} else {
		return nil, apperr.NotFound("Unknown ingestion source")
	}

	t := Task{ID: uuid.NewString(), Source: source, State: StatePending, CreatedAt: r.now().UTC()}
	if err := r.status.Save(ctx, t); err != nil {
		return nil, err
	}

	select {
	case r.queue <- queued{task: t, rules: rules}:
		slog.Info("ingest task queued", "task_id", t.ID, "source", source)
		return &t, nil
	default:
		slog.Warn("ingest queue full, rejecting task", "task_id", t.ID, "source", source)
		t.State, t.Error = StateFailed, "Queue full"
		finished := r.now().UTC()
		t.FinishedAt = &finished
		r.save(ctx, t)
		return nil, apperr.Unavailable("Ingestion queue is full")
	}
}

// Status returns a task by id.
func (r *Runner) Status(ctx context.Context, id string) (*Task, error) {
	return r.status.Load(ctx, id)
}

func (r *Runner) run(ctx context.Context, q queued) {
	t := q.task
	started := r.now().UTC()
	t.State, t.StartedAt = StateRunning, &started
	r.save(ctx, t)

	tctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var failures []string
	for _, rule := range q.rules {
		if tctx.Err() != nil {
			break
		}
		if err := r.pipeline.Run(tctx, rule, &t.Counters); err != nil {
			slog.Warn("ingest rule failed", "task_id", t.ID, "rule", rule.Name, "err", err)
			failures = append(failures, fmt.Sprintf("%s: %v", rule.Name, err))
		}
		r.save(ctx, t)
	}

	switch {
	case errors.Is(tctx.Err(), context.DeadlineExceeded):
		t.State, t.Error = StateTimedOut, fmt.Sprintf("timed out after %s", r.timeout)
	case ctx.Err() != nil:
		t.State, t.Error = StateFailed, "cancelled at shutdown"
	case len(failures) == len(q.rules) && len(failures) > 0:
		t.State, t.Error = StateFailed, strings.Join(failures, "; ")
	default:
		t.State = StateSucceeded
		if len(failures) > 0 {
			t.Error = strings.Join(failures, "; ")
		}
	}
	finished := r.now().UTC()
	t.FinishedAt = &finished
	r.save(ctx, t)

	slog.Info("ingest task finished", "task_id", t.ID, "source", t.Source, "status", t.State,
		"inserted", t.Counters.Inserted, "updated", t.Counters.Updated,
		"excluded", t.Counters.Excluded, "failed", t.Counters.Failed)
	r.events.Publish(context.WithoutCancel(ctx), events.IngestFinished, map[string]any{
		"taskId":   t.ID,
		"source":   t.Source,
		"status":   t.State,
		"inserted": t.Counters.Inserted,
		"updated":  t.Counters.Updated,
	})
}

// save records t even when ctx is already cancelled.
func (r *Runner) save(ctx context.Context, t Task) {
	if err := r.status.Save(context.WithoutCancel(ctx), t); err != nil {
		slog.Warn("save ingest status failed", "task_id", t.ID, "err", err)
	}
}
