// Package scheduler wires up the cron jobs that keep the service tidy:
// expired-session sweeps, scheduled ingestion of every source, and the gRPC
// health refresh.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/robfig/cron/v3"

	"jobmate/research-service/internal/ingest"
)

// Sweeper deletes expired sessions.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Submitter queues an ingestion task.
type Submitter interface {
	Submit(ctx context.Context, source string) (*ingest.Task, error)
}

// Refresher recomputes a health status.
type Refresher interface {
	Refresh(ctx context.Context)
}

type entry struct {
	name string
	spec string
	run  func(ctx context.Context)
}

// Scheduler wraps robfig/cron. Jobs are registered before Start.
type Scheduler struct {
	cron    *cron.Cron
	entries []entry
	startup []func(ctx context.Context)
}

// New returns an empty Scheduler. Overlapping runs of the same job are
// skipped and panics are recovered.
func New() *Scheduler {
	logger := cron.DefaultLogger
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
}

// SweepSessions deletes expired sessions on spec.
func (s *Scheduler) SweepSessions(spec string, sw Sweeper) {
	s.entries = append(s.entries, entry{name: "session-sweep", spec: spec, run: func(ctx context.Context) {
		n, err := sw.SweepExpired(ctx)
		if err != nil {
			slog.Warn("session sweep failed", "err", err)
			return
		}
		slog.Info("session sweep complete", "deleted", n)
	}})
}

// Ingest queues a run of every source on spec. An empty spec disables it.
func (s *Scheduler) Ingest(spec string, sub Submitter) {
	if spec == "" {
		return
	}
	s.entries = append(s.entries, entry{name: "ingest", spec: spec, run: func(ctx context.Context) {
		t, err := sub.Submit(ctx, ingest.AllSources)
		if err != nil {
			slog.Warn("scheduled ingest not queued", "err", err)
			return
		}
		slog.Info("scheduled ingest queued", "task_id", t.ID)
	}})
}

// RefreshHealth refreshes r on spec and once immediately at Start.
func (s *Scheduler) RefreshHealth(spec string, r Refresher) {
	s.entries = append(s.entries, entry{name: "health-refresh", spec: spec, run: r.Refresh})
	s.startup = append(s.startup, r.Refresh)
}

// Start registers every job and starts the cron loop. A malformed spec is an
// error and nothing is started.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, e := range s.entries {
		run := e.run
		if _, err := s.cron.AddFunc(e.spec, func() { run(ctx) }); err != nil {
			return fmt.Errorf("cron.AddFunc %s (%q): %w", e.name, e.spec, err)
		}
		log.Printf("[scheduler] %s registered (spec: %s)", e.name, e.spec)
	}
	for _, f := range s.startup {
		f(ctx)
	}
	s.cron.Start()
	log.Printf("[scheduler] Cron started with %d job(s)", len(s.entries))
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] Cron stopped")
}
