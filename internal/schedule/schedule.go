// Package schedule runs pipeline jobs on cron expressions.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSpec runs once a month, at midnight on the first.
const DefaultSpec = "@monthly"

// Job is one scheduled unit of work. The context is cancelled when the
// scheduler stops.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner. A job that is still running when its next
// activation comes around is skipped rather than stacked.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger

	mu    sync.Mutex
	ctx   context.Context
	names map[string]cron.EntryID
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New creates a Scheduler evaluating expressions in loc (UTC when nil).
func New(loc *time.Location, log *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "schedule")
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		log:   log,
		ctx:   context.Background(),
		names: make(map[string]cron.EntryID),
	}
}

// Add registers job under name. Names must be unique.
func (s *Scheduler) Add(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.names[name]; ok {
		return fmt.Errorf("job %s already scheduled", name)
	}
	id, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("scheduling %s (%q): %w", name, spec, err)
	}
	s.names[name] = id
	next := s.cron.Entry(id).Schedule.Next(time.Now().In(s.cron.Location()))
	s.log.Info("job scheduled", "job", name, "spec", spec, "next", next)
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	start := time.Now()
	s.log.Info("job started", "job", name)
	if err := job(ctx); err != nil {
		s.log.Error("job failed", "job", name, "error", err, "elapsed", time.Since(start).Round(time.Millisecond).String())
		return
	}
	s.log.Info("job finished", "job", name, "elapsed", time.Since(start).Round(time.Millisecond).String())
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits for
// running jobs to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

// Next reports when spec next fires after from.
func Next(spec string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(spec)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}
