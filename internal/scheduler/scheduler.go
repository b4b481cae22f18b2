// Package scheduler runs periodic refresh jobs with a quiet-hours blackout
// window and a per-job guard against overlapping runs.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job is a named unit of periodic work.
type Job struct {
	Name string
	// Interval between periodic runs. Zero runs the job once at startup.
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Blackout is a daily hour range, in a fixed UTC offset, during which
// periodic ticks are skipped. StartHour > EndHour wraps past midnight.
type Blackout struct {
	Enabled   bool
	StartHour int
	EndHour   int
	UTCOffset int // hours
}

// Contains reports whether t falls inside the window.
func (b Blackout) Contains(t time.Time) bool {
	if !b.Enabled || b.StartHour == b.EndHour {
		return false
	}
	h := t.In(time.FixedZone("", b.UTCOffset*3600)).Hour()
	if b.StartHour < b.EndHour {
		return h >= b.StartHour && h < b.EndHour
	}
	return h >= b.StartHour || h < b.EndHour
}

// JobStats summarizes a job's activity.
type JobStats struct {
	Name      string    `json:"name"`
	Runs      int64     `json:"runs"`
	Failures  int64     `json:"failures"`
	Skipped   int64     `json:"skipped"` // blackout
	Dropped   int64     `json:"dropped"` // overlap
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"last_run,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

// Scheduler fires jobs immediately at startup and then on their interval.
type Scheduler struct {
	jobs     []*jobState
	blackout Blackout
	now      func() time.Time
	logger   *slog.Logger
}

type jobState struct {
	Job
	running atomic.Bool

	mu    sync.Mutex
	stats JobStats
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithBlackout sets the blackout window.
func WithBlackout(b Blackout) Option {
	return func(s *Scheduler) {
		s.blackout = b
	}
}

// WithClock overrides the time source used for blackout checks.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// New creates a scheduler for jobs.
func New(jobs []Job, opts ...Option) *Scheduler {
	s := &Scheduler{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, j := range jobs {
		s.jobs = append(s.jobs, &jobState{Job: j, stats: JobStats{Name: j.Name}})
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts every job and blocks until ctx is canceled and all in-flight
// runs have returned.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, j := range s.jobs {
		g.Go(func() error {
			s.loop(ctx, j)
			return nil
		})
	}
	return g.Wait()
}

// Stats returns a snapshot of every job's counters.
func (s *Scheduler) Stats() []JobStats {
	out := make([]JobStats, 0, len(s.jobs))
	for _, j := range s.jobs {
		j.mu.Lock()
		st := j.stats
		j.mu.Unlock()
		st.Running = j.running.Load()
		out = append(out, st)
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, j *jobState) {
	var wg sync.WaitGroup
	defer wg.Wait()

	// Startup run ignores the blackout window.
	s.fire(ctx, j, &wg)

	if j.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.blackout.Contains(s.now()) {
				s.logger.Debug("tick skipped, blackout window", "job", j.Name)
				j.mu.Lock()
				j.stats.Skipped++
				j.mu.Unlock()
				continue
			}
			s.fire(ctx, j, &wg)
		}
	}
}

// fire starts a run unless the previous one is still in flight.
func (s *Scheduler) fire(ctx context.Context, j *jobState, wg *sync.WaitGroup) {
	if !j.running.CompareAndSwap(false, true) {
		s.logger.Debug("tick dropped, previous run in flight", "job", j.Name)
		j.mu.Lock()
		j.stats.Dropped++
		j.mu.Unlock()
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer j.running.Store(false)

		start := time.Now()
		err := j.Run(ctx)

		j.mu.Lock()
		j.stats.Runs++
		j.stats.LastRun = start
		if err != nil {
			j.stats.Failures++
			j.stats.LastError = err.Error()
		} else {
			j.stats.LastError = ""
		}
		j.mu.Unlock()

		if err != nil {
			s.logger.Warn("job failed", "job", j.Name, "error", err,
				"duration_ms", time.Since(start).Milliseconds())
			return
		}
		s.logger.Info("job completed", "job", j.Name,
			"duration_ms", time.Since(start).Milliseconds())
	}()
}
