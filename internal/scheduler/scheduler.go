// Package scheduler drives the periodic collection jobs: a fast quote tick
// and a slower orderbook sample, each guarded against overlapping runs.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	quoteSchedule     = "@every 1s"
	orderbookSchedule = "@every 10s"
	defaultJobTimeout = 10 * time.Second
	hardJobTimeout    = 30 * time.Second
	shutdownGrace     = 10 * time.Second
)

// CollectFunc is one collection pass; it returns how many quotes/snapshots
// it wrote so the caller can log progress.
type CollectFunc func(ctx context.Context) (int, error)

// Job wraps a CollectFunc with an overlap guard: if the previous run of
// this job is still in flight when the next tick fires, the tick is
// skipped rather than queued, matching a max_instances=1 cron job.
type Job struct {
	Name    string
	running atomic.Bool
	timeout time.Duration
	fn      CollectFunc
	log     zerolog.Logger
}

func newJob(name string, timeout time.Duration, fn CollectFunc, log zerolog.Logger) *Job {
	if timeout <= 0 || timeout > hardJobTimeout {
		timeout = defaultJobTimeout
	}
	return &Job{Name: name, timeout: timeout, fn: fn, log: log.With().Str("job", name).Logger()}
}

func (j *Job) run() {
	if !j.running.CompareAndSwap(false, true) {
		j.log.Warn().Msg("previous run still in flight, skipping this tick")
		return
	}
	defer j.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	n, err := j.fn(ctx)
	if err != nil {
		j.log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("job run failed")
		return
	}
	j.log.Debug().Int("count", n).Dur("elapsed", time.Since(start)).Msg("job run completed")
}

// Scheduler owns the cron runtime and the two collection jobs.
type Scheduler struct {
	cron       *cron.Cron
	quoteJob   *Job
	bookJob    *Job
	log        zerolog.Logger
	quoteEntry cron.EntryID
	bookEntry  cron.EntryID
}

// New builds a Scheduler wired to collectQuotes (ticks every second) and
// collectOrderbooks (ticks every ten seconds).
func New(log zerolog.Logger, collectQuotes, collectOrderbooks CollectFunc) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		quoteJob: newJob("quotes", defaultJobTimeout, collectQuotes, log),
		bookJob:  newJob("orderbooks", defaultJobTimeout, collectOrderbooks, log),
		log:      log,
	}
}

// Start registers both jobs and begins the cron runtime. It returns once
// scheduling is confirmed; the cron loop itself runs in its own goroutine.
func (s *Scheduler) Start() error {
	quoteID, err := s.cron.AddFunc(quoteSchedule, s.quoteJob.run)
	if err != nil {
		return err
	}
	bookID, err := s.cron.AddFunc(orderbookSchedule, s.bookJob.run)
	if err != nil {
		return err
	}
	s.quoteEntry = quoteID
	s.bookEntry = bookID

	s.cron.Start()
	s.log.Info().Msg("scheduler started")
	return nil
}

// Stop halts new ticks and waits up to a grace period for in-flight jobs
// to finish, then returns regardless.
func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()

	grace, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()

	select {
	case <-stopCtx.Done():
		s.log.Info().Msg("scheduler stopped cleanly")
	case <-grace.Done():
		s.log.Warn().Msg("scheduler stop grace period elapsed, jobs may still be running")
	}
}
