package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"prospect-video-generator/internal/infra/metrics"
)

const staleLockKey = "locks:stale-job-sweep"

type StaleSweeper interface {
	FailStale(ctx context.Context, olderThan time.Time, live func(jobID string) bool) (int, error)
}

// Locker is satisfied by redis.RedisLocker.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// StaleWorker fails persisted non-terminal jobs that no running batch
// owns, e.g. after a crash or restart.
type StaleWorker struct {
	interval time.Duration
	maxAge   time.Duration
	jobs     StaleSweeper
	live     func(jobID string) bool
	locker   Locker
	isHeld   func(error) bool
	log      *zerolog.Logger
}

func NewStaleWorker(interval, maxAge time.Duration, jobs StaleSweeper, live func(jobID string) bool, logger *zerolog.Logger) *StaleWorker {
	staleLog := logger.With().Str("component", "StaleWorker").Logger()
	if live == nil {
		live = func(string) bool { return false }
	}
	return &StaleWorker{
		interval: interval,
		maxAge:   maxAge,
		jobs:     jobs,
		live:     live,
		isHeld:   func(error) bool { return false },
		log:      &staleLog,
	}
}

// WithLocker makes a sweep run on one instance at a time. isHeld recognises
// the locker's "already held" error.
func (w *StaleWorker) WithLocker(l Locker, isHeld func(error) bool) *StaleWorker {
	w.locker = l
	if isHeld != nil {
		w.isHeld = isHeld
	}
	return w
}

func (w *StaleWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("max_age", w.maxAge).Msg("Starting stale job worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// first pass right away so jobs orphaned by a restart are settled early
	if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
		w.log.Error().Err(err).Msg("stale job sweep failed")
	}
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping stale job worker")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("stale job sweep failed")
			}
		}
	}
}

// Sweep runs one pass. A held lock is not an error.
func (w *StaleWorker) Sweep(ctx context.Context) (int, error) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, staleLockKey, w.interval)
		if err != nil {
			if w.isHeld(err) {
				w.log.Debug().Msg("stale sweep skipped: lock held elsewhere")
				return 0, nil
			}
			return 0, err
		}
		defer func() {
			if err := w.locker.Unlock(context.WithoutCancel(ctx), staleLockKey, token); err != nil {
				w.log.Warn().Err(err).Msg("release stale sweep lock")
			}
		}()
	}

	n, err := w.jobs.FailStale(ctx, time.Now().Add(-w.maxAge), w.live)
	if n > 0 {
		metrics.AddStaleJobsFailed(n)
		w.log.Info().Int("count", n).Msg("stale jobs failed")
	}
	return n, err
}
