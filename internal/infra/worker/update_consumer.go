package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/ports/adapter"
)

// UpdateApplier is the slice of the orchestrator the consumer needs.
type UpdateApplier interface {
	ApplyUpdate(ctx context.Context, upd adapter.JobUpdate) error
}

// UpdateConsumer forwards pushed job updates from the processing service into
// the orchestrator. Updates for unknown or finished jobs are dropped.
type UpdateConsumer struct {
	feed    adapter.JobUpdateFeed
	applier UpdateApplier
	log     *zerolog.Logger
}

func NewUpdateConsumer(feed adapter.JobUpdateFeed, applier UpdateApplier, logger *zerolog.Logger) *UpdateConsumer {
	l := logger.With().Str("component", "UpdateConsumer").Logger()
	return &UpdateConsumer{feed: feed, applier: applier, log: &l}
}

// Start blocks until ctx is cancelled. Run it in a goroutine.
func (c *UpdateConsumer) Start(ctx context.Context) {
	c.log.Info().Msg("update consumer started")
	err := c.feed.Run(ctx, func(upd adapter.JobUpdate) {
		c.handle(ctx, upd)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		c.log.Error().Err(err).Msg("update feed stopped")
		return
	}
	c.log.Info().Msg("update consumer stopping")
}

func (c *UpdateConsumer) handle(ctx context.Context, upd adapter.JobUpdate) {
	applyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.applier.ApplyUpdate(applyCtx, upd)
	switch {
	case err == nil:
		c.log.Debug().Str("job_id", upd.JobID).Str("status", string(upd.Status)).Int("progress", upd.Progress).Msg("update applied")
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrJobTerminal):
		c.log.Debug().Str("job_id", upd.JobID).Err(err).Msg("update ignored")
	default:
		c.log.Warn().Str("job_id", upd.JobID).Err(err).Msg("update rejected")
	}
}
