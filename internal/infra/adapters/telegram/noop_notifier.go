package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"prospect-video-generator/internal/domain/ports/adapter"
)

var _ adapter.BatchNotifier = (*NoopNotifier)(nil)

// NoopNotifier logs batch summaries instead of sending them.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	l := logger.With().Str("component", "NoopNotifier").Logger()
	return &NoopNotifier{log: &l}
}

func (n *NoopNotifier) BatchFinished(ctx context.Context, s adapter.BatchSummary) error {
	n.log.Info().
		Str("batch_id", s.BatchID).
		Int("total", s.Stats.Total).
		Int("completed", s.Stats.Completed).
		Int("errors", s.Stats.Errors).
		Msg("batch finished")
	return nil
}
