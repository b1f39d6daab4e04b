package adapter

import (
	"context"

	"prospect-video-generator/internal/domain/model"
)

// BatchSummary is sent once every job of a batch is terminal.
type BatchSummary struct {
	BatchID string
	Stats   model.JobStats
}

type BatchNotifier interface {
	BatchFinished(ctx context.Context, summary BatchSummary) error
}
