package video

import (
	"context"

	"prospect-video-generator/internal/domain/ports/adapter"
)

// limitedProcessor bounds concurrent calls to the wrapped processor.
type limitedProcessor struct {
	inner adapter.VideoProcessor
	sem   chan struct{}
}

// NewLimited returns inner unchanged when maxConcurrent <= 0.
func NewLimited(inner adapter.VideoProcessor, maxConcurrent int) adapter.VideoProcessor {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedProcessor{inner: inner, sem: make(chan struct{}, maxConcurrent)}
}

func (l *limitedProcessor) Generate(ctx context.Context, req adapter.GenerateRequest, checkpoints chan<- int) (*adapter.GenerateResult, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, req, checkpoints)
}
