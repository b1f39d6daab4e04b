package video

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.VideoProcessor = (*SimulatedProcessor)(nil)

const DefaultSampleVideoURL = "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4"

// Timings are the delays between pipeline checkpoints.
type Timings struct {
	Overlay        time.Duration // processing start -> 40
	Concat         time.Duration // 40 -> 70 or 90
	FinalizeConcat time.Duration // 70 -> done
	FinalizeDirect time.Duration // 90 -> done
}

func DefaultTimings() Timings {
	return Timings{
		Overlay:        1000 * time.Millisecond,
		Concat:         1500 * time.Millisecond,
		FinalizeConcat: 2000 * time.Millisecond,
		FinalizeDirect: 1000 * time.Millisecond,
	}
}

// Scaled divides every delay by factor. Used by the demo and tests.
func (t Timings) Scaled(factor int) Timings {
	if factor <= 1 {
		return t
	}
	d := time.Duration(factor)
	return Timings{
		Overlay:        t.Overlay / d,
		Concat:         t.Concat / d,
		FinalizeConcat: t.FinalizeConcat / d,
		FinalizeDirect: t.FinalizeDirect / d,
	}
}

// Total is the expected pipeline duration for one job.
func (t Timings) Total(hasSecondary bool) time.Duration {
	if hasSecondary {
		return t.Overlay + t.Concat + t.FinalizeConcat
	}
	return t.Overlay + t.Concat + t.FinalizeDirect
}

// SimulatedProcessor walks the pipeline locally on timers and produces
// placeholder artifacts.
type SimulatedProcessor struct {
	timings     Timings
	publicBase  string
	sampleVideo string
	logger      *zerolog.Logger
}

func NewSimulatedProcessor(timings Timings, publicBaseURL string, logger *zerolog.Logger) *SimulatedProcessor {
	l := logger.With().Str("component", "SimulatedProcessor").Logger()
	return &SimulatedProcessor{
		timings:     timings,
		publicBase:  strings.TrimRight(publicBaseURL, "/"),
		sampleVideo: DefaultSampleVideoURL,
		logger:      &l,
	}
}

func (p *SimulatedProcessor) Generate(ctx context.Context, req adapter.GenerateRequest, checkpoints chan<- int) (*adapter.GenerateResult, error) {
	if req.MainVideoRef == "" {
		return nil, fmt.Errorf("%w: main video reference is empty", domain.ErrService)
	}
	hasSecondary := req.SecondaryVideoRef != ""

	if err := p.step(ctx, p.timings.Overlay, checkpoints, model.ProgressOverlay); err != nil {
		return nil, err
	}
	next, finalize := model.ProgressWithoutSecondary, p.timings.FinalizeDirect
	if hasSecondary {
		next, finalize = model.ProgressConcatenation, p.timings.FinalizeConcat
	}
	if err := p.step(ctx, p.timings.Concat, checkpoints, next); err != nil {
		return nil, err
	}
	if err := sleep(ctx, finalize); err != nil {
		return nil, err
	}

	p.logger.Debug().Str("job_id", req.JobID).Bool("secondary", hasSecondary).Msg("simulated video ready")
	return &adapter.GenerateResult{
		VideoURL:       p.sampleVideo,
		LandingPageURL: p.publicBase + "/landing/" + req.JobID,
	}, nil
}

func (p *SimulatedProcessor) step(ctx context.Context, d time.Duration, out chan<- int, progress int) error {
	if err := sleep(ctx, d); err != nil {
		return err
	}
	select {
	case out <- progress:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
