package video

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/domain/ports/adapter"
	"prospect-video-generator/internal/infra/adapters/remote"
)

// Compile-time check
var _ adapter.VideoProcessor = (*HTTPProcessor)(nil)

// remoteJob is the processing service's view of a job.
type remoteJob struct {
	ID             string          `json:"id"`
	Status         model.JobStatus `json:"status"`
	Progress       int             `json:"progress"`
	VideoURL       string          `json:"videoUrl,omitempty"`
	LandingPageURL string          `json:"landingPageUrl,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// HTTPProcessor submits a job with POST /jobs and polls GET /jobs/{id}
// until the service reports a terminal status.
type HTTPProcessor struct {
	client *remote.Client
	poll   time.Duration
	logger *zerolog.Logger
}

func NewHTTPProcessor(baseURL, apiKey string, poll time.Duration, logger *zerolog.Logger) (*HTTPProcessor, error) {
	c, err := remote.NewClient(baseURL, apiKey, 30*time.Second)
	if err != nil {
		return nil, err
	}
	if poll <= 0 {
		poll = time.Second
	}
	l := logger.With().Str("component", "HTTPProcessor").Logger()
	return &HTTPProcessor{client: c, poll: poll, logger: &l}, nil
}

func (p *HTTPProcessor) Generate(ctx context.Context, req adapter.GenerateRequest, checkpoints chan<- int) (*adapter.GenerateResult, error) {
	var created remoteJob
	if err := p.client.JSON(ctx, http.MethodPost, "/jobs", req, &created); err != nil {
		return nil, p.wrap(ctx, "submit job", err)
	}
	id := created.ID
	if id == "" {
		id = req.JobID
	}

	last := 0
	job := created
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()
	for {
		switch job.Status {
		case model.JobStatusCompleted:
			if job.VideoURL == "" {
				return nil, fmt.Errorf("%w: job %s completed without a video url", domain.ErrService, id)
			}
			return &adapter.GenerateResult{VideoURL: job.VideoURL, LandingPageURL: job.LandingPageURL}, nil
		case model.JobStatusError:
			msg := job.Error
			if msg == "" {
				msg = "processing failed"
			}
			return nil, fmt.Errorf("%w: %s", domain.ErrService, msg)
		}
		if job.Progress > last && job.Progress < model.ProgressDone {
			select {
			case checkpoints <- job.Progress:
				last = job.Progress
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		var next remoteJob
		if err := p.client.JSON(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, &next); err != nil {
			return nil, p.wrap(ctx, "poll job", err)
		}
		job = next
	}
}

func (p *HTTPProcessor) wrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var se *remote.StatusError
	if errors.As(err, &se) && se.Code == http.StatusGatewayTimeout {
		return fmt.Errorf("%w: %s: %v", domain.ErrTimeout, op, err)
	}
	p.logger.Warn().Err(err).Str("op", op).Msg("processing service call failed")
	return fmt.Errorf("%w: %s: %v", domain.ErrService, op, err)
}
