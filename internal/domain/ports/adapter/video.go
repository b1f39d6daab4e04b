package adapter

import (
	"context"

	"prospect-video-generator/internal/domain/model"
)

// GenerateRequest is one per-job call to the video processing service.
type GenerateRequest struct {
	JobID             string         `json:"jobId"`
	MainVideoRef      string         `json:"mainVideoId"`
	SecondaryVideoRef string         `json:"secondaryVideoId,omitempty"`
	Prospect          model.Prospect `json:"prospect"`
	WebsiteURL        string         `json:"websiteUrl"`
}

// GenerateResult holds the terminal artifacts of a successful job.
type GenerateResult struct {
	VideoURL       string `json:"videoUrl"`
	LandingPageURL string `json:"landingPageUrl"`
}

// VideoProcessor is the port for the external video processing service.
// Implementations send reached progress checkpoints on the channel (never 100;
// completion is signalled by returning a result) and must not close it.
// Errors wrap domain.ErrService or domain.ErrTimeout.
type VideoProcessor interface {
	Generate(ctx context.Context, req GenerateRequest, checkpoints chan<- int) (*GenerateResult, error)
}

// JobUpdate is an out-of-band status push for a single job.
type JobUpdate struct {
	JobID          string          `json:"id"`
	Status         model.JobStatus `json:"status"`
	Progress       int             `json:"progress"`
	VideoURL       string          `json:"videoUrl,omitempty"`
	LandingPageURL string          `json:"landingPageUrl,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// JobUpdateFeed delivers pushed updates until ctx is cancelled.
type JobUpdateFeed interface {
	Run(ctx context.Context, handle func(JobUpdate)) error
}
