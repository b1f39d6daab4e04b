package model

import (
	"time"

	"prospect-video-generator/internal/domain"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// Valid reports whether s is one of the four known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusError:
		return true
	}
	return false
}

// Terminal reports whether no further transitions may leave s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// Pipeline checkpoints. The phase boundaries are shared with the status labels.
const (
	ProgressCapture          = 15
	ProgressOverlay          = 40
	ProgressConcatenation    = 70
	ProgressWithoutSecondary = 90
	ProgressDone             = 100

	PhaseCaptureEnd       = 20
	PhaseOverlayEnd       = 50
	PhaseConcatenationEnd = 80
)

// Prospect is one CSV row projected through a MappingConfig.
type Prospect struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Company    string `json:"company"`
	WebsiteURL string `json:"websiteUrl"`
}

// GenerationInfo is an audit record attached on completion. Display only.
type GenerationInfo struct {
	MainVideoUsed      bool      `json:"mainVideoUsed"`
	SecondaryVideoUsed bool      `json:"secondaryVideoUsed"`
	WebsiteScreenshot  string    `json:"websiteScreenshot"`
	GeneratedAt        time.Time `json:"generatedAt"`
}

type GenerationJob struct {
	ID             string          `json:"id"`
	BatchID        string          `json:"batchId"`
	RowIndex       int             `json:"rowIndex"`
	Prospect       Prospect        `json:"prospect"`
	Status         JobStatus       `json:"status"`
	Progress       int             `json:"progress"`
	VideoURL       string          `json:"videoUrl,omitempty"`
	LandingPageURL string          `json:"landingPageUrl,omitempty"`
	Error          string          `json:"error,omitempty"`
	GenerationInfo *GenerationInfo `json:"generationInfo,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// now is truncated to microseconds, the resolution of Postgres timestamptz, so
// every store round-trips job times exactly.
func now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

func NewGenerationJob(id, batchID string, rowIndex int, p Prospect) (*GenerationJob, error) {
	if id == "" || rowIndex < 0 {
		return nil, domain.ErrInvalidArgument
	}
	created := now()
	return &GenerationJob{
		ID:        id,
		BatchID:   batchID,
		RowIndex:  rowIndex,
		Prospect:  p,
		Status:    JobStatusPending,
		Progress:  0,
		CreatedAt: created,
		UpdatedAt: created,
	}, nil
}

func (j *GenerationJob) IsTerminal() bool { return j.Status.Terminal() }

// Start moves a pending job into processing at the capture checkpoint.
func (j *GenerationJob) Start() error {
	if j.Status != JobStatusPending {
		return domain.ErrInvalidArgument
	}
	j.Status = JobStatusProcessing
	j.Progress = ProgressCapture
	j.UpdatedAt = now()
	return nil
}

// Advance raises progress while processing. Lower or equal values are ignored,
// and 100 is reserved for Complete. Returns true when the job changed.
func (j *GenerationJob) Advance(progress int) bool {
	if j.Status != JobStatusProcessing {
		return false
	}
	if progress >= ProgressDone {
		progress = ProgressDone - 1
	}
	if progress <= j.Progress {
		return false
	}
	j.Progress = progress
	j.UpdatedAt = now()
	return true
}

func (j *GenerationJob) Complete(videoURL, landingPageURL string, info *GenerationInfo) error {
	if j.IsTerminal() {
		return domain.ErrJobTerminal
	}
	j.Status = JobStatusCompleted
	j.Progress = ProgressDone
	j.VideoURL = videoURL
	j.LandingPageURL = landingPageURL
	j.GenerationInfo = info
	j.Error = ""
	j.UpdatedAt = now()
	return nil
}

// Fail moves the job to error, keeping its last progress.
func (j *GenerationJob) Fail(msg string) error {
	if j.IsTerminal() {
		return domain.ErrJobTerminal
	}
	if msg == "" {
		msg = "unknown error"
	}
	j.Status = JobStatusError
	j.Error = msg
	j.UpdatedAt = now()
	return nil
}

// Clone returns a deep copy safe to hand to readers.
func (j *GenerationJob) Clone() *GenerationJob {
	if j == nil {
		return nil
	}
	cp := *j
	if j.GenerationInfo != nil {
		info := *j.GenerationInfo
		cp.GenerationInfo = &info
	}
	return &cp
}

// JobStats is the dashboard aggregate.
type JobStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Errors     int `json:"errors"`
}
