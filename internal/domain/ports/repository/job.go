package repository

import (
	"context"

	"prospect-video-generator/internal/domain/model"
)

// JobRepository is the durable side of job state. Readers (dashboard, landing)
// resolve jobs through it without a live orchestrator.
type JobRepository interface {
	// Save upserts by ID: an existing job is replaced entirely, a new one is appended.
	Save(ctx context.Context, job *model.GenerationJob) error
	// SaveAll upserts a whole batch atomically, preserving slice order for new jobs.
	SaveAll(ctx context.Context, jobs []*model.GenerationJob) error
	// FindByID returns domain.ErrNotFound when the id is unknown.
	FindByID(ctx context.Context, id string) (*model.GenerationJob, error)
	// ListAll returns jobs in first-insert order.
	ListAll(ctx context.Context) ([]*model.GenerationJob, error)
	// ListByStatus is used by the stale sweeper.
	ListByStatus(ctx context.Context, status model.JobStatus) ([]*model.GenerationJob, error)
	Clear(ctx context.Context) error
}
