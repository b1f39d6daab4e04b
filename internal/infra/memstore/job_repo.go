package memstore

import (
	"context"
	"sync"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.JobRepository = (*JobRepo)(nil)

// JobRepo keeps jobs in process memory. Readers get copies, so callers never
// share state with the store.
type JobRepo struct {
	mu    sync.RWMutex
	order []string
	jobs  map[string]*model.GenerationJob
}

func NewJobRepo() *JobRepo {
	return &JobRepo{jobs: make(map[string]*model.GenerationJob)}
}

func (r *JobRepo) putLocked(job *model.GenerationJob) {
	if _, ok := r.jobs[job.ID]; !ok {
		r.order = append(r.order, job.ID)
	}
	r.jobs[job.ID] = job.Clone()
}

func (r *JobRepo) Save(ctx context.Context, job *model.GenerationJob) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(job)
	return nil
}

// SaveAll validates the whole slice before touching the store.
func (r *JobRepo) SaveAll(ctx context.Context, jobs []*model.GenerationJob) error {
	for _, j := range jobs {
		if j == nil || j.ID == "" {
			return domain.ErrInvalidArgument
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range jobs {
		r.putLocked(j)
	}
	return nil
}

func (r *JobRepo) FindByID(ctx context.Context, id string) (*model.GenerationJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j.Clone(), nil
}

func (r *JobRepo) ListAll(ctx context.Context) ([]*model.GenerationJob, error) {
	return r.list(func(*model.GenerationJob) bool { return true }), nil
}

func (r *JobRepo) ListByStatus(ctx context.Context, status model.JobStatus) ([]*model.GenerationJob, error) {
	return r.list(func(j *model.GenerationJob) bool { return j.Status == status }), nil
}

func (r *JobRepo) list(keep func(*model.GenerationJob) bool) []*model.GenerationJob {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.GenerationJob, 0, len(r.order))
	for _, id := range r.order {
		if j := r.jobs[id]; keep(j) {
			out = append(out, j.Clone())
		}
	}
	return out
}

func (r *JobRepo) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.jobs = make(map[string]*model.GenerationJob)
	return nil
}
