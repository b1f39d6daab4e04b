package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/domain/ports/repository"
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

const staleJobMsg = "job abandoned: no running batch owns it"

// JobUseCase is the read side used by the dashboard, the landing page and
// the stale sweeper.
type JobUseCase interface {
	Get(ctx context.Context, id string) (*model.GenerationJob, error)
	List(ctx context.Context) ([]*model.GenerationJob, error)
	Stats(ctx context.Context) (model.JobStats, error)
	Clear(ctx context.Context) error
	FailStale(ctx context.Context, olderThan time.Time, live func(jobID string) bool) (int, error)
}

type jobUC struct {
	repo repository.JobRepository
	log  *zerolog.Logger
}

func NewJobUseCase(repo repository.JobRepository, logger *zerolog.Logger) *jobUC {
	return &jobUC{repo: repo, log: logger}
}

func (u *jobUC) Get(ctx context.Context, id string) (*model.GenerationJob, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrNotFound
	}
	return u.repo.FindByID(ctx, id)
}

func (u *jobUC) List(ctx context.Context) ([]*model.GenerationJob, error) {
	return u.repo.ListAll(ctx)
}

func (u *jobUC) Stats(ctx context.Context) (model.JobStats, error) {
	jobs, err := u.repo.ListAll(ctx)
	if err != nil {
		return model.JobStats{}, err
	}
	return Aggregate(jobs), nil
}

func (u *jobUC) Clear(ctx context.Context) error {
	if err := u.repo.Clear(ctx); err != nil {
		return err
	}
	u.log.Info().Msg("job store cleared")
	return nil
}

// FailStale marks non-terminal jobs that no live pipeline owns and that were
// not updated since olderThan as errored. Only creation and terminal states are
// persisted, so an orphaned job is usually still pending in the store. Progress
// stays where it froze.
func (u *jobUC) FailStale(ctx context.Context, olderThan time.Time, live func(jobID string) bool) (int, error) {
	var jobs []*model.GenerationJob
	for _, st := range []model.JobStatus{model.JobStatusPending, model.JobStatusProcessing} {
		js, err := u.repo.ListByStatus(ctx, st)
		if err != nil {
			return 0, fmt.Errorf("list %s jobs: %w", st, err)
		}
		jobs = append(jobs, js...)
	}
	failed := 0
	for _, j := range jobs {
		if live != nil && live(j.ID) {
			continue
		}
		if !j.UpdatedAt.Before(olderThan) {
			continue
		}
		if err := j.Fail(staleJobMsg); err != nil {
			if errors.Is(err, domain.ErrJobTerminal) {
				continue
			}
			return failed, err
		}
		if err := u.repo.Save(ctx, j); err != nil {
			return failed, fmt.Errorf("save stale job %s: %w", j.ID, err)
		}
		u.log.Warn().Str("job_id", j.ID).Int("progress", j.Progress).Msg("stale job failed")
		failed++
	}
	return failed, nil
}
