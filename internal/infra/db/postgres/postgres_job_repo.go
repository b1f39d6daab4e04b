package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*PostgresJobRepo)(nil)

type PostgresJobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewPostgresJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *PostgresJobRepo {
	return &PostgresJobRepo{pool: pool, tm: tm}
}

const upsertJobSQL = `
INSERT INTO generation_jobs (
  id, batch_id, row_index, prospect, status, progress,
  video_url, landing_page_url, error, generation_info, created_at, updated_at
) VALUES (
  $1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9, $10::jsonb, $11, $12
) ON CONFLICT (id) DO UPDATE SET
  batch_id = EXCLUDED.batch_id,
  row_index = EXCLUDED.row_index,
  prospect = EXCLUDED.prospect,
  status = EXCLUDED.status,
  progress = EXCLUDED.progress,
  video_url = EXCLUDED.video_url,
  landing_page_url = EXCLUDED.landing_page_url,
  error = EXCLUDED.error,
  generation_info = EXCLUDED.generation_info,
  updated_at = EXCLUDED.updated_at;`

const selectJobSQL = `
SELECT id, batch_id, row_index, prospect, status, progress,
       video_url, landing_page_url, error, generation_info, created_at, updated_at
  FROM generation_jobs`

func (r *PostgresJobRepo) save(ctx context.Context, tx repository.Tx, j *model.GenerationJob) error {
	prospect, err := json.Marshal(j.Prospect)
	if err != nil {
		return fmt.Errorf("encode prospect: %w", err)
	}
	var info *string
	if j.GenerationInfo != nil {
		b, err := json.Marshal(j.GenerationInfo)
		if err != nil {
			return fmt.Errorf("encode generation info: %w", err)
		}
		s := string(b)
		info = &s
	}
	_, err = execSQL(ctx, r.pool, tx, upsertJobSQL,
		j.ID, j.BatchID, j.RowIndex, string(prospect), string(j.Status), j.Progress,
		j.VideoURL, j.LandingPageURL, j.Error, info, j.CreatedAt, j.UpdatedAt)
	return err
}

func (r *PostgresJobRepo) Save(ctx context.Context, job *model.GenerationJob) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidArgument
	}
	return r.save(ctx, repository.NoTX, job)
}

// SaveAll upserts in one transaction; new rows get increasing seq values in slice order.
func (r *PostgresJobRepo) SaveAll(ctx context.Context, jobs []*model.GenerationJob) error {
	for _, j := range jobs {
		if j == nil || j.ID == "" {
			return domain.ErrInvalidArgument
		}
	}
	return r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, j := range jobs {
			if err := r.save(ctx, tx, j); err != nil {
				return fmt.Errorf("save job %s: %w", j.ID, err)
			}
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.GenerationJob, error) {
	var (
		j        model.GenerationJob
		status   string
		prospect []byte
		info     []byte
	)
	if err := row.Scan(&j.ID, &j.BatchID, &j.RowIndex, &prospect, &status, &j.Progress,
		&j.VideoURL, &j.LandingPageURL, &j.Error, &info, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	j.Status = model.JobStatus(status)
	if err := json.Unmarshal(prospect, &j.Prospect); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	if len(info) > 0 {
		j.GenerationInfo = &model.GenerationInfo{}
		if err := json.Unmarshal(info, j.GenerationInfo); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &j, nil
}

func (r *PostgresJobRepo) FindByID(ctx context.Context, id string) (*model.GenerationJob, error) {
	row, err := pickRow(ctx, r.pool, repository.NoTX, selectJobSQL+` WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *PostgresJobRepo) list(ctx context.Context, where string, args ...interface{}) ([]*model.GenerationJob, error) {
	rows, err := queryRows(ctx, r.pool, repository.NoTX, selectJobSQL+where+` ORDER BY seq;`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.GenerationJob, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *PostgresJobRepo) ListAll(ctx context.Context) ([]*model.GenerationJob, error) {
	return r.list(ctx, "")
}

func (r *PostgresJobRepo) ListByStatus(ctx context.Context, status model.JobStatus) ([]*model.GenerationJob, error) {
	return r.list(ctx, ` WHERE status = $1`, string(status))
}

func (r *PostgresJobRepo) Clear(ctx context.Context) error {
	_, err := execSQL(ctx, r.pool, repository.NoTX, `TRUNCATE generation_jobs RESTART IDENTITY;`)
	return err
}
