package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS generation_jobs (
  seq              INTEGER PRIMARY KEY AUTOINCREMENT,
  id               TEXT NOT NULL UNIQUE,
  batch_id         TEXT NOT NULL,
  row_index        INTEGER NOT NULL,
  prospect_json    TEXT NOT NULL,
  status           TEXT NOT NULL,
  progress         INTEGER NOT NULL DEFAULT 0,
  video_url        TEXT NOT NULL DEFAULT '',
  landing_page_url TEXT NOT NULL DEFAULT '',
  error            TEXT NOT NULL DEFAULT '',
  generation_info  TEXT,
  created_at       TEXT NOT NULL,
  updated_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generation_jobs_status ON generation_jobs(status);`

// JobRepo persists jobs in a single SQLite file (WAL mode).
type JobRepo struct {
	db   *sql.DB
	path string
}

// Open creates the parent directory and schema if needed. Use ":memory:" for tests.
func Open(path string) (*JobRepo, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &JobRepo{db: db, path: path}, nil
}

func (r *JobRepo) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) {
			return lastErr
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

const upsertSQL = `
INSERT INTO generation_jobs (
  id, batch_id, row_index, prospect_json, status, progress,
  video_url, landing_page_url, error, generation_info, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  batch_id = excluded.batch_id,
  row_index = excluded.row_index,
  prospect_json = excluded.prospect_json,
  status = excluded.status,
  progress = excluded.progress,
  video_url = excluded.video_url,
  landing_page_url = excluded.landing_page_url,
  error = excluded.error,
  generation_info = excluded.generation_info,
  updated_at = excluded.updated_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, ex execer, j *model.GenerationJob) error {
	prospect, err := json.Marshal(j.Prospect)
	if err != nil {
		return fmt.Errorf("encode prospect: %w", err)
	}
	var info sql.NullString
	if j.GenerationInfo != nil {
		b, err := json.Marshal(j.GenerationInfo)
		if err != nil {
			return fmt.Errorf("encode generation info: %w", err)
		}
		info = sql.NullString{String: string(b), Valid: true}
	}
	_, err = ex.ExecContext(ctx, upsertSQL,
		j.ID, j.BatchID, j.RowIndex, string(prospect), string(j.Status), j.Progress,
		j.VideoURL, j.LandingPageURL, j.Error, info,
		j.CreatedAt.UTC().Format(time.RFC3339Nano), j.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (r *JobRepo) Save(ctx context.Context, job *model.GenerationJob) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidArgument
	}
	return retryOnBusy(ctx, func() error { return upsert(ctx, r.db, job) })
}

func (r *JobRepo) SaveAll(ctx context.Context, jobs []*model.GenerationJob) error {
	for _, j := range jobs {
		if j == nil || j.ID == "" {
			return domain.ErrInvalidArgument
		}
	}
	return retryOnBusy(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		for _, j := range jobs {
			if err := upsert(ctx, tx, j); err != nil {
				return fmt.Errorf("save job %s: %w", j.ID, err)
			}
		}
		return tx.Commit()
	})
}

const selectSQL = `
SELECT id, batch_id, row_index, prospect_json, status, progress,
       video_url, landing_page_url, error, generation_info, created_at, updated_at
  FROM generation_jobs`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*model.GenerationJob, error) {
	var (
		j                model.GenerationJob
		prospect, status string
		info             sql.NullString
		created, updated string
	)
	if err := row.Scan(&j.ID, &j.BatchID, &j.RowIndex, &prospect, &status, &j.Progress,
		&j.VideoURL, &j.LandingPageURL, &j.Error, &info, &created, &updated); err != nil {
		return nil, err
	}
	j.Status = model.JobStatus(status)
	if err := json.Unmarshal([]byte(prospect), &j.Prospect); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	if info.Valid && info.String != "" {
		j.GenerationInfo = &model.GenerationInfo{}
		if err := json.Unmarshal([]byte(info.String), j.GenerationInfo); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	var err error
	if j.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	if j.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return &j, nil
}

func (r *JobRepo) FindByID(ctx context.Context, id string) (*model.GenerationJob, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, selectSQL+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *JobRepo) list(ctx context.Context, where string, args ...any) ([]*model.GenerationJob, error) {
	rows, err := r.db.QueryContext(ctx, selectSQL+where+` ORDER BY seq`, args...)
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

func (r *JobRepo) ListAll(ctx context.Context) ([]*model.GenerationJob, error) {
	return r.list(ctx, "")
}

func (r *JobRepo) ListByStatus(ctx context.Context, status model.JobStatus) ([]*model.GenerationJob, error) {
	return r.list(ctx, ` WHERE status = ?`, string(status))
}

func (r *JobRepo) Clear(ctx context.Context) error {
	return retryOnBusy(ctx, func() error {
		_, err := r.db.ExecContext(ctx, `DELETE FROM generation_jobs`)
		return err
	})
}
