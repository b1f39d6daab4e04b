//go:build !integration

package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
)

func openTestRepo(t *testing.T) *JobRepo {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestJobRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("missing id returns not found", func(t *testing.T) {
		repo := openTestRepo(t)
		if _, err := repo.FindByID(ctx, "missing-id"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("round trips a completed job and keeps insertion order", func(t *testing.T) {
		repo := openTestRepo(t)
		a, _ := model.NewGenerationJob("b-job-0", "b", 0, model.Prospect{FirstName: "Jean", WebsiteURL: "acme.com"})
		b, _ := model.NewGenerationJob("b-job-1", "b", 1, model.Prospect{FirstName: "Marie"})
		if err := repo.SaveAll(ctx, []*model.GenerationJob{a, b}); err != nil {
			t.Fatalf("save all: %v", err)
		}

		_ = a.Start()
		_ = a.Complete("v.mp4", "/landing/b-job-0", &model.GenerationInfo{MainVideoUsed: true, WebsiteScreenshot: "acme.com", GeneratedAt: time.Now().UTC()})
		if err := repo.Save(ctx, a); err != nil {
			t.Fatalf("save: %v", err)
		}

		got, err := repo.FindByID(ctx, "b-job-0")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.Status != model.JobStatusCompleted || got.Progress != 100 || got.Prospect.WebsiteURL != "acme.com" {
			t.Errorf("unexpected job %+v", got)
		}
		if got.GenerationInfo == nil || !got.GenerationInfo.MainVideoUsed {
			t.Errorf("generation info lost: %+v", got.GenerationInfo)
		}
		if !got.UpdatedAt.Equal(a.UpdatedAt) {
			t.Errorf("updated_at mismatch: %s vs %s", got.UpdatedAt, a.UpdatedAt)
		}

		all, _ := repo.ListAll(ctx)
		if len(all) != 2 || all[0].ID != "b-job-0" || all[1].ID != "b-job-1" {
			t.Errorf("unexpected order")
		}
		pending, _ := repo.ListByStatus(ctx, model.JobStatusPending)
		if len(pending) != 1 || pending[0].ID != "b-job-1" {
			t.Errorf("unexpected pending list")
		}
	})

	t.Run("clear empties the table", func(t *testing.T) {
		repo := openTestRepo(t)
		j, _ := model.NewGenerationJob("x", "b", 0, model.Prospect{})
		_ = repo.Save(ctx, j)
		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("clear: %v", err)
		}
		if all, _ := repo.ListAll(ctx); len(all) != 0 {
			t.Errorf("expected empty, got %d", len(all))
		}
	})
}
