//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"prospect-video-generator/internal/domain"
)

// --- GenerationJob Tests ---

func TestNewGenerationJob(t *testing.T) {
	t.Run("should create a pending job at zero progress", func(t *testing.T) {
		p := Prospect{FirstName: "Jean", LastName: "Dupont", Company: "Acme", WebsiteURL: "acme.com"}
		job, err := NewGenerationJob("b1-job-0", "b1", 0, p)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if job.Status != JobStatusPending {
			t.Errorf("expected status pending, got %s", job.Status)
		}
		if job.Progress != 0 {
			t.Errorf("expected progress 0, got %d", job.Progress)
		}
		if job.Prospect != p {
			t.Errorf("prospect mismatch: %+v", job.Prospect)
		}
		if job.VideoURL != "" || job.LandingPageURL != "" || job.Error != "" || job.GenerationInfo != nil {
			t.Error("terminal fields must be empty on creation")
		}
	})

	t.Run("should fail with empty id", func(t *testing.T) {
		job, err := NewGenerationJob("", "b1", 0, Prospect{})
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if job != nil {
			t.Error("expected nil job on error")
		}
	})
}

func TestGenerationJobTransitions(t *testing.T) {
	newJob := func(t *testing.T) *GenerationJob {
		t.Helper()
		job, err := NewGenerationJob("j", "b", 0, Prospect{WebsiteURL: "acme.com"})
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
		return job
	}

	t.Run("start moves to processing at the capture checkpoint", func(t *testing.T) {
		job := newJob(t)
		if err := job.Start(); err != nil {
			t.Fatalf("start: %v", err)
		}
		if job.Status != JobStatusProcessing || job.Progress != ProgressCapture {
			t.Errorf("unexpected state %s/%d", job.Status, job.Progress)
		}
		if err := job.Start(); err == nil {
			t.Error("second start should fail")
		}
	})

	t.Run("advance never decreases and never reaches 100", func(t *testing.T) {
		job := newJob(t)
		_ = job.Start()
		if !job.Advance(ProgressOverlay) {
			t.Fatal("expected advance to 40")
		}
		if job.Advance(20) {
			t.Error("advance to a lower value should be ignored")
		}
		if job.Progress != ProgressOverlay {
			t.Errorf("expected progress 40, got %d", job.Progress)
		}
		job.Advance(150)
		if job.Progress != 99 {
			t.Errorf("expected progress clamped to 99, got %d", job.Progress)
		}
	})

	t.Run("advance is ignored outside processing", func(t *testing.T) {
		job := newJob(t)
		if job.Advance(40) {
			t.Error("pending job must not advance")
		}
	})

	t.Run("complete pins progress at 100 and sets urls", func(t *testing.T) {
		job := newJob(t)
		_ = job.Start()
		info := &GenerationInfo{MainVideoUsed: true}
		if err := job.Complete("v.mp4", "/landing/j", info); err != nil {
			t.Fatalf("complete: %v", err)
		}
		if job.Progress != ProgressDone || job.Status != JobStatusCompleted {
			t.Errorf("unexpected state %s/%d", job.Status, job.Progress)
		}
		if job.VideoURL != "v.mp4" || job.LandingPageURL != "/landing/j" {
			t.Error("urls not set")
		}
		if err := job.Fail("late"); !errors.Is(err, domain.ErrJobTerminal) {
			t.Errorf("expected ErrJobTerminal, got %v", err)
		}
	})

	t.Run("fail freezes progress", func(t *testing.T) {
		job := newJob(t)
		_ = job.Start()
		job.Advance(ProgressOverlay)
		if err := job.Fail("website unreachable"); err != nil {
			t.Fatalf("fail: %v", err)
		}
		if job.Status != JobStatusError || job.Progress != ProgressOverlay || job.Error == "" {
			t.Errorf("unexpected state %+v", job)
		}
		if job.Advance(70) {
			t.Error("errored job must not advance")
		}
	})

	t.Run("clone does not share generation info", func(t *testing.T) {
		job := newJob(t)
		_ = job.Start()
		_ = job.Complete("v", "l", &GenerationInfo{WebsiteScreenshot: "acme.com"})
		cp := job.Clone()
		cp.GenerationInfo.WebsiteScreenshot = "changed"
		if job.GenerationInfo.WebsiteScreenshot != "acme.com" {
			t.Error("clone shares GenerationInfo pointer")
		}
	})
}

// --- MappingConfig Tests ---

func TestMappingConfig(t *testing.T) {
	full := MappingConfig{FirstName: "a", LastName: "b", Company: "c", WebsiteURL: "d"}
	if !full.Complete() {
		t.Fatal("expected complete mapping")
	}
	if len(full.Missing()) != 0 {
		t.Errorf("expected no missing fields, got %v", full.Missing())
	}

	cases := map[string]MappingConfig{
		"firstName":  {LastName: "b", Company: "c", WebsiteURL: "d"},
		"lastName":   {FirstName: "a", Company: "c", WebsiteURL: "d"},
		"company":    {FirstName: "a", LastName: "b", WebsiteURL: "d"},
		"websiteUrl": {FirstName: "a", LastName: "b", Company: "c"},
	}
	for field, m := range cases {
		t.Run("missing "+field, func(t *testing.T) {
			if m.Complete() {
				t.Error("expected incomplete mapping")
			}
			missing := m.Missing()
			if len(missing) != 1 || missing[0] != field {
				t.Errorf("expected [%s], got %v", field, missing)
			}
		})
	}

	t.Run("prospect projection fills absent keys with empty strings", func(t *testing.T) {
		p := full.Prospect(map[string]string{"a": "Jean", "c": "Acme"})
		if p.FirstName != "Jean" || p.Company != "Acme" || p.LastName != "" || p.WebsiteURL != "" {
			t.Errorf("unexpected prospect %+v", p)
		}
	})
}

func TestJobTimesHaveMicrosecondResolution(t *testing.T) {
	job, err := NewGenerationJob("b1-job-0", "b1", 0, Prospect{})
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if !job.CreatedAt.Equal(job.CreatedAt.Truncate(time.Microsecond)) {
		t.Errorf("created_at carries sub-microsecond digits: %s", job.CreatedAt)
	}
	if err := job.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	job.Advance(ProgressOverlay)
	if err := job.Fail("boom"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if job.UpdatedAt.Nanosecond()%1000 != 0 {
		t.Errorf("updated_at carries sub-microsecond digits: %s", job.UpdatedAt)
	}
	if job.UpdatedAt.Location() != time.UTC {
		t.Errorf("expected UTC, got %s", job.UpdatedAt.Location())
	}
}
