//go:build !integration

package usecase_test

import (
	"errors"
	"reflect"
	"testing"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/usecase"
)

func TestParseCSV(t *testing.T) {
	t.Run("should key every row by header", func(t *testing.T) {
		data, err := usecase.ParseCSV("prenom, nom ,entreprise,url\nJean,Dupont,Acme,acme.com\n\n  \nMarie,Curie,Beta,beta.io\n")
		if err != nil {
			t.Fatalf("expected no error, but got %v", err)
		}
		wantHeaders := []string{"prenom", "nom", "entreprise", "url"}
		if !reflect.DeepEqual(data.Headers, wantHeaders) {
			t.Errorf("expected headers %v, got %v", wantHeaders, data.Headers)
		}
		if len(data.Rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(data.Rows))
		}
		for i, row := range data.Rows {
			if len(row) != len(data.Headers) {
				t.Errorf("row %d has %d keys, want %d", i, len(row), len(data.Headers))
			}
		}
		if data.Rows[1]["entreprise"] != "Beta" {
			t.Errorf("unexpected row: %v", data.Rows[1])
		}
	})

	t.Run("should pad short rows and drop extra fields", func(t *testing.T) {
		data, err := usecase.ParseCSV("a,b,c\n1\n1,2,3,4")
		if err != nil {
			t.Fatalf("expected no error, but got %v", err)
		}
		if got := data.Rows[0]; got["a"] != "1" || got["b"] != "" || got["c"] != "" {
			t.Errorf("short row not padded: %v", got)
		}
		if got := data.Rows[1]; len(got) != 3 || got["c"] != "3" {
			t.Errorf("extra field not dropped: %v", got)
		}
	})

	t.Run("should accept a header-only file", func(t *testing.T) {
		data, err := usecase.ParseCSV("a,b\n")
		if err != nil {
			t.Fatalf("expected no error, but got %v", err)
		}
		if len(data.Rows) != 0 {
			t.Errorf("expected no rows, got %d", len(data.Rows))
		}
	})

	t.Run("should reject blank input", func(t *testing.T) {
		for _, in := range []string{"", "\n\n", "   \n\t\n"} {
			if _, err := usecase.ParseCSV(in); !errors.Is(err, domain.ErrParse) {
				t.Errorf("input %q: expected ErrParse, got %v", in, err)
			}
		}
	})

	t.Run("preview is bounded", func(t *testing.T) {
		data, _ := usecase.ParseCSV("a\n1\n2\n3\n4\n5\n6\n7")
		if got := usecase.PreviewRows(data, usecase.DefaultPreviewRows); len(got) != 5 {
			t.Errorf("expected 5 preview rows, got %d", len(got))
		}
		if got := usecase.PreviewRows(data, 50); len(got) != 7 {
			t.Errorf("expected 7 preview rows, got %d", len(got))
		}
	})
}

func TestAutoDetectMapping(t *testing.T) {
	t.Run("should detect french headers", func(t *testing.T) {
		got := usecase.AutoDetectMapping([]string{"Prenom", "Nom", "Entreprise", "Site web"})
		want := model.MappingConfig{FirstName: "Prenom", LastName: "Nom", Company: "Entreprise", WebsiteURL: "Site web"}
		if got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	})

	t.Run("first matching header wins", func(t *testing.T) {
		got := usecase.AutoDetectMapping([]string{"company", "company_name", "website", "url"})
		if got.Company != "company" || got.WebsiteURL != "website" {
			t.Errorf("unexpected mapping %+v", got)
		}
		if got.FirstName != "" || got.LastName != "" {
			t.Errorf("expected unmatched fields to stay empty, got %+v", got)
		}
	})

	t.Run("is deterministic and assigns one header per field", func(t *testing.T) {
		headers := []string{"first_name", "last_name", "Societe", "URL", "notes"}
		a := usecase.AutoDetectMapping(headers)
		b := usecase.AutoDetectMapping(headers)
		if a != b {
			t.Fatalf("mapping not idempotent: %+v vs %+v", a, b)
		}
		want := model.MappingConfig{FirstName: "first_name", LastName: "last_name", Company: "Societe", WebsiteURL: "URL"}
		if a != want {
			t.Errorf("expected %+v, got %+v", want, a)
		}
	})

	t.Run("custom table", func(t *testing.T) {
		m := usecase.NewMapper([]usecase.KeywordRule{{Field: usecase.FieldCompany, Keywords: []string{"org"}}})
		if got := m.AutoDetect([]string{"Organisation"}); got.Company != "Organisation" {
			t.Errorf("expected company mapped, got %+v", got)
		}
	})
}

func TestValidateMapping(t *testing.T) {
	full := model.MappingConfig{FirstName: "name", LastName: "name", Company: "company", WebsiteURL: "url"}

	if _, ok := usecase.ValidateMapping(full); !ok {
		t.Error("expected complete mapping to validate, duplicate headers allowed")
	}
	if _, ok := usecase.ValidateMapping(model.MappingConfig{FirstName: "a", LastName: "b", Company: "c"}); ok {
		t.Error("expected incomplete mapping to fail")
	}
	if _, ok := usecase.ValidateMappingFor(full, []string{"name", "company", "url"}); !ok {
		t.Error("expected mapping over existing headers to validate")
	}
	if _, ok := usecase.ValidateMappingFor(full, []string{"name", "company"}); ok {
		t.Error("expected mapping to an absent header to fail")
	}
}

func TestAggregate(t *testing.T) {
	mk := func(s model.JobStatus) *model.GenerationJob { return &model.GenerationJob{ID: string(s), Status: s} }
	jobs := []*model.GenerationJob{
		mk(model.JobStatusPending), mk(model.JobStatusPending),
		mk(model.JobStatusProcessing),
		mk(model.JobStatusCompleted), mk(model.JobStatusCompleted), mk(model.JobStatusCompleted),
		mk(model.JobStatusError),
		mk("bogus"), nil,
	}

	got := usecase.Aggregate(jobs)
	want := model.JobStats{Total: 7, Pending: 2, Processing: 1, Completed: 3, Errors: 1}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if got.Pending+got.Processing+got.Completed+got.Errors != got.Total {
		t.Error("buckets must sum to total")
	}
	if empty := usecase.Aggregate(nil); empty != (model.JobStats{}) {
		t.Errorf("expected zero stats, got %+v", empty)
	}
}

func TestPhaseLabel(t *testing.T) {
	cases := []struct {
		status   model.JobStatus
		progress int
		want     string
	}{
		{model.JobStatusPending, 0, "Pending"},
		{model.JobStatusProcessing, 15, "Capturing website..."},
		{model.JobStatusProcessing, 19, "Capturing website..."},
		{model.JobStatusProcessing, 20, "Overlaying video bubble..."},
		{model.JobStatusProcessing, 49, "Overlaying video bubble..."},
		{model.JobStatusProcessing, 50, "Concatenating videos..."},
		{model.JobStatusProcessing, 79, "Concatenating videos..."},
		{model.JobStatusProcessing, 80, "Finalizing..."},
		{model.JobStatusProcessing, 99, "Finalizing..."},
		{model.JobStatusCompleted, 100, "Completed"},
		{model.JobStatusError, 40, "Error"},
		{"bogus", 0, "Unknown"},
	}
	for _, tc := range cases {
		if got := usecase.PhaseLabel(tc.status, tc.progress); got != tc.want {
			t.Errorf("PhaseLabel(%s, %d) = %q, want %q", tc.status, tc.progress, got, tc.want)
		}
	}
}
