package api

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/infra/i18n"
	"prospect-video-generator/internal/infra/logging"
	"prospect-video-generator/internal/usecase"
)

// JobReader is the read side the landing page needs. It only consults the
// store, never a live batch.
type JobReader interface {
	Get(ctx context.Context, id string) (*model.GenerationJob, error)
}

type Landing struct {
	jobs    JobReader
	catalog *i18n.Catalog
	log     *zerolog.Logger
}

// NewLanding renders pages in the language picked from Accept-Language.
// A nil catalog serves the built-in English text.
func NewLanding(jobs JobReader, catalog *i18n.Catalog, logger *zerolog.Logger) *Landing {
	l := logger.With().Str("component", "Landing").Logger()
	return &Landing{jobs: jobs, catalog: catalog, log: &l}
}

type landingData struct {
	Lang        string
	T           func(key string, args ...any) string
	Found       bool
	Job         *model.GenerationJob
	Ready       bool
	Phase       string
	GeneratedOn string
}

func (h *Landing) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		code := http.StatusNotFound
		if !errors.Is(err, domain.ErrNotFound) {
			code = http.StatusInternalServerError
			l := logging.With(logging.WithJobID(r.Context(), id), h.log)
			l.Error().Err(err).Msg("load landing job")
		}
		h.render(w, r, code, landingData{})
		return
	}

	d := landingData{
		Found: true,
		Job:   job,
		Ready: job.Status == model.JobStatusCompleted && job.VideoURL != "",
		Phase: usecase.PhaseLabel(job.Status, job.Progress),
	}
	if job.GenerationInfo != nil {
		d.GeneratedOn = job.GenerationInfo.GeneratedAt.Format("02/01/2006")
	} else {
		d.GeneratedOn = job.UpdatedAt.Format("02/01/2006")
	}
	h.render(w, r, http.StatusOK, d)
}

func (h *Landing) render(w http.ResponseWriter, r *http.Request, code int, d landingData) {
	d.Lang, d.T = "en", fmt.Sprintf
	if h.catalog != nil {
		t := h.catalog.Pick(r.Header.Get("Accept-Language"))
		d.Lang, d.T = t.Lang(), t.T
		w.Header().Set("Content-Language", d.Lang)
	}
	w.Header().Add("Vary", "Accept-Language")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age="+cacheSeconds(d))
	w.WriteHeader(code)
	if err := landingPage.Execute(w, d); err != nil {
		h.log.Error().Err(err).Msg("render landing page")
	}
}

// Finished pages can be cached, in-progress ones must refresh.
func cacheSeconds(d landingData) string {
	if d.Ready {
		return "300"
	}
	return "0"
}

var landingPage = template.Must(template.New("landing").Parse(`<!doctype html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>{{if .Found}}{{call .T "A video for %s %s" .Job.Prospect.FirstName .Job.Prospect.LastName}}{{else}}{{call .T "Video not found"}}{{end}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:0;background:#f5f6f8;color:#1d1d1f}
.wrap{max-width:760px;margin:2rem auto;padding:0 16px}
.card{background:#fff;border:1px solid #e3e3e3;border-radius:12px;padding:24px;margin-bottom:16px}
video{width:100%;border-radius:8px;background:#000}
.btn{display:inline-block;margin-top:12px;padding:10px 16px;border-radius:8px;border:1px solid #888;text-decoration:none;color:inherit}
.muted{color:#666;font-size:14px}
dt{font-weight:600;margin-top:8px}
</style>
</head>
<body>
<div class="wrap">
{{if not .Found}}
  <div class="card">
    <h1>{{call .T "Video not found"}}</h1>
    <p class="muted">{{call .T "This link is invalid or the video has been removed."}}</p>
  </div>
{{else}}
  <div class="card">
    <h1>{{call .T "Personalized video"}}</h1>
    <p class="muted">{{call .T "Made for %s %s at %s" .Job.Prospect.FirstName .Job.Prospect.LastName .Job.Prospect.Company}}</p>
    {{if .Ready}}
      <video src="{{.Job.VideoURL}}" controls preload="metadata"></video>
      <a class="btn" href="{{.Job.VideoURL}}" download>{{call .T "Download"}}</a>
    {{else}}
      <p>{{call .T .Phase}}</p>
      {{if .Job.Error}}<p class="muted">{{.Job.Error}}</p>{{end}}
    {{end}}
  </div>
  <div class="card">
    <h2>{{call .T "Prospect"}}</h2>
    <dl>
      <dt>{{call .T "Name"}}</dt><dd>{{.Job.Prospect.FirstName}} {{.Job.Prospect.LastName}}</dd>
      <dt>{{call .T "Company"}}</dt><dd>{{.Job.Prospect.Company}}</dd>
      <dt>{{call .T "Website"}}</dt><dd><a href="{{.Job.Prospect.WebsiteURL}}" target="_blank" rel="noopener noreferrer">{{.Job.Prospect.WebsiteURL}}</a></dd>
    </dl>
    {{with .Job.GenerationInfo}}
    <p class="muted">{{call $.T "Generated on %s" $.GeneratedOn}}{{if .SecondaryVideoUsed}}{{call $.T " with an outro video"}}{{end}}</p>
    {{end}}
  </div>
{{end}}
</div>
</body>
</html>`))
