package apiv1

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/usecase"
)

// JobView adds the human readable phase to a job.
type JobView struct {
	*model.GenerationJob
	Phase string `json:"phase"`
}

func viewOf(jobs []*model.GenerationJob) []JobView {
	out := make([]JobView, len(jobs))
	for i, j := range jobs {
		out[i] = JobView{GenerationJob: j, Phase: usecase.PhaseLabel(j.Status, j.Progress)}
	}
	return out
}

type BatchView struct {
	BatchID string         `json:"batchId"`
	Jobs    []JobView      `json:"jobs"`
	Stats   model.JobStats `json:"stats"`
	Done    bool           `json:"done"`
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, viewOf(jobs))
}

func (s *Server) jobStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.jobs.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, st)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, JobView{GenerationJob: job, Phase: usecase.PhaseLabel(job.Status, job.Progress)})
}

func (s *Server) clearJobs(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "jobs cleared")
}

func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.gen.Snapshot(chi.URLParam(r, "batchID"))
	if err != nil {
		writeError(w, err)
		return
	}
	st := usecase.Aggregate(jobs)
	writeData(w, http.StatusOK, BatchView{
		BatchID: chi.URLParam(r, "batchID"),
		Jobs:    viewOf(jobs),
		Stats:   st,
		Done:    st.Pending == 0 && st.Processing == 0,
	})
}

func (s *Server) abortBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "batchID")
	if err := s.gen.AbortBatch(id); err != nil {
		writeError(w, err)
		return
	}
	s.log.Info().Str("batch_id", id).Msg("batch abort requested")
	writeMessage(w, http.StatusAccepted, "batch abort requested")
}

func (s *Server) downloadVideo(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if job.Status != model.JobStatusCompleted || job.VideoURL == "" {
		writeJSON(w, http.StatusConflict, Response{
			Success: false,
			Error:   fmt.Sprintf("video not ready: job is %s", job.Status),
		})
		return
	}
	http.Redirect(w, r, job.VideoURL, http.StatusFound)
}
