package apiv1

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"prospect-video-generator/internal/domain/ports/adapter"
	"prospect-video-generator/internal/usecase"
)

const defaultMaxUpload = 512 << 20

type Server struct {
	gen       usecase.GenerationUseCase
	jobs      usecase.JobUseCase
	uploader  adapter.AssetUploader
	auth      *AuthManager
	csvs      *csvStore
	maxUpload int64
	log       *zerolog.Logger
}

type Option func(*Server)

// WithUploader forwards uploads to the asset service. Without it video
// uploads answer 503 and CSV uploads are kept locally.
func WithUploader(u adapter.AssetUploader) Option {
	return func(s *Server) { s.uploader = u }
}

// WithAuth requires a bearer token on mutating routes.
func WithAuth(a *AuthManager) Option {
	return func(s *Server) { s.auth = a }
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

func NewServer(gen usecase.GenerationUseCase, jobs usecase.JobUseCase, logger *zerolog.Logger, opts ...Option) *Server {
	l := logger.With().Str("component", "apiv1").Logger()
	s := &Server{
		gen:       gen,
		jobs:      jobs,
		csvs:      newCSVStore(defaultCSVCapacity),
		maxUpload: defaultMaxUpload,
		log:       &l,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RegisterAPIV1 mounts every route under absolute /api/v1 paths.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/jobs", s.listJobs)
		r.Get("/jobs/stats", s.jobStats)
		r.Get("/jobs/{jobID}", s.getJob)
		r.Get("/batches/{batchID}", s.getBatch)
		r.Get("/videos/{jobID}/download", s.downloadVideo)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/upload/video", s.uploadVideo)
			r.Post("/upload/csv", s.uploadCSV)
			r.Post("/csv/parse", s.parseCSV)
			r.Post("/generate", s.generate)
			r.Delete("/batches/{batchID}", s.abortBatch)
			r.Delete("/jobs", s.clearJobs)
		})
	})
}
