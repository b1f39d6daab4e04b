package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"prospect-video-generator/internal/infra/api/apiv1"
	"prospect-video-generator/internal/infra/metrics"
)

type RouterConfig struct {
	API     *apiv1.Server
	Landing *Landing
	Hub     *apiv1.Hub // nil disables /ws

	RequestTimeout time.Duration

	// Optional per client and route limit on /api/v1.
	Limiter    Limiter
	RateLimit  int
	RateWindow time.Duration
	RateKey    func(clientID, route string) string

	Logger *zerolog.Logger
}

// NewRouter wires the public routes: /health, /metrics, /landing/{jobID},
// /ws and everything under /api/v1.
func NewRouter(c RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(c.Logger), Recover(c.Logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())
	if c.Landing != nil {
		r.Get("/landing/{jobID}", c.Landing.ServeHTTP)
	}
	if c.Hub != nil {
		r.Get("/ws", c.Hub.ServeHTTP)
	}

	timeout := c.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	keyFn := c.RateKey
	if keyFn == nil {
		keyFn = func(clientID, route string) string { return "rate_limit:" + route + ":" + clientID }
	}
	window := c.RateWindow
	if window <= 0 {
		window = time.Minute
	}
	r.Group(func(r chi.Router) {
		r.Use(Timeout(timeout), RateLimit(c.Limiter, c.RateLimit, window, keyFn, c.Logger))
		apiv1.RegisterAPIV1(r, c.API)
	})
	return r
}

type Server struct {
	srv *http.Server
	log *zerolog.Logger
}

func NewServer(port int, h http.Handler, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: &l,
	}
}

// ListenAndServe blocks until Shutdown; a clean stop returns nil.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
