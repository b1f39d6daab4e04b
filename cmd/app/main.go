// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"prospect-video-generator/internal/config"
	"prospect-video-generator/internal/domain/ports/adapter"
	"prospect-video-generator/internal/domain/ports/repository"
	tele "prospect-video-generator/internal/infra/adapters/telegram"
	"prospect-video-generator/internal/infra/adapters/upload"
	"prospect-video-generator/internal/infra/adapters/video"
	"prospect-video-generator/internal/infra/api"
	"prospect-video-generator/internal/infra/api/apiv1"
	pg "prospect-video-generator/internal/infra/db/postgres"
	"prospect-video-generator/internal/infra/db/sqlite"
	"prospect-video-generator/internal/infra/i18n"
	"prospect-video-generator/internal/infra/logging"
	"prospect-video-generator/internal/infra/memstore"
	"prospect-video-generator/internal/infra/metrics"
	red "prospect-video-generator/internal/infra/redis"
	"prospect-video-generator/internal/infra/sched"
	"prospect-video-generator/internal/infra/worker"
	"prospect-video-generator/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	// ---- Redis (optional) ----
	var redisClient *red.Client
	if cfg.Redis.URL != "" {
		c, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer c.Close()
		redisClient = c
	}

	// ---- Job store ----
	repo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	if cfg.Store.Cache {
		repo = red.NewJobRepoCacheDecorator(repo, redisClient, cfg.Redis.TTL, logger)
	}

	// ---- Video processor ----
	processor, estimate, err := buildProcessor(cfg, logger)
	if err != nil {
		return err
	}
	processor = video.NewLimited(processor, cfg.Processor.ConcurrentLimit)

	// ---- Notifier ----
	var notifier adapter.BatchNotifier = tele.NewNoopNotifier(logger)
	if cfg.Notify.TelegramToken != "" {
		n, err := tele.NewNotifier(cfg.Notify.TelegramToken, cfg.Notify.ChatID, cfg.HTTP.PublicBaseURL, logger)
		if err != nil {
			return err
		}
		notifier = n
	}

	// ---- Worker pool ----
	poolCtx, cancelPool := context.WithCancel(context.Background())
	defer cancelPool()
	pool := worker.NewPool(cfg.Orchestrator.Workers, logger)
	pool.Start(poolCtx)
	defer pool.Stop()

	// ---- Use cases ----
	gen := usecase.NewGenerationUseCase(repo, processor, pool, notifier, usecase.GenerationConfig{
		Stagger:          cfg.Orchestrator.Stagger,
		JobTimeout:       cfg.Orchestrator.JobTimeout,
		PipelineEstimate: estimate,
		RetainedBatches:  cfg.Orchestrator.RetainedBatches,
	}, logger)
	jobUC := usecase.NewJobUseCase(repo, logger)

	jobMetrics := metrics.NewJobObserver()
	defer gen.Subscribe(jobMetrics.Observe)()
	hub := apiv1.NewHub(logger)
	defer hub.Close()
	defer gen.Subscribe(hub.Broadcast)()

	// ---- Push feed (optional) ----
	if cfg.Feed.URL != "" {
		consumer := worker.NewUpdateConsumer(video.NewWSFeed(cfg.Feed.URL, logger), gen, logger)
		go consumer.Start(ctx)
	}

	// ---- Stale job sweeper ----
	sweeper := sched.NewStaleWorker(cfg.Orchestrator.SweepInterval, cfg.Orchestrator.JobTimeout, jobUC, gen.Owns, logger)
	if redisClient != nil {
		sweeper.WithLocker(red.NewLocker(redisClient), func(err error) bool { return errors.Is(err, red.ErrLockHeld) })
	}
	go func() { _ = sweeper.Run(ctx) }()

	// ---- HTTP ----
	opts := []apiv1.Option{apiv1.WithMaxUploadBytes(cfg.HTTP.MaxUploadMB << 20)}
	if cfg.Uploader.BaseURL != "" {
		up, err := upload.NewHTTPUploader(cfg.Uploader.BaseURL, cfg.Uploader.APIKey, cfg.Uploader.Timeout, logger)
		if err != nil {
			return fmt.Errorf("uploader: %w", err)
		}
		opts = append(opts, apiv1.WithUploader(up))
	}
	if cfg.Auth.Secret != "" {
		opts = append(opts, apiv1.WithAuth(apiv1.NewAuthManager(cfg.Auth.Secret, cfg.Auth.TTL)))
	}
	catalog, err := i18n.NewCatalog(i18n.LocalesFS, "en", "fr")
	if err != nil {
		return fmt.Errorf("load locales: %w", err)
	}
	rc := api.RouterConfig{
		API:            apiv1.NewServer(gen, jobUC, logger, opts...),
		Landing:        api.NewLanding(jobUC, catalog, logger),
		Hub:            hub,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Logger:         logger,
	}
	if cfg.HTTP.RateLimit > 0 && redisClient != nil {
		rc.Limiter = red.NewRateLimiter(redisClient)
		rc.RateLimit = cfg.HTTP.RateLimit
		rc.RateWindow = time.Minute
		rc.RateKey = red.ClientRouteKey
	}
	server := api.NewServer(cfg.HTTP.Port, api.NewRouter(rc), logger)

	errc := make(chan error, 1)
	go func() { errc <- server.ListenAndServe() }()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	if err := gen.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("orchestrator shutdown")
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (repository.JobRepository, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := pg.NewPgxPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		logger.Info().Str("driver", "postgres").Msg("job store ready")
		return pg.NewPostgresJobRepo(pool, pg.NewTxManager(pool)), pool.Close, nil
	case "sqlite":
		repo, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		logger.Info().Str("driver", "sqlite").Str("path", cfg.SQLite.Path).Msg("job store ready")
		return repo, func() { _ = repo.Close() }, nil
	default:
		logger.Info().Str("driver", "memory").Msg("job store ready")
		return memstore.NewJobRepo(), func() {}, nil
	}
}

// buildProcessor also returns the expected per-job pipeline duration used for
// batch estimates.
func buildProcessor(cfg *config.Config, logger *zerolog.Logger) (adapter.VideoProcessor, time.Duration, error) {
	timings := video.DefaultTimings()
	estimate := timings.Total(true)
	switch cfg.Processor.Mode {
	case "http":
		p, err := video.NewHTTPProcessor(cfg.Processor.BaseURL, cfg.Processor.APIKey, cfg.Processor.PollInterval, logger)
		if err != nil {
			return nil, 0, fmt.Errorf("processor: %w", err)
		}
		logger.Info().Str("base_url", cfg.Processor.BaseURL).Msg("video processor: http")
		return p, estimate, nil
	default:
		logger.Info().Msg("video processor: simulated")
		return video.NewSimulatedProcessor(timings, cfg.HTTP.PublicBaseURL, logger), estimate, nil
	}
}

