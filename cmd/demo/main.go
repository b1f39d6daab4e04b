// File: cmd/demo/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prospect-video-generator/internal/config"
	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/domain/ports/repository"
	tele "prospect-video-generator/internal/infra/adapters/telegram"
	"prospect-video-generator/internal/infra/adapters/video"
	"prospect-video-generator/internal/infra/db/sqlite"
	"prospect-video-generator/internal/infra/logging"
	"prospect-video-generator/internal/infra/memstore"
	"prospect-video-generator/internal/infra/worker"
	"prospect-video-generator/internal/usecase"
)

func main() {
	csvPath := flag.String("csv", "", "prospects CSV file (required)")
	mainRef := flag.String("main", "", "main video reference (required)")
	secondaryRef := flag.String("secondary", "", "optional secondary video reference")
	store := flag.String("store", "memory", "job store: memory|sqlite")
	sqlitePath := flag.String("sqlite-path", "prospect-videos.db", "sqlite database file")
	speed := flag.Int("speed", 1, "divide pipeline delays by this factor")
	stagger := flag.Duration("stagger", usecase.DefaultStagger, "delay between job starts")
	verbose := flag.Bool("v", false, "log every job transition")
	flag.Parse()

	if *csvPath == "" || *mainRef == "" {
		flag.Usage()
		os.Exit(2)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := logging.New(config.LogConfig{Level: level, Format: "console"}, true)

	raw, err := os.ReadFile(*csvPath)
	if err != nil {
		log.Fatalf("read csv: %v", err)
	}
	data, err := usecase.ParseCSV(string(raw))
	if err != nil {
		log.Fatalf("csv: %v", err)
	}
	mapping := usecase.AutoDetectMapping(data.Headers)
	if !mapping.Complete() {
		log.Fatalf("could not map columns %v: missing %v", data.Headers, mapping.Missing())
	}

	var repo repository.JobRepository = memstore.NewJobRepo()
	if *store == "sqlite" {
		r, err := sqlite.Open(*sqlitePath)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		defer r.Close()
		repo = r
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := worker.NewPool(min(len(data.Rows), 32), logger)
	pool.Start(context.Background())
	defer pool.Stop()

	timings := video.DefaultTimings().Scaled(*speed)
	gen := usecase.NewGenerationUseCase(repo,
		video.NewSimulatedProcessor(timings, "http://localhost:8080", logger),
		pool,
		tele.NewNoopNotifier(logger),
		usecase.GenerationConfig{Stagger: *stagger, PipelineEstimate: timings.Total(*secondaryRef != "")},
		logger,
	)
	unsubscribe := gen.Subscribe(func(j model.GenerationJob) {
		if *verbose {
			fmt.Printf("%-32s %3d%%  %s\n", j.ID, j.Progress, usecase.PhaseLabel(j.Status, j.Progress))
		}
	})
	defer unsubscribe()

	batch, err := gen.StartBatch(ctx, usecase.BatchRequest{
		Headers:           data.Headers,
		Rows:              data.Rows,
		Mapping:           mapping,
		MainVideoRef:      *mainRef,
		SecondaryVideoRef: *secondaryRef,
	})
	if err != nil {
		log.Fatalf("start batch: %v", err)
	}
	fmt.Printf("batch %s: %d jobs, estimated %s\n", batch.ID, len(batch.Jobs), batch.EstimatedTime.Round(100*time.Millisecond))

	if err := gen.Wait(ctx, batch.ID); err != nil {
		fmt.Println("interrupted, aborting batch")
		_ = gen.AbortBatch(batch.ID)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = gen.Shutdown(shutdownCtx)

	jobs, err := gen.Snapshot(batch.ID)
	if err != nil {
		log.Fatalf("snapshot: %v", err)
	}
	fmt.Println(renderJobs(jobs))
	fmt.Println(renderStats(usecase.Aggregate(jobs)))
}
