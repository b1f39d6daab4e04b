package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/domain/ports/adapter"
	"prospect-video-generator/internal/domain/ports/repository"
)

// Compile-time check
var _ GenerationUseCase = (*generationUC)(nil)

const (
	DefaultStagger          = 500 * time.Millisecond
	MinStagger              = 10 * time.Millisecond
	DefaultJobTimeout       = 2 * time.Minute
	DefaultPipelineEstimate = 4500 * time.Millisecond
	DefaultRetainedBatches  = 64
)

// TaskRunner runs submitted tasks on a bounded set of workers. Submit blocks
// until the task is queued or ctx is done.
type TaskRunner interface {
	Submit(ctx context.Context, task func(ctx context.Context) error) error
}

// JobObserver receives a copy of a job after a transition. Per job, copies
// arrive in transition order; a copy overtaken by a newer one is skipped. It
// must not block.
type JobObserver func(job model.GenerationJob)

type GenerationConfig struct {
	Stagger          time.Duration
	JobTimeout       time.Duration
	PipelineEstimate time.Duration
	RetainedBatches  int
}

func (c GenerationConfig) withDefaults() GenerationConfig {
	if c.Stagger <= 0 {
		c.Stagger = DefaultStagger
	}
	if c.Stagger < MinStagger {
		c.Stagger = MinStagger
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = DefaultJobTimeout
	}
	if c.PipelineEstimate <= 0 {
		c.PipelineEstimate = DefaultPipelineEstimate
	}
	if c.RetainedBatches <= 0 {
		c.RetainedBatches = DefaultRetainedBatches
	}
	return c
}

type BatchRequest struct {
	// Headers of the CSV the rows come from. When empty they are taken from
	// the keys of the first row.
	Headers           []string
	Rows              []map[string]string
	Mapping           model.MappingConfig
	MainVideoRef      string
	SecondaryVideoRef string
}

// Batch is the result of StartBatch. Jobs are copies in row order.
type Batch struct {
	ID            string                 `json:"batchId"`
	Jobs          []*model.GenerationJob `json:"jobs"`
	StartedAt     time.Time              `json:"startedAt"`
	HasSecondary  bool                   `json:"hasSecondary"`
	EstimatedTime time.Duration          `json:"-"`
}

func (b *Batch) JobIDs() []string {
	ids := make([]string, len(b.Jobs))
	for i, j := range b.Jobs {
		ids[i] = j.ID
	}
	return ids
}

type GenerationUseCase interface {
	StartBatch(ctx context.Context, req BatchRequest) (*Batch, error)
	AbortBatch(batchID string) error
	ApplyUpdate(ctx context.Context, upd adapter.JobUpdate) error
	Snapshot(batchID string) ([]*model.GenerationJob, error)
	Wait(ctx context.Context, batchID string) error
	Owns(jobID string) bool
	Subscribe(obs JobObserver) (unsubscribe func())
	Shutdown(ctx context.Context) error
}

type generationUC struct {
	repo      repository.JobRepository
	processor adapter.VideoProcessor
	runner    TaskRunner
	notifier  adapter.BatchNotifier
	cfg       GenerationConfig
	log       *zerolog.Logger

	root   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	batches   map[string]*batchState
	order     []string
	jobs      map[string]*jobHandle
	observers map[int]JobObserver
	nextObs   int

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

type batchState struct {
	id           string
	mainRef      string
	secondaryRef string
	startedAt    time.Time
	handles      []*jobHandle
	remaining    int

	abort     chan struct{}
	abortOnce sync.Once
	done      chan struct{}
}

func (b *batchState) aborted() bool {
	select {
	case <-b.abort:
		return true
	default:
		return false
	}
}

func (b *batchState) finished() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

type jobHandle struct {
	job     *model.GenerationJob
	batch   *batchState
	ended   chan struct{}
	version uint64 // bumped under generationUC.mu on every transition

	pubMu     sync.Mutex
	published uint64
}

func NewGenerationUseCase(
	repo repository.JobRepository,
	processor adapter.VideoProcessor,
	runner TaskRunner,
	notifier adapter.BatchNotifier,
	cfg GenerationConfig,
	logger *zerolog.Logger,
) *generationUC {
	genLog := logger.With().Str("component", "GenerationUC").Logger()
	root, cancel := context.WithCancel(context.Background())
	return &generationUC{
		repo:      repo,
		processor: processor,
		runner:    runner,
		notifier:  notifier,
		cfg:       cfg.withDefaults(),
		log:       &genLog,
		root:      root,
		cancel:    cancel,
		batches:   make(map[string]*batchState),
		jobs:      make(map[string]*jobHandle),
		observers: make(map[int]JobObserver),
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
}

func (uc *generationUC) newBatchID() string {
	uc.entropyMu.Lock()
	defer uc.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), uc.entropy).String()
}

// JobID is a pure function of batch and row index.
func JobID(batchID string, rowIndex int) string {
	return fmt.Sprintf("%s-job-%d", batchID, rowIndex)
}

// EstimateDuration approximates the wall time of a batch of n rows.
func (uc *generationUC) EstimateDuration(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n-1)*uc.cfg.Stagger + uc.cfg.PipelineEstimate
}

// StartBatch creates one pending job per row, persists them in row order and
// schedules their pipelines. It returns before any job has been processed.
func (uc *generationUC) StartBatch(ctx context.Context, req BatchRequest) (*Batch, error) {
	mapping, ok := ValidateMapping(req.Mapping)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrMappingIncomplete, strings.Join(req.Mapping.Missing(), ", "))
	}
	headers := req.Headers
	if len(headers) == 0 && len(req.Rows) > 0 {
		headers = rowHeaders(req.Rows[0])
	}
	if len(headers) > 0 {
		if unknown := mapping.Unknown(headers); len(unknown) > 0 {
			return nil, fmt.Errorf("%w: unknown column %s", domain.ErrMappingIncomplete, strings.Join(unknown, ", "))
		}
	}
	if strings.TrimSpace(req.MainVideoRef) == "" {
		return nil, fmt.Errorf("%w: main video is required", domain.ErrInvalidArgument)
	}
	if uc.root.Err() != nil {
		return nil, fmt.Errorf("%w: orchestrator is shut down", domain.ErrService)
	}

	b := &batchState{
		id:           uc.newBatchID(),
		mainRef:      req.MainVideoRef,
		secondaryRef: req.SecondaryVideoRef,
		abort:        make(chan struct{}),
		done:         make(chan struct{}),
	}
	jobs := make([]*model.GenerationJob, 0, len(req.Rows))
	for i, row := range req.Rows {
		job, err := model.NewGenerationJob(JobID(b.id, i), b.id, i, mapping.Prospect(row))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
		b.handles = append(b.handles, &jobHandle{job: job, batch: b, ended: make(chan struct{})})
	}
	b.remaining = len(jobs)

	if len(jobs) > 0 {
		if err := uc.repo.SaveAll(ctx, jobs); err != nil {
			return nil, fmt.Errorf("persist batch: %w", err)
		}
	}

	b.startedAt = time.Now()
	out := &Batch{
		ID:            b.id,
		Jobs:          make([]*model.GenerationJob, len(jobs)),
		StartedAt:     b.startedAt,
		HasSecondary:  b.secondaryRef != "",
		EstimatedTime: uc.EstimateDuration(len(jobs)),
	}

	uc.mu.Lock()
	for i, h := range b.handles {
		uc.jobs[h.job.ID] = h
		out.Jobs[i] = h.job.Clone()
	}
	uc.batches[b.id] = b
	uc.order = append(uc.order, b.id)
	uc.evictLocked()
	if b.remaining == 0 {
		close(b.done)
	}
	uc.mu.Unlock()

	uc.log.Info().Str("batch_id", b.id).Int("jobs", len(jobs)).Bool("secondary", out.HasSecondary).Msg("batch started")

	if len(jobs) > 0 {
		uc.wg.Add(1)
		go uc.dispatch(b)
	}
	return out, nil
}

func rowHeaders(row map[string]string) []string {
	out := make([]string, 0, len(row))
	for k := range row {
		out = append(out, k)
	}
	return out
}

// evictLocked drops the oldest finished batches beyond the retention limit.
func (uc *generationUC) evictLocked() {
	excess := len(uc.order) - uc.cfg.RetainedBatches
	if excess <= 0 {
		return
	}
	kept := uc.order[:0]
	for _, id := range uc.order {
		b := uc.batches[id]
		if excess > 0 && b.finished() {
			for _, h := range b.handles {
				delete(uc.jobs, h.job.ID)
			}
			delete(uc.batches, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	uc.order = kept
}

// AbortBatch stops scheduling jobs that have not started. Running jobs stop at
// their next checkpoint.
func (uc *generationUC) AbortBatch(batchID string) error {
	uc.mu.Lock()
	b, ok := uc.batches[batchID]
	uc.mu.Unlock()
	if !ok {
		return domain.ErrBatchNotFound
	}
	b.abortOnce.Do(func() { close(b.abort) })
	uc.log.Info().Str("batch_id", batchID).Msg("batch abort requested")
	return nil
}

// ApplyUpdate reconciles a pushed status into the job state machine. The pushed
// status wins, but progress never decreases and terminal jobs never change.
func (uc *generationUC) ApplyUpdate(ctx context.Context, upd adapter.JobUpdate) error {
	uc.mu.Lock()
	h, ok := uc.jobs[upd.JobID]
	uc.mu.Unlock()
	if !ok {
		return domain.ErrNotFound
	}

	switch upd.Status {
	case model.JobStatusProcessing:
		changed, err := uc.mutate(h, func(j *model.GenerationJob) (bool, error) {
			if j.IsTerminal() {
				return false, domain.ErrJobTerminal
			}
			started := false
			if j.Status == model.JobStatusPending {
				if err := j.Start(); err != nil {
					return false, err
				}
				started = true
			}
			return j.Advance(upd.Progress) || started, nil
		})
		if err != nil {
			return err
		}
		if changed {
			uc.log.Debug().Str("job_id", upd.JobID).Int("progress", upd.Progress).Msg("pushed progress applied")
		}
		return nil
	case model.JobStatusCompleted:
		return uc.complete(ctx, h, &adapter.GenerateResult{VideoURL: upd.VideoURL, LandingPageURL: upd.LandingPageURL})
	case model.JobStatusError:
		msg := upd.Error
		if msg == "" {
			msg = "video processing service reported an error"
		}
		return uc.fail(ctx, h, msg)
	case model.JobStatusPending:
		return nil
	}
	return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, upd.Status)
}

func (uc *generationUC) Snapshot(batchID string) ([]*model.GenerationJob, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	b, ok := uc.batches[batchID]
	if !ok {
		return nil, domain.ErrBatchNotFound
	}
	out := make([]*model.GenerationJob, len(b.handles))
	for i, h := range b.handles {
		out[i] = h.job.Clone()
	}
	return out, nil
}

// Wait blocks until every job of the batch is terminal.
func (uc *generationUC) Wait(ctx context.Context, batchID string) error {
	uc.mu.Lock()
	b, ok := uc.batches[batchID]
	uc.mu.Unlock()
	if !ok {
		return domain.ErrBatchNotFound
	}
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Owns reports whether the job belongs to a batch that is still running.
func (uc *generationUC) Owns(jobID string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	h, ok := uc.jobs[jobID]
	return ok && !h.batch.finished()
}

func (uc *generationUC) Subscribe(obs JobObserver) func() {
	uc.mu.Lock()
	id := uc.nextObs
	uc.nextObs++
	uc.observers[id] = obs
	uc.mu.Unlock()
	return func() {
		uc.mu.Lock()
		delete(uc.observers, id)
		uc.mu.Unlock()
	}
}

// Shutdown cancels every running pipeline and waits for the dispatchers.
func (uc *generationUC) Shutdown(ctx context.Context) error {
	uc.cancel()
	done := make(chan struct{})
	go func() {
		uc.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mutate applies a non-terminal change under the lock and publishes it.
func (uc *generationUC) mutate(h *jobHandle, fn func(j *model.GenerationJob) (bool, error)) (bool, error) {
	uc.mu.Lock()
	changed, err := fn(h.job)
	if !changed || err != nil {
		uc.mu.Unlock()
		return changed, err
	}
	h.version++
	ver, snap, obs := h.version, *h.job.Clone(), uc.observersLocked()
	uc.mu.Unlock()
	uc.publish(h, ver, snap, obs)
	return changed, err
}

// publish hands snap to the observers unless a newer version of the job was
// already delivered.
func (uc *generationUC) publish(h *jobHandle, ver uint64, snap model.GenerationJob, obs []JobObserver) {
	h.pubMu.Lock()
	defer h.pubMu.Unlock()
	if ver <= h.published {
		return
	}
	h.published = ver
	for _, o := range obs {
		o(snap)
	}
}

func (uc *generationUC) complete(ctx context.Context, h *jobHandle, res *adapter.GenerateResult) error {
	return uc.finish(ctx, h, func(j *model.GenerationJob) error {
		info := &model.GenerationInfo{
			MainVideoUsed:      true,
			SecondaryVideoUsed: h.batch.secondaryRef != "",
			WebsiteScreenshot:  j.Prospect.WebsiteURL,
			GeneratedAt:        time.Now().UTC(),
		}
		return j.Complete(res.VideoURL, res.LandingPageURL, info)
	})
}

func (uc *generationUC) fail(ctx context.Context, h *jobHandle, msg string) error {
	return uc.finish(ctx, h, func(j *model.GenerationJob) error { return j.Fail(msg) })
}

// finish performs a terminal transition, persists the job once and signals
// the batch when it was the last one.
func (uc *generationUC) finish(ctx context.Context, h *jobHandle, fn func(j *model.GenerationJob) error) error {
	uc.mu.Lock()
	if err := fn(h.job); err != nil {
		uc.mu.Unlock()
		return err
	}
	h.version++
	ver, snap := h.version, h.job.Clone()
	close(h.ended)
	b := h.batch
	b.remaining--
	batchDone := b.remaining == 0
	var batchJobs []*model.GenerationJob
	if batchDone {
		batchJobs = make([]*model.GenerationJob, len(b.handles))
		for i, bh := range b.handles {
			batchJobs[i] = bh.job.Clone()
		}
	}
	obs := uc.observersLocked()
	uc.mu.Unlock()

	l := uc.log.With().Str("batch_id", snap.BatchID).Str("job_id", snap.ID).Logger()
	if err := uc.repo.Save(context.WithoutCancel(ctx), snap); err != nil {
		l.Error().Err(err).Msg("failed to persist terminal job state")
	}
	if snap.Status == model.JobStatusError {
		l.Warn().Int("progress", snap.Progress).Str("error", snap.Error).Msg("job failed")
	} else {
		l.Info().Str("video_url", snap.VideoURL).Msg("job completed")
	}
	uc.publish(h, ver, *snap, obs)

	if batchDone {
		close(b.done)
		stats := Aggregate(batchJobs)
		uc.log.Info().Str("batch_id", b.id).Int("completed", stats.Completed).Int("errors", stats.Errors).Msg("batch finished")
		if uc.notifier != nil {
			go uc.notifyBatch(adapter.BatchSummary{BatchID: b.id, Stats: stats})
		}
	}
	return nil
}

func (uc *generationUC) notifyBatch(summary adapter.BatchSummary) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := uc.notifier.BatchFinished(ctx, summary); err != nil {
		uc.log.Error().Err(err).Str("batch_id", summary.BatchID).Msg("batch notification failed")
	}
}

func (uc *generationUC) observersLocked() []JobObserver {
	if len(uc.observers) == 0 {
		return nil
	}
	out := make([]JobObserver, 0, len(uc.observers))
	for _, o := range uc.observers {
		out = append(out, o)
	}
	return out
}

// failRemaining terminates every job from index i on that never started.
func (uc *generationUC) failRemaining(b *batchState, from int, msg string) {
	for _, h := range b.handles[from:] {
		if err := uc.fail(uc.root, h, msg); err != nil && !errors.Is(err, domain.ErrJobTerminal) {
			uc.log.Error().Err(err).Str("job_id", h.job.ID).Msg("could not fail unstarted job")
		}
	}
}
