//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/domain/ports/adapter"
	"prospect-video-generator/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Mock JobRepository ----

type MockJobRepo struct {
	mu    sync.Mutex
	order []string
	jobs  map[string]*model.GenerationJob
	saves map[string]int

	SaveAllFunc func(ctx context.Context, jobs []*model.GenerationJob) error
}

var _ repository.JobRepository = (*MockJobRepo)(nil)

func NewMockJobRepo() *MockJobRepo {
	return &MockJobRepo{jobs: make(map[string]*model.GenerationJob), saves: make(map[string]int)}
}

func (m *MockJobRepo) putLocked(j *model.GenerationJob) {
	if _, ok := m.jobs[j.ID]; !ok {
		m.order = append(m.order, j.ID)
	}
	m.jobs[j.ID] = j.Clone()
	m.saves[j.ID]++
}

func (m *MockJobRepo) Save(ctx context.Context, job *model.GenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(job)
	return nil
}

func (m *MockJobRepo) SaveAll(ctx context.Context, jobs []*model.GenerationJob) error {
	if m.SaveAllFunc != nil {
		if err := m.SaveAllFunc(ctx, jobs); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range jobs {
		m.putLocked(j)
	}
	return nil
}

func (m *MockJobRepo) FindByID(ctx context.Context, id string) (*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j.Clone(), nil
}

func (m *MockJobRepo) ListAll(ctx context.Context) ([]*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.GenerationJob, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.jobs[id].Clone())
	}
	return out, nil
}

func (m *MockJobRepo) ListByStatus(ctx context.Context, status model.JobStatus) ([]*model.GenerationJob, error) {
	all, _ := m.ListAll(ctx)
	out := all[:0]
	for _, j := range all {
		if j.Status == status {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *MockJobRepo) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = nil
	m.jobs = make(map[string]*model.GenerationJob)
	return nil
}

func (m *MockJobRepo) SaveCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[id]
}

// ---- Mock VideoProcessor ----

// MockProcessor walks the regular checkpoints with a fixed delay between
// them unless GenerateFunc overrides it.
type MockProcessor struct {
	mu     sync.Mutex
	calls  []adapter.GenerateRequest
	starts map[string]time.Time

	Step         time.Duration
	GenerateFunc func(ctx context.Context, req adapter.GenerateRequest, checkpoints chan<- int) (*adapter.GenerateResult, error)
}

var _ adapter.VideoProcessor = (*MockProcessor)(nil)

func (m *MockProcessor) Generate(ctx context.Context, req adapter.GenerateRequest, checkpoints chan<- int) (*adapter.GenerateResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	if m.starts == nil {
		m.starts = make(map[string]time.Time)
	}
	m.starts[req.JobID] = time.Now()
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req, checkpoints)
	}
	steps := []int{model.ProgressOverlay, model.ProgressWithoutSecondary}
	if req.SecondaryVideoRef != "" {
		steps = []int{model.ProgressOverlay, model.ProgressConcatenation}
	}
	for _, p := range steps {
		if err := sleepCtx(ctx, m.Step); err != nil {
			return nil, err
		}
		if err := sendCheckpoint(ctx, checkpoints, p); err != nil {
			return nil, err
		}
	}
	if err := sleepCtx(ctx, m.Step); err != nil {
		return nil, err
	}
	return &adapter.GenerateResult{VideoURL: "https://cdn.test/" + req.JobID + ".mp4", LandingPageURL: "/landing/" + req.JobID}, nil
}

func (m *MockProcessor) Calls() []adapter.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]adapter.GenerateRequest(nil), m.calls...)
}

func (m *MockProcessor) StartedAt(jobID string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.starts[jobID]
	return t, ok
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sendCheckpoint(ctx context.Context, ch chan<- int, p int) error {
	select {
	case ch <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ---- TaskRunner ----

// goRunner starts every task on its own goroutine.
type goRunner struct{}

func (goRunner) Submit(ctx context.Context, task func(ctx context.Context) error) error {
	go func() { _ = task(ctx) }()
	return nil
}

// ---- Mock BatchNotifier ----

type MockNotifier struct {
	mu        sync.Mutex
	Summaries []adapter.BatchSummary
	notified  chan struct{}
}

var _ adapter.BatchNotifier = (*MockNotifier)(nil)

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{notified: make(chan struct{}, 16)}
}

func (m *MockNotifier) BatchFinished(ctx context.Context, summary adapter.BatchSummary) error {
	m.mu.Lock()
	m.Summaries = append(m.Summaries, summary)
	m.mu.Unlock()
	m.notified <- struct{}{}
	return nil
}

// ---- Observer recorder ----

type progressRecorder struct {
	mu      sync.Mutex
	history map[string][]model.GenerationJob
}

func newProgressRecorder() *progressRecorder {
	return &progressRecorder{history: make(map[string][]model.GenerationJob)}
}

func (r *progressRecorder) observe(j model.GenerationJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[j.ID] = append(r.history[j.ID], j)
}

func (r *progressRecorder) of(id string) []model.GenerationJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.GenerationJob(nil), r.history[id]...)
}
