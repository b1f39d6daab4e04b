package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"prospect-video-generator/internal/domain/model"
)

func init() {
	register(
		generationJobsTotal,
		generationJobDuration,
		generationBatchesTotal,
		generationJobsInflight,
		staleJobsFailed,
	)
}

var (
	generationJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_jobs_total",
			Help: "Jobs that reached a terminal state, labeled by status.",
		},
		[]string{"status"}, // 'completed', 'error'
	)

	generationJobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "generation_job_duration_seconds",
			Help:    "Time from job creation to its terminal state.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160, 320},
		},
	)

	generationBatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "generation_batches_total",
			Help: "Batches accepted by the orchestrator.",
		},
	)

	generationJobsInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "generation_jobs_inflight",
			Help: "Jobs currently in the processing state.",
		},
	)

	staleJobsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "generation_stale_jobs_failed_total",
			Help: "Persisted processing jobs failed by the stale sweeper.",
		},
	)
)

func IncBatch() { generationBatchesTotal.Inc() }

func AddStaleJobsFailed(n int) { staleJobsFailed.Add(float64(n)) }

// JobObserver tracks terminal counts, durations and the in-flight gauge from
// the stream of job transitions.
type JobObserver struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewJobObserver() *JobObserver {
	return &JobObserver{inflight: make(map[string]struct{})}
}

func (o *JobObserver) Observe(job model.GenerationJob) {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, tracked := o.inflight[job.ID]
	switch {
	case job.Status == model.JobStatusProcessing && !tracked:
		o.inflight[job.ID] = struct{}{}
		generationJobsInflight.Inc()
	case job.Status.Terminal():
		if tracked {
			delete(o.inflight, job.ID)
			generationJobsInflight.Dec()
		}
		generationJobsTotal.WithLabelValues(norm(string(job.Status))).Inc()
		generationJobDuration.Observe(job.UpdatedAt.Sub(job.CreatedAt).Seconds())
	}
}

// Inflight reports how many jobs the observer currently counts as processing.
func (o *JobObserver) Inflight() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.inflight)
}
