package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/domain/ports/adapter"
)

const (
	abortedBeforeStartMsg = "batch aborted before start"
	shutdownMsg           = "orchestrator shutting down"
)

// dispatch starts the jobs of a batch strictly in row order. Job i is not
// submitted before startedAt + i*stagger, nor before job i-1 has started.
func (uc *generationUC) dispatch(b *batchState) {
	defer uc.wg.Done()
	l := uc.log.With().Str("batch_id", b.id).Logger()

	for i, h := range b.handles {
		if !uc.waitUntil(b.startedAt.Add(time.Duration(i)*uc.cfg.Stagger), b) {
			if b.aborted() {
				uc.failRemaining(b, i, abortedBeforeStartMsg)
			} else {
				uc.failRemaining(b, i, shutdownMsg)
			}
			return
		}

		started := make(chan struct{})
		var once sync.Once
		signal := func() { once.Do(func() { close(started) }) }

		err := uc.runner.Submit(uc.root, func(ctx context.Context) error {
			defer signal()
			uc.runJob(ctx, h, signal)
			return nil
		})
		if err != nil {
			l.Error().Err(err).Str("job_id", h.job.ID).Msg("job submission failed")
			uc.failRemaining(b, i, fmt.Sprintf("%v: %v", domain.ErrService, err))
			return
		}

		select {
		case <-started:
		case <-uc.root.Done():
			uc.failRemaining(b, i+1, shutdownMsg)
			return
		}
	}
	l.Debug().Int("jobs", len(b.handles)).Msg("all jobs dispatched")
}

// waitUntil sleeps until t. It returns false when the batch is aborted or the
// orchestrator shuts down first.
func (uc *generationUC) waitUntil(t time.Time, b *batchState) bool {
	if b.aborted() || uc.root.Err() != nil {
		return false
	}
	d := time.Until(t)
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-b.abort:
		return false
	case <-uc.root.Done():
		return false
	}
}

type generateOutcome struct {
	res *adapter.GenerateResult
	err error
}

// runJob drives one job through the processor. signal is called once the job
// has left pending (or been terminated instead).
func (uc *generationUC) runJob(ctx context.Context, h *jobHandle, signal func()) {
	b := h.batch
	l := uc.log.With().Str("batch_id", b.id).Str("job_id", h.job.ID).Logger()

	defer func() {
		if r := recover(); r != nil {
			l.Error().Interface("panic", r).Msg("job pipeline panicked")
			_ = uc.fail(uc.root, h, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if b.aborted() {
		_ = uc.fail(ctx, h, abortedBeforeStartMsg)
		return
	}

	var prospect model.Prospect
	startErr := func() error {
		_, err := uc.mutate(h, func(j *model.GenerationJob) (bool, error) {
			prospect = j.Prospect
			switch j.Status {
			case model.JobStatusPending:
				return true, j.Start()
			case model.JobStatusProcessing:
				// already started by a pushed update
				return false, nil
			}
			return false, domain.ErrJobTerminal
		})
		return err
	}()
	signal()
	if startErr != nil {
		return
	}
	l.Debug().Msg("job started")

	callCtx, cancel := context.WithTimeout(uc.root, uc.cfg.JobTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	checkpoints := make(chan int, 4)
	results := make(chan generateOutcome, 1)
	req := adapter.GenerateRequest{
		JobID:             h.job.ID,
		MainVideoRef:      b.mainRef,
		SecondaryVideoRef: b.secondaryRef,
		Prospect:          prospect,
		WebsiteURL:        prospect.WebsiteURL,
	}
	go func() {
		res, err := uc.processor.Generate(callCtx, req, checkpoints)
		results <- generateOutcome{res: res, err: err}
	}()

	abort := b.abort
	aborting := false
	for {
		select {
		case p := <-checkpoints:
			uc.advance(h, p)
			if aborting {
				cancel()
				_ = uc.fail(ctx, h, domain.ErrAborted.Error())
				return
			}

		case out := <-results:
			uc.drainCheckpoints(h, checkpoints)
			if out.err != nil {
				_ = uc.fail(ctx, h, uc.failureMessage(callCtx, out.err))
				return
			}
			if out.res == nil {
				out.res = &adapter.GenerateResult{}
			}
			_ = uc.complete(ctx, h, out.res)
			return

		case <-abort:
			aborting = true
			abort = nil

		case <-h.ended:
			// terminated by a pushed update
			return

		case <-callCtx.Done():
			_ = uc.fail(ctx, h, uc.failureMessage(callCtx, callCtx.Err()))
			return
		}
	}
}

func (uc *generationUC) advance(h *jobHandle, p int) {
	_, _ = uc.mutate(h, func(j *model.GenerationJob) (bool, error) {
		return j.Advance(p), nil
	})
}

func (uc *generationUC) drainCheckpoints(h *jobHandle, ch <-chan int) {
	for {
		select {
		case p := <-ch:
			uc.advance(h, p)
		default:
			return
		}
	}
}

func (uc *generationUC) failureMessage(callCtx context.Context, err error) string {
	switch {
	case errors.Is(err, domain.ErrTimeout):
		return err.Error()
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return fmt.Sprintf("%v after %s", domain.ErrTimeout, uc.cfg.JobTimeout)
	case uc.root.Err() != nil:
		return shutdownMsg
	}
	return err.Error()
}
