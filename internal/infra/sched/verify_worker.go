// File: internal/infra/sched/verify_worker.go
package sched

import (
	"context"
	"time"

	"handyai-billing/internal/domain/model"
	"handyai-billing/internal/domain/ports/adapter"
	"handyai-billing/internal/domain/ports/repository"
	"handyai-billing/internal/infra/metrics"
	"handyai-billing/internal/usecase"

	"github.com/rs/zerolog"
)

// A retry storm against a flapping endpoint is pointless; cap the
// inter-attempt delay growth here.
const maxRetryWait = 2 * time.Minute

// VerifyWorker drains the verification queue. Jobs only run while a network
// path exists; offline, a dequeued job goes back unstarted with its attempt
// counter untouched. Transient failures retry up to maxAttempts total calls,
// spaced by an exponential delay from retryWait, after which the job
// resolves as a permanent failure.
type VerifyWorker struct {
	queue       repository.VerificationQueue
	uc          usecase.VerifyUseCase
	net         adapter.Connectivity
	maxAttempts int
	pollWait    time.Duration
	offlineWait time.Duration
	retryWait   time.Duration
	log         *zerolog.Logger

	sleep func(ctx context.Context, d time.Duration)
}

func NewVerifyWorker(queue repository.VerificationQueue, uc usecase.VerifyUseCase, net adapter.Connectivity, maxAttempts int, pollWait, offlineWait, retryWait time.Duration, logger *zerolog.Logger) *VerifyWorker {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if pollWait <= 0 {
		pollWait = 2 * time.Second
	}
	if offlineWait <= 0 {
		offlineWait = 10 * time.Second
	}
	if retryWait <= 0 {
		retryWait = 5 * time.Second
	}
	return &VerifyWorker{
		queue:       queue,
		uc:          uc,
		net:         net,
		maxAttempts: maxAttempts,
		pollWait:    pollWait,
		offlineWait: offlineWait,
		retryWait:   retryWait,
		log:         logger,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Start blocks until ctx is cancelled.
func (w *VerifyWorker) Start(ctx context.Context) {
	w.log.Info().Int("max_attempts", w.maxAttempts).Msg("verify worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("verify worker stopped")
			return
		default:
		}
		w.tick(ctx)
	}
}

func (w *VerifyWorker) tick(ctx context.Context) {
	if !w.net.Online(ctx) {
		w.sleep(ctx, w.offlineWait)
		return
	}

	job, err := w.queue.Dequeue(ctx, w.pollWait)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.Error().Err(err).Msg("verify worker: dequeue failed")
		w.sleep(ctx, w.pollWait)
		return
	}
	if job == nil {
		return
	}

	// The link can vanish between the pre-check and the pop; the job must
	// not start offline.
	if !w.net.Online(ctx) {
		if err := w.queue.Requeue(ctx, job); err != nil {
			w.log.Error().Err(err).Str("job_id", job.ID).Msg("verify worker: offline requeue failed")
		}
		w.sleep(ctx, w.offlineWait)
		return
	}

	// A restart can resurface a job that already exhausted its attempts.
	if job.Attempt >= w.maxAttempts {
		w.resolveExhausted(ctx, job)
		return
	}

	start := time.Now()
	outcome := w.uc.Attempt(ctx, job)
	metrics.ObserveVerifyAttempt(outcome.String(), time.Since(start))

	switch outcome {
	case usecase.OutcomeRetry:
		job.Attempt++
		if job.Attempt >= w.maxAttempts {
			w.resolveExhausted(ctx, job)
			return
		}
		delay := w.retryDelay(job.Attempt)
		w.log.Debug().Str("job_id", job.ID).Int("attempt", job.Attempt).Dur("delay", delay).Msg("verify worker: retrying")
		w.sleep(ctx, delay)
		// Requeue even when the sleep was cut short; the job must outlive
		// the shutdown.
		if err := w.queue.Requeue(ctx, job); err != nil {
			w.log.Error().Err(err).Str("job_id", job.ID).Msg("verify worker: retry requeue failed")
		}
	case usecase.OutcomeSuccess, usecase.OutcomeFailure:
		if err := w.queue.Complete(ctx, job); err != nil {
			w.log.Error().Err(err).Str("job_id", job.ID).Msg("verify worker: complete failed")
		}
	}
}

// retryDelay doubles per completed attempt: floor, 2x floor, 4x floor...
func (w *VerifyWorker) retryDelay(attempt int) time.Duration {
	d := w.retryWait
	for i := 1; i < attempt && d < maxRetryWait; i++ {
		d *= 2
	}
	if d > maxRetryWait {
		d = maxRetryWait
	}
	return d
}

func (w *VerifyWorker) resolveExhausted(ctx context.Context, job *model.VerificationJob) {
	metrics.IncVerifyExhausted()
	w.uc.Reject(ctx, job)
	if err := w.queue.Complete(ctx, job); err != nil {
		w.log.Error().Err(err).Str("job_id", job.ID).Msg("verify worker: complete failed")
	}
}
