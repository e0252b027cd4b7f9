package repository

import (
	"context"
	"time"

	"handyai-billing/internal/domain/model"
)

// VerificationQueue is a durable, at-least-once queue of verification jobs.
// Jobs are deduplicated per purchase token with a keep policy: enqueuing while
// an equivalent job is queued or running is a no-op.
type VerificationQueue interface {
	// Enqueue adds the job unless one for the same purchase token is already
	// outstanding; returns false when the existing job was kept.
	Enqueue(ctx context.Context, job *model.VerificationJob) (bool, error)
	// Dequeue pops the next job, waiting up to wait. Returns (nil, nil) when
	// the queue stayed empty.
	Dequeue(ctx context.Context, wait time.Duration) (*model.VerificationJob, error)
	// Requeue puts a job back, keeping its attempt counter and its
	// outstanding-dedup claim. Used when the job could not run (offline) or
	// must be retried.
	Requeue(ctx context.Context, job *model.VerificationJob) error
	// Complete releases the dedup claim after a terminal outcome.
	Complete(ctx context.Context, job *model.VerificationJob) error
}

// Locker provides process-spanning ownership records, e.g. the
// consumption-in-progress claim on a purchase token.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
