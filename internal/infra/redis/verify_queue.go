// File: internal/infra/redis/verify_queue.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"handyai-billing/internal/domain/model"
	"handyai-billing/internal/domain/ports/repository"
)

var _ repository.VerificationQueue = (*VerifyQueue)(nil)

const (
	keyVerifyJobs       = "verify:jobs"
	keyVerifyProcessing = "verify:processing"
	keyVerifyInflight   = "verify:inflight:"
	// Safety valve so a crashed consumer cannot pin a token forever.
	inflightTTL = 24 * time.Hour
)

// VerifyQueue is the durable verification job queue: a redis list holding the
// serialized jobs (attempt counter included, so retries survive restarts) and
// one claim key per purchase token implementing the keep-dedup policy.
//
// Delivery is at-least-once: Dequeue moves the job onto a processing list
// instead of popping it, and Recover puts anything left there back onto the
// main list after a crash. A job is only gone once Complete removed it.
type VerifyQueue struct {
	client RedisClient

	mu sync.Mutex
	// Serialized payload per in-flight job id, kept so Requeue and Complete
	// can remove the exact processing-list entry.
	processing map[string]string
}

func NewVerifyQueue(client RedisClient) *VerifyQueue {
	return &VerifyQueue{client: client, processing: make(map[string]string)}
}

func (q *VerifyQueue) claimKey(job *model.VerificationJob) string {
	return keyVerifyInflight + job.Purchase.Token
}

// Recover moves jobs a previous process left on the processing list back onto
// the main list. Call once on startup, before the worker runs. Returns the
// number of jobs recovered.
func (q *VerifyQueue) Recover(ctx context.Context) (int, error) {
	raws, err := q.client.LRange(ctx, keyVerifyProcessing, 0, -1)
	if err != nil {
		return 0, fmt.Errorf("list in-flight verification jobs: %w", err)
	}
	for _, raw := range raws {
		// Back at the consuming end so interrupted jobs run first.
		if err := q.client.RPush(ctx, keyVerifyJobs, raw); err != nil {
			return 0, fmt.Errorf("recover verification job: %w", err)
		}
	}
	if err := q.client.Del(ctx, keyVerifyProcessing); err != nil {
		return 0, err
	}
	return len(raws), nil
}

func (q *VerifyQueue) Enqueue(ctx context.Context, job *model.VerificationJob) (bool, error) {
	ok, err := q.client.SetNX(ctx, q.claimKey(job), job.ID, inflightTTL)
	if err != nil {
		return false, fmt.Errorf("claim verification job: %w", err)
	}
	if !ok {
		// Keep policy: an equivalent job is already outstanding.
		return false, nil
	}
	data, err := json.Marshal(job)
	if err != nil {
		return false, err
	}
	if err := q.client.LPush(ctx, keyVerifyJobs, data); err != nil {
		// Roll the claim back so a later enqueue can succeed.
		_ = q.client.Del(ctx, q.claimKey(job))
		return false, fmt.Errorf("push verification job: %w", err)
	}
	return true, nil
}

func (q *VerifyQueue) Dequeue(ctx context.Context, wait time.Duration) (*model.VerificationJob, error) {
	raw, err := q.client.BRPopLPush(ctx, wait, keyVerifyJobs, keyVerifyProcessing)
	if err != nil {
		if errors.Is(err, ErrNil) {
			return nil, nil
		}
		return nil, err
	}
	var job model.VerificationJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("decode verification job: %w", err)
	}
	q.mu.Lock()
	q.processing[job.ID] = raw
	q.mu.Unlock()
	return &job, nil
}

// Requeue pushes the job back at the consuming end so an unstarted or
// retrying job keeps its place in line, then drops the processing-list copy.
// A crash between the two leaves a duplicate for Recover, not a lost job.
// The claim key stays held.
func (q *VerifyQueue) Requeue(ctx context.Context, job *model.VerificationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, keyVerifyJobs, data); err != nil {
		return err
	}
	return q.dropProcessing(ctx, job)
}

func (q *VerifyQueue) Complete(ctx context.Context, job *model.VerificationJob) error {
	if err := q.dropProcessing(ctx, job); err != nil {
		return err
	}
	return q.client.Del(ctx, q.claimKey(job))
}

func (q *VerifyQueue) dropProcessing(ctx context.Context, job *model.VerificationJob) error {
	q.mu.Lock()
	raw, ok := q.processing[job.ID]
	delete(q.processing, job.ID)
	q.mu.Unlock()
	if !ok {
		// Dequeued by a previous process; Recover already reaped the entry.
		return nil
	}
	return q.client.LRem(ctx, keyVerifyProcessing, 1, raw)
}
