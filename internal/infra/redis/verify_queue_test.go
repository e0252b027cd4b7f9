//go:build !integration

package redis_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	red "handyai-billing/internal/infra/redis"

	"handyai-billing/internal/domain/model"
)

// ---- Mocks ----

// fakeRedis is an in-memory stand-in for the redis client: string keys plus
// lists with head at index 0. Blocking ops return immediately.
type fakeRedis struct {
	mu    sync.Mutex
	kv    map[string]string
	lists map[string][]string
}

var _ red.RedisClient = (*fakeRedis)(nil)

func newFakeRedis() *fakeRedis {
	return &fakeRedis{kv: make(map[string]string), lists: make(map[string][]string)}
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (f *fakeRedis) Ping(ctx context.Context) error { return nil }
func (f *fakeRedis) Close() error                   { return nil }

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kv[key] = asString(value)
	return nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.kv[key]
	if !ok {
		return "", red.ErrNil
	}
	return v, nil
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.kv[key]; ok {
		return false, nil
	}
	f.kv[key] = asString(value)
	return true, nil
}

func (f *fakeRedis) LPush(ctx context.Context, key string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[key] = append([]string{asString(value)}, f.lists[key]...)
	return nil
}

func (f *fakeRedis) RPush(ctx context.Context, key string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[key] = append(f.lists[key], asString(value))
	return nil
}

func (f *fakeRedis) BRPop(ctx context.Context, _ time.Duration, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.lists[key]
	if len(l) == 0 {
		return "", red.ErrNil
	}
	v := l[len(l)-1]
	f.lists[key] = l[:len(l)-1]
	return v, nil
}

func (f *fakeRedis) BRPopLPush(ctx context.Context, _ time.Duration, source, destination string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.lists[source]
	if len(l) == 0 {
		return "", red.ErrNil
	}
	v := l[len(l)-1]
	f.lists[source] = l[:len(l)-1]
	f.lists[destination] = append([]string{v}, f.lists[destination]...)
	return v, nil
}

func (f *fakeRedis) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if start != 0 || stop != -1 {
		return nil, fmt.Errorf("fake supports full range only")
	}
	return append([]string(nil), f.lists[key]...), nil
}

func (f *fakeRedis) LRem(ctx context.Context, key string, count int64, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := asString(value)
	removed := int64(0)
	kept := f.lists[key][:0]
	for _, v := range f.lists[key] {
		if v == want && (count == 0 || removed < count) {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	f.lists[key] = kept
	return nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.kv, k)
		delete(f.lists, k)
	}
	return nil
}

func (f *fakeRedis) listLen(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lists[key])
}

func testJob(id, token string, attempt int) *model.VerificationJob {
	return &model.VerificationJob{
		ID: id,
		Purchase: model.PurchaseRecord{
			Products: []string{"sku-a"},
			Token:    token,
			State:    model.PurchaseStatePurchased,
		},
		Attempt: attempt,
	}
}

// ---- Tests ----

func TestVerifyQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("should park a dequeued job on the processing list", func(t *testing.T) {
		// Arrange
		fr := newFakeRedis()
		q := red.NewVerifyQueue(fr)
		if added, err := q.Enqueue(ctx, testJob("j1", "tok-1", 0)); err != nil || !added {
			t.Fatalf("enqueue: (%v, %v)", added, err)
		}

		// Act
		job, err := q.Dequeue(ctx, time.Millisecond)

		// Assert
		if err != nil || job == nil {
			t.Fatalf("dequeue: (%v, %v)", job, err)
		}
		if got := fr.listLen("verify:jobs"); got != 0 {
			t.Errorf("main list should be drained, has %d", got)
		}
		if got := fr.listLen("verify:processing"); got != 1 {
			t.Errorf("processing list should hold the job, has %d", got)
		}
	})

	t.Run("should keep the first job when the same token is enqueued twice", func(t *testing.T) {
		fr := newFakeRedis()
		q := red.NewVerifyQueue(fr)

		first, err := q.Enqueue(ctx, testJob("j1", "tok-1", 0))
		second, err2 := q.Enqueue(ctx, testJob("j2", "tok-1", 0))

		if err != nil || err2 != nil {
			t.Fatalf("enqueue errors: %v, %v", err, err2)
		}
		if !first || second {
			t.Errorf("expected (true, false), got (%v, %v)", first, second)
		}
		if got := fr.listLen("verify:jobs"); got != 1 {
			t.Errorf("expected 1 queued job, got %d", got)
		}
	})

	t.Run("should release the claim and the processing entry on complete", func(t *testing.T) {
		fr := newFakeRedis()
		q := red.NewVerifyQueue(fr)
		if _, err := q.Enqueue(ctx, testJob("j1", "tok-1", 0)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		job, _ := q.Dequeue(ctx, time.Millisecond)

		if err := q.Complete(ctx, job); err != nil {
			t.Fatalf("complete: %v", err)
		}

		if got := fr.listLen("verify:processing"); got != 0 {
			t.Errorf("processing list should be empty, has %d", got)
		}
		added, err := q.Enqueue(ctx, testJob("j3", "tok-1", 0))
		if err != nil || !added {
			t.Errorf("token should be claimable again: (%v, %v)", added, err)
		}
	})

	t.Run("should requeue a single copy with the updated attempt counter", func(t *testing.T) {
		fr := newFakeRedis()
		q := red.NewVerifyQueue(fr)
		if _, err := q.Enqueue(ctx, testJob("j1", "tok-1", 0)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		job, _ := q.Dequeue(ctx, time.Millisecond)
		job.Attempt = 2

		if err := q.Requeue(ctx, job); err != nil {
			t.Fatalf("requeue: %v", err)
		}

		if got := fr.listLen("verify:processing"); got != 0 {
			t.Errorf("processing list should be empty, has %d", got)
		}
		if got := fr.listLen("verify:jobs"); got != 1 {
			t.Fatalf("expected exactly 1 queued job, got %d", got)
		}
		back, err := q.Dequeue(ctx, time.Millisecond)
		if err != nil || back == nil {
			t.Fatalf("dequeue after requeue: (%v, %v)", back, err)
		}
		if back.Attempt != 2 {
			t.Errorf("attempt counter lost on requeue: got %d", back.Attempt)
		}
	})

	t.Run("should recover a job a crashed consumer left in flight", func(t *testing.T) {
		// Arrange: dequeue without completing, then drop the consumer.
		fr := newFakeRedis()
		crashed := red.NewVerifyQueue(fr)
		if _, err := crashed.Enqueue(ctx, testJob("j1", "tok-1", 1)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		if job, err := crashed.Dequeue(ctx, time.Millisecond); err != nil || job == nil {
			t.Fatalf("dequeue: (%v, %v)", job, err)
		}

		// Act: a fresh process over the same store reaps the processing list.
		q := red.NewVerifyQueue(fr)
		n, err := q.Recover(ctx)

		// Assert
		if err != nil {
			t.Fatalf("recover: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 recovered job, got %d", n)
		}
		job, err := q.Dequeue(ctx, time.Millisecond)
		if err != nil || job == nil {
			t.Fatalf("recovered job not dequeueable: (%v, %v)", job, err)
		}
		if job.ID != "j1" || job.Attempt != 1 {
			t.Errorf("recovered job mangled: %+v", job)
		}
		// The token claim survived the crash, so a purchase refresh racing
		// the recovery still cannot double-enqueue.
		if added, _ := q.Enqueue(ctx, testJob("j9", "tok-1", 0)); added {
			t.Error("claim should still dedup the recovered token")
		}
	})

	t.Run("should return nil for an empty queue", func(t *testing.T) {
		q := red.NewVerifyQueue(newFakeRedis())

		job, err := q.Dequeue(ctx, time.Millisecond)

		if err != nil || job != nil {
			t.Errorf("expected (nil, nil), got (%v, %v)", job, err)
		}
	})
}
