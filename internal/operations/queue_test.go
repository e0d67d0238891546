package operations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

func waitResult(t *testing.T, op *Operation) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	r := op.Wait(ctx)
	require.NotErrorIs(t, r.Err, context.DeadlineExceeded, "operation %s did not complete", op.ID)
	return r
}

func valueOp(id string, v any) *Operation {
	return New(id, KindFavorite, func(ctx context.Context) (any, error) {
		return v, nil
	})
}

// blockingOp runs until release is closed or its context is canceled.
func blockingOp(id string, started chan<- string, release <-chan struct{}) *Operation {
	return New(id, KindFetchList, func(ctx context.Context) (any, error) {
		started <- id
		select {
		case <-release:
			return id, nil
		case <-ctx.Done():
			return "partial", ctx.Err()
		}
	})
}

func TestOperationCompletesOnce(t *testing.T) {
	q := NewQueue(2)
	defer q.Stop(context.Background())

	op := valueOp("a", 42)
	var calls atomic.Int32
	op.OnComplete(func(r Result) {
		calls.Add(1)
		assert.Equal(t, 42, r.Value)
	})

	require.NoError(t, q.Add(op))
	r := waitResult(t, op)
	assert.NoError(t, r.Err)
	assert.Equal(t, 42, r.Value)

	op.Cancel()
	op.complete(Result{Err: errors.New("late")})
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 42, op.Result().Value)

	late := make(chan Result, 1)
	op.OnComplete(func(r Result) { late <- r })
	assert.Equal(t, 42, (<-late).Value)
}

func TestQueueRunsSameKeyInOrder(t *testing.T) {
	q := NewQueue(4)
	defer q.Stop(context.Background())

	var mu sync.Mutex
	var order []string
	var running atomic.Int32
	var overlap atomic.Bool

	var ops []*Operation
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("op-%d", i)
		op := New(id, KindFavorite, func(ctx context.Context) (any, error) {
			if running.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(time.Millisecond)
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			running.Add(-1)
			return nil, nil
		})
		op.Key = "item-1"
		ops = append(ops, op)
		require.NoError(t, q.Add(op))
	}

	for _, op := range ops {
		waitResult(t, op)
	}
	assert.False(t, overlap.Load())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 10)
	for i, id := range order {
		assert.Equal(t, fmt.Sprintf("op-%d", i), id)
	}
}

func TestQueueRunsDifferentKeysConcurrently(t *testing.T) {
	q := NewQueue(2)
	defer q.Stop(context.Background())

	started := make(chan string, 2)
	release := make(chan struct{})

	a := blockingOp("a", started, release)
	a.Key = "item-a"
	b := blockingOp("b", started, release)
	b.Key = "item-b"
	require.NoError(t, q.Add(a))
	require.NoError(t, q.Add(b))

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(testTimeout):
			t.Fatal("operations on different keys did not run concurrently")
		}
	}
	close(release)

	assert.NoError(t, waitResult(t, a).Err)
	assert.NoError(t, waitResult(t, b).Err)
}

func TestQueueLimitsWorkers(t *testing.T) {
	q := NewQueue(1)
	defer q.Stop(context.Background())

	started := make(chan string, 2)
	release := make(chan struct{})

	a := blockingOp("a", started, release)
	b := blockingOp("b", started, release)
	require.NoError(t, q.Add(a))
	require.NoError(t, q.Add(b))

	first := <-started
	select {
	case id := <-started:
		t.Fatalf("%s started while %s held the only worker", id, first)
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	waitResult(t, a)
	waitResult(t, b)
}

func TestQueueSupersedesGroup(t *testing.T) {
	q := NewQueue(2)
	defer q.Stop(context.Background())

	started := make(chan string, 2)
	release := make(chan struct{})

	first := blockingOp("first", started, release)
	first.Group = FetchListGroup
	require.NoError(t, q.Add(first))
	<-started

	second := blockingOp("second", started, release)
	second.Group = FetchListGroup
	require.NoError(t, q.Add(second))

	r := waitResult(t, first)
	assert.ErrorIs(t, r.Err, ErrCanceled)
	assert.Nil(t, r.Value, "a canceled operation must not report a partial value")

	<-started
	close(release)
	r = waitResult(t, second)
	assert.NoError(t, r.Err)
	assert.Equal(t, "second", r.Value)
}

func TestQueueCancelBeforeStart(t *testing.T) {
	q := NewQueue(1)
	defer q.Stop(context.Background())

	started := make(chan string, 2)
	release := make(chan struct{})
	blocker := blockingOp("blocker", started, release)
	require.NoError(t, q.Add(blocker))
	<-started

	var ran atomic.Bool
	waiting := New("waiting", KindArchive, func(ctx context.Context) (any, error) {
		ran.Store(true)
		return nil, nil
	})
	require.NoError(t, q.Add(waiting))
	waiting.Cancel()

	assert.ErrorIs(t, waitResult(t, waiting).Err, ErrCanceled)
	close(release)
	waitResult(t, blocker)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	require.NoError(t, q.WaitIdle(ctx))
	assert.False(t, ran.Load())
}

func TestQueueAddsCompletedGroupedOperation(t *testing.T) {
	q := NewQueue(1)
	defer q.Stop(context.Background())

	op := valueOp("done", 1)
	op.Group = "refresh"
	op.Cancel()

	added := make(chan error, 1)
	go func() { added <- q.Add(op) }()
	select {
	case err := <-added:
		require.NoError(t, err)
	case <-time.After(testTimeout):
		t.Fatal("Add blocked on an already completed operation")
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	require.NoError(t, q.WaitIdle(ctx))
	assert.Zero(t, q.Pending())
	assert.ErrorIs(t, op.Result().Err, ErrCanceled)
}

func TestQueueStop(t *testing.T) {
	q := NewQueue(1)

	started := make(chan string, 2)
	release := make(chan struct{})
	running := blockingOp("running", started, release)
	require.NoError(t, q.Add(running))
	<-started

	waiting := valueOp("waiting", 1)
	require.NoError(t, q.Add(waiting))

	stopped := make(chan error, 1)
	go func() { stopped <- q.Stop(context.Background()) }()

	assert.ErrorIs(t, waitResult(t, waiting).Err, ErrCanceled)
	close(release)
	assert.NoError(t, <-stopped)
	assert.NoError(t, waitResult(t, running).Err)

	late := valueOp("late", 1)
	assert.ErrorIs(t, q.Add(late), ErrQueueStopped)
	assert.ErrorIs(t, waitResult(t, late).Err, ErrQueueStopped)
	assert.Zero(t, q.Pending())
}

func TestQueueStopTimeoutInterruptsRunning(t *testing.T) {
	q := NewQueue(1)

	started := make(chan string, 1)
	running := blockingOp("running", started, make(chan struct{}))
	require.NoError(t, q.Add(running))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Stop(ctx), context.DeadlineExceeded)

	r := waitResult(t, running)
	assert.ErrorIs(t, r.Err, context.Canceled)
}

func TestKindMapping(t *testing.T) {
	for _, k := range []Kind{KindSave, KindFavorite, KindUnfavorite, KindArchive, KindDelete} {
		assert.Equal(t, k, KindFor(k.Mutation()))
	}
	assert.Empty(t, KindFetchList.Mutation())
}
