package operations

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultWorkers = 4

type lane struct {
	ops []*Operation
}

// Queue executes operations on a fixed number of workers.
type Queue struct {
	slots chan struct{}

	mu      sync.Mutex
	lanes   map[string]*lane
	groups  map[string]*Operation
	stopped bool

	pending atomic.Int64
	wg      sync.WaitGroup

	ctx       context.Context
	cancelAll context.CancelFunc
}

func NewQueue(workers int) *Queue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		slots:     make(chan struct{}, workers),
		lanes:     make(map[string]*lane),
		groups:    make(map[string]*Operation),
		ctx:       ctx,
		cancelAll: cancel,
	}
}

// Add schedules op. An operation without a Key gets a lane of its own. If
// op has a Group, the previous operation of that group is canceled.
func (q *Queue) Add(op *Operation) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		op.complete(Result{Err: ErrQueueStopped})
		return ErrQueueStopped
	}

	var superseded *Operation
	if op.Group != "" {
		superseded = q.groups[op.Group]
		q.groups[op.Group] = op
	}

	key := op.Key
	if key == "" {
		key = "op:" + op.ID
	}
	l, running := q.lanes[key]
	if !running {
		l = &lane{}
		q.lanes[key] = l
	}
	l.ops = append(l.ops, op)

	q.pending.Add(1)
	if !running {
		q.wg.Add(1)
		go q.drain(key, l)
	}
	q.mu.Unlock()

	// Registered without q.mu: an op that already completed runs the
	// callback right here.
	op.OnComplete(func(Result) {
		q.pending.Add(-1)
		if op.Group != "" {
			q.mu.Lock()
			if q.groups[op.Group] == op {
				delete(q.groups, op.Group)
			}
			q.mu.Unlock()
		}
	})

	if superseded != nil {
		log.Printf("[QUEUE] %s %s superseded by %s", superseded.Kind, superseded.ID, op.ID)
		superseded.Cancel()
	}
	return nil
}

// drain runs a lane's operations one after another until it is empty. The
// head of the lane stays in place until it gets a worker so Stop can still
// find and cancel it.
func (q *Queue) drain(key string, l *lane) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(l.ops) == 0 {
			delete(q.lanes, key)
			q.mu.Unlock()
			return
		}
		op := l.ops[0]
		q.mu.Unlock()

		acquired := false
		select {
		case <-op.Done():
		case q.slots <- struct{}{}:
			acquired = true
		}

		q.mu.Lock()
		l.ops = l.ops[1:]
		stopped := q.stopped
		q.mu.Unlock()

		if !acquired {
			continue
		}
		if stopped {
			op.Cancel()
			<-q.slots
			continue
		}
		op.execute(q.ctx)
		<-q.slots
	}
}

// Pending counts operations that have been added and not yet completed.
func (q *Queue) Pending() int {
	return int(q.pending.Load())
}

// WaitIdle blocks until no operation is pending or ctx ends.
func (q *Queue) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for q.Pending() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Stop rejects new operations, cancels those that have not started and
// waits for running ones. If ctx ends first the running ones are
// interrupted as well.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	q.stopped = true
	var waiting []*Operation
	for _, l := range q.lanes {
		for _, op := range l.ops {
			if !op.isStarted() {
				waiting = append(waiting, op)
			}
		}
	}
	q.mu.Unlock()

	for _, op := range waiting {
		op.Cancel()
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancelAll()
		return nil
	case <-ctx.Done():
		q.cancelAll()
		<-done
		return ctx.Err()
	}
}
