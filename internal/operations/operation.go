// Package operations runs remote work for the sync engine.
//
// An Operation is one unit of remote work with a single completion. The
// Queue runs operations on a bounded worker pool: operations that share a
// Key run one at a time in submission order, operations with different keys
// run concurrently, and a newer operation in the same Group cancels the
// older one.
package operations

import (
	"context"
	"sync"

	"github.com/mrlokans/readinglist/internal/entities"
)

type Kind string

const (
	KindFetchList  Kind = "fetch_list"
	KindSave       Kind = "save"
	KindFavorite   Kind = "favorite"
	KindUnfavorite Kind = "unfavorite"
	KindArchive    Kind = "archive"
	KindDelete     Kind = "delete"
)

// KindFor maps an outbox mutation to the operation that sends it.
func KindFor(m entities.MutationKind) Kind {
	switch m {
	case entities.MutationSave:
		return KindSave
	case entities.MutationFavorite:
		return KindFavorite
	case entities.MutationUnfavorite:
		return KindUnfavorite
	case entities.MutationArchive:
		return KindArchive
	case entities.MutationDelete:
		return KindDelete
	}
	return ""
}

// Mutation is the inverse of KindFor. It returns "" for KindFetchList.
func (k Kind) Mutation() entities.MutationKind {
	switch k {
	case KindSave:
		return entities.MutationSave
	case KindFavorite:
		return entities.MutationFavorite
	case KindUnfavorite:
		return entities.MutationUnfavorite
	case KindArchive:
		return entities.MutationArchive
	case KindDelete:
		return entities.MutationDelete
	}
	return ""
}

type Result struct {
	Value any
	Err   error
}

// RunFunc does the work. It must return promptly once ctx is canceled.
type RunFunc func(ctx context.Context) (any, error)

type Operation struct {
	ID    string
	Kind  Kind
	Key   string
	Group string
	// Token is the access token the operation was built with.
	Token string

	run RunFunc

	mu        sync.Mutex
	started   bool
	finished  bool
	canceled  bool
	cancel    context.CancelFunc
	result    Result
	callbacks []func(Result)
	done      chan struct{}
}

func New(id string, kind Kind, run RunFunc) *Operation {
	return &Operation{
		ID:   id,
		Kind: kind,
		run:  run,
		done: make(chan struct{}),
	}
}

// Done is closed once the operation has completed.
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the operation completes or ctx ends.
func (o *Operation) Wait(ctx context.Context) Result {
	select {
	case <-o.done:
		return o.Result()
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

// Result is the zero Result until the operation completes.
func (o *Operation) Result() Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// OnComplete registers fn to run once with the result. If the operation has
// already completed fn runs immediately on the caller's goroutine.
func (o *Operation) OnComplete(fn func(Result)) {
	o.mu.Lock()
	if o.finished {
		r := o.result
		o.mu.Unlock()
		fn(r)
		return
	}
	o.callbacks = append(o.callbacks, fn)
	o.mu.Unlock()
}

// Cancel completes a waiting operation with ErrCanceled, or interrupts a
// running one. It is a no-op after completion.
func (o *Operation) Cancel() {
	o.mu.Lock()
	if o.finished {
		o.mu.Unlock()
		return
	}
	o.canceled = true
	if o.started {
		cancel := o.cancel
		o.mu.Unlock()
		cancel()
		return
	}
	o.mu.Unlock()
	o.complete(Result{Err: ErrCanceled})
}

// execute runs the operation unless it was canceled before it started.
func (o *Operation) execute(parent context.Context) {
	o.mu.Lock()
	if o.finished {
		o.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(parent)
	o.started = true
	o.cancel = cancel
	o.mu.Unlock()
	defer cancel()

	value, err := o.run(ctx)

	o.mu.Lock()
	canceled := o.canceled
	o.mu.Unlock()
	if canceled {
		o.complete(Result{Err: ErrCanceled})
		return
	}
	o.complete(Result{Value: value, Err: err})
}

func (o *Operation) complete(r Result) {
	o.mu.Lock()
	if o.finished {
		o.mu.Unlock()
		return
	}
	o.finished = true
	o.result = r
	callbacks := o.callbacks
	o.callbacks = nil
	close(o.done)
	o.mu.Unlock()

	for _, fn := range callbacks {
		fn(r)
	}
}

func (o *Operation) isStarted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}
