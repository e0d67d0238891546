package operations

import "errors"

// ErrCanceled completes an operation that was canceled or superseded. A
// canceled operation never reports a value.
var ErrCanceled = errors.New("operation canceled")

// ErrQueueStopped is returned when adding to a queue that has been stopped.
var ErrQueueStopped = errors.New("operation queue stopped")

// ErrSavePending fails a mutation whose item has no remote ID yet because
// its save has not been confirmed. The mutation is retried after the save.
var ErrSavePending = errors.New("remote save not confirmed")
