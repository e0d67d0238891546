package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/readinglist/internal/operations"
)

// Refresher runs a full list refresh and waits for it.
type Refresher interface {
	RefreshAndWait(ctx context.Context) error
}

// RefreshTask pulls the remote list into the local store.
type RefreshTask struct {
	// Reason is logged only: "schedule", "manual", "startup".
	Reason string `json:"reason,omitempty"`
}

// Config returns the queue configuration for refresh tasks.
func (t RefreshTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "refresh_list",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RefreshProcessor creates a processor function for RefreshTask. A refresh
// superseded by a newer one counts as done.
func RefreshProcessor(refresher Refresher) backlite.QueueProcessor[RefreshTask] {
	return func(ctx context.Context, task RefreshTask) error {
		if refresher == nil {
			return fmt.Errorf("refresher not configured")
		}

		start := time.Now()
		err := refresher.RefreshAndWait(ctx)
		if errors.Is(err, operations.ErrCanceled) {
			log.Printf("[TASK] Refresh (%s) superseded by a newer one", task.Reason)
			return nil
		}
		if err != nil {
			return fmt.Errorf("refresh (%s): %w", task.Reason, err)
		}

		log.Printf("[TASK] Refresh (%s) finished in %s", task.Reason, time.Since(start).Round(time.Millisecond))
		return nil
	}
}

// NewRefreshQueue creates a backlite queue for refresh tasks.
func NewRefreshQueue(refresher Refresher) backlite.Queue {
	return backlite.NewQueue(RefreshProcessor(refresher))
}
