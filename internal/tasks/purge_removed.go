package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// DefaultPurgeAfter is how long archived and deleted items are kept locally.
const DefaultPurgeAfter = 72 * time.Hour

// RemovedPurger physically removes archived and deleted items.
type RemovedPurger interface {
	PurgeRemoved(cutoff time.Time) (int, error)
}

// PurgeRemovedTask deletes tombstoned saved items older than the retention.
type PurgeRemovedTask struct {
	// RetentionHours overrides the processor's default when positive.
	RetentionHours int `json:"retention_hours,omitempty"`
}

// Config returns the queue configuration for purge tasks.
func (t PurgeRemovedTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "purge_removed_items",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PurgeRemovedProcessor creates a processor function for PurgeRemovedTask.
func PurgeRemovedProcessor(purger RemovedPurger, retention time.Duration) backlite.QueueProcessor[PurgeRemovedTask] {
	if retention <= 0 {
		retention = DefaultPurgeAfter
	}
	return func(ctx context.Context, task PurgeRemovedTask) error {
		if purger == nil {
			return fmt.Errorf("purger not configured")
		}

		keep := retention
		if task.RetentionHours > 0 {
			keep = time.Duration(task.RetentionHours) * time.Hour
		}

		purged, err := purger.PurgeRemoved(time.Now().Add(-keep))
		if err != nil {
			return fmt.Errorf("purge removed items: %w", err)
		}

		log.Printf("[TASK] Purged %d removed items older than %s", purged, keep)
		return nil
	}
}

// NewPurgeRemovedQueue creates a backlite queue for purge tasks.
func NewPurgeRemovedQueue(purger RemovedPurger, retention time.Duration) backlite.Queue {
	return backlite.NewQueue(PurgeRemovedProcessor(purger, retention))
}
