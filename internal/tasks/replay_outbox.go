package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// OutboxReplayer resubmits unconfirmed mutations.
type OutboxReplayer interface {
	ResumePending(ctx context.Context) (int, error)
}

// ReplayOutboxTask retries mutations that never reached the server.
type ReplayOutboxTask struct{}

// Config returns the queue configuration for outbox replay tasks.
func (t ReplayOutboxTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "replay_outbox",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ReplayOutboxProcessor creates a processor function for ReplayOutboxTask.
func ReplayOutboxProcessor(replayer OutboxReplayer) backlite.QueueProcessor[ReplayOutboxTask] {
	return func(ctx context.Context, task ReplayOutboxTask) error {
		if replayer == nil {
			return fmt.Errorf("outbox replayer not configured")
		}

		n, err := replayer.ResumePending(ctx)
		if err != nil {
			return fmt.Errorf("replay outbox: %w", err)
		}
		if n > 0 {
			log.Printf("[TASK] Replayed %d outbox entries", n)
		}
		return nil
	}
}

// NewReplayOutboxQueue creates a backlite queue for outbox replay tasks.
func NewReplayOutboxQueue(replayer OutboxReplayer) backlite.Queue {
	return backlite.NewQueue(ReplayOutboxProcessor(replayer))
}
