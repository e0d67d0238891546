package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readinglist/internal/operations"
)

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	require.NotNil(t, client)

	_, err = os.Stat(filepath.Join(tmpDir, "test-tasks.db"))
	assert.NoError(t, err, "tasks database should be created")

	err = client.Close()
	assert.NoError(t, err)
}

func TestTasksDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "readinglist-tasks.db"), TasksDBPath(filepath.Join("data", "readinglist.db")))
	assert.Equal(t, "store-tasks", TasksDBPath("store"))
}

func TestClientStartStop(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()

	success := client.Stop(stopCtx)
	assert.True(t, success, "stop should succeed gracefully")
}

type fakeRefresher struct {
	calls atomic.Int32
	err   error
	done  chan struct{}
}

func (f *fakeRefresher) RefreshAndWait(ctx context.Context) error {
	f.calls.Add(1)
	if f.done != nil {
		f.done <- struct{}{}
	}
	return f.err
}

func TestRefreshTaskThroughQueue(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	defer client.Close()

	refresher := &fakeRefresher{done: make(chan struct{}, 1)}
	client.Register(NewRefreshQueue(refresher))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	ids, err := client.Enqueue(RefreshTask{Reason: "manual"})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	select {
	case <-refresher.done:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh task was not executed within timeout")
	}
	assert.Equal(t, int32(1), refresher.calls.Load())
}

func TestRefreshProcessor(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		r := &fakeRefresher{}
		assert.NoError(t, RefreshProcessor(r)(context.Background(), RefreshTask{Reason: "schedule"}))
		assert.Equal(t, int32(1), r.calls.Load())
	})

	t.Run("superseded counts as done", func(t *testing.T) {
		r := &fakeRefresher{err: operations.ErrCanceled}
		assert.NoError(t, RefreshProcessor(r)(context.Background(), RefreshTask{}))
	})

	t.Run("failure is retried by the queue", func(t *testing.T) {
		r := &fakeRefresher{err: errors.New("boom")}
		err := RefreshProcessor(r)(context.Background(), RefreshTask{Reason: "schedule"})
		assert.ErrorContains(t, err, "boom")
	})

	t.Run("not configured", func(t *testing.T) {
		assert.Error(t, RefreshProcessor(nil)(context.Background(), RefreshTask{}))
	})
}

type fakeReplayer struct {
	n   int
	err error
}

func (f *fakeReplayer) ResumePending(ctx context.Context) (int, error) {
	return f.n, f.err
}

func TestReplayOutboxProcessor(t *testing.T) {
	assert.NoError(t, ReplayOutboxProcessor(&fakeReplayer{n: 3})(context.Background(), ReplayOutboxTask{}))

	err := ReplayOutboxProcessor(&fakeReplayer{err: errors.New("db locked")})(context.Background(), ReplayOutboxTask{})
	assert.ErrorContains(t, err, "db locked")
}

type fakePurger struct {
	cutoff time.Time
}

func (f *fakePurger) PurgeRemoved(cutoff time.Time) (int, error) {
	f.cutoff = cutoff
	return 2, nil
}

func TestPurgeRemovedProcessor(t *testing.T) {
	t.Run("default retention", func(t *testing.T) {
		p := &fakePurger{}
		require.NoError(t, PurgeRemovedProcessor(p, 0)(context.Background(), PurgeRemovedTask{}))
		assert.WithinDuration(t, time.Now().Add(-DefaultPurgeAfter), p.cutoff, time.Minute)
	})

	t.Run("task override", func(t *testing.T) {
		p := &fakePurger{}
		require.NoError(t, PurgeRemovedProcessor(p, time.Hour)(context.Background(), PurgeRemovedTask{RetentionHours: 5}))
		assert.WithinDuration(t, time.Now().Add(-5*time.Hour), p.cutoff, time.Minute)
	})
}

func TestTaskConfigs(t *testing.T) {
	tests := []struct {
		task        backlite.Task
		name        string
		maxAttempts int
	}{
		{RefreshTask{}, "refresh_list", 3},
		{ReplayOutboxTask{}, "replay_outbox", 1},
		{PurgeRemovedTask{}, "purge_removed_items", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.task.Config()
			assert.Equal(t, tt.name, cfg.Name)
			assert.Equal(t, tt.maxAttempts, cfg.MaxAttempts)
			assert.NotNil(t, cfg.Retention)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 5*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, 6*time.Hour, cfg.CleanupInterval)

	partial := Config{Workers: 3}.withDefaults()
	assert.Equal(t, 3, partial.Workers)
	assert.Equal(t, DefaultReleaseAfter, partial.ReleaseAfter)
	assert.Equal(t, DefaultCleanupInterval, partial.CleanupInterval)
}
