package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		valid    bool
	}{
		{"*/30 * * * *", true},
		{"0 */6 * * *", true},
		{"0 0 * * 0", true},
		{"* * * * * *", false},
		{"every hour", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNextRunTime(t *testing.T) {
	from := time.Date(2024, 3, 1, 10, 7, 0, 0, time.UTC)
	next, err := NextRunTime("*/30 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), *next)

	_, err = NextRunTime("nope", from)
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Every 30 minutes", Describe(DefaultSchedule))
	assert.Equal(t, "Custom schedule: 5 4 * * *", Describe("5 4 * * *"))
}

func TestStartDisabled(t *testing.T) {
	s := NewRefreshScheduler(Config{Enabled: false}, func(context.Context) error { return nil })
	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun())
}

func TestStartInvalidSchedule(t *testing.T) {
	s := NewRefreshScheduler(Config{Enabled: true, Schedule: "bogus"}, func(context.Context) error { return nil })
	err := s.Start(context.Background())
	assert.Error(t, err)
	assert.False(t, s.IsRunning())
}

func TestStartAndStop(t *testing.T) {
	s := NewRefreshScheduler(Config{Enabled: true}, func(context.Context) error { return nil })
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	next := s.NextRun()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun())
}

func TestStopOnContextCancel(t *testing.T) {
	s := NewRefreshScheduler(Config{Enabled: true}, func(context.Context) error { return nil })
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	cancel()
	assert.Eventually(t, func() bool { return !s.IsRunning() }, 2*time.Second, 10*time.Millisecond)
}

func TestRunNow(t *testing.T) {
	done := make(chan struct{})
	s := NewRefreshScheduler(Config{}, func(context.Context) error {
		close(done)
		return errors.New("remote down")
	})

	s.RunNow()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}

	assert.Eventually(t, func() bool {
		at, _ := s.LastRun()
		return at != nil
	}, 2*time.Second, 10*time.Millisecond)
	_, err := s.LastRun()
	assert.EqualError(t, err, "remote down")
}

func TestRunSkipsWhileSyncing(t *testing.T) {
	var runs atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	s := NewRefreshScheduler(Config{}, func(context.Context) error {
		runs.Add(1)
		started <- struct{}{}
		<-release
		return nil
	})

	s.RunNow()
	<-started
	assert.True(t, s.IsSyncing())

	s.run()
	assert.Equal(t, int32(1), runs.Load())

	close(release)
	assert.Eventually(t, func() bool { return !s.IsSyncing() }, 2*time.Second, 10*time.Millisecond)
}
