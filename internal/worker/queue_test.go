package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playerstats-api/internal/config"
)

func testQueue(t *testing.T) *Queue {
	t.Helper()
	cfg := &config.WorkerConfig{Workers: 2, TaskTimeout: time.Second}
	return NewQueue(cfg, slog.Default())
}

func TestQueueRunsSubmittedTasks(t *testing.T) {
	q := testQueue(t)
	require.NoError(t, q.Start(context.Background()))
	defer q.Stop()

	var ran atomic.Int32
	done := make(chan struct{})
	q.Submit(Task{
		Name: "test-task",
		Run: func(ctx context.Context) error {
			ran.Add(1)
			close(done)
			return nil
		},
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	assert.Equal(t, int32(1), ran.Load())
}

func TestQueueSwallowsTaskErrors(t *testing.T) {
	q := testQueue(t)
	require.NoError(t, q.Start(context.Background()))
	defer q.Stop()

	first := make(chan struct{})
	second := make(chan struct{})
	q.Submit(Task{
		Name: "failing-task",
		Run: func(ctx context.Context) error {
			close(first)
			return errors.New("boom")
		},
	})
	q.Submit(Task{
		Name: "following-task",
		Run: func(ctx context.Context) error {
			close(second)
			return nil
		},
	})

	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("first task did not run")
	}
	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("second task did not run after a failure")
	}
}

func TestQueueDropsTasksWhenNotRunning(t *testing.T) {
	q := testQueue(t)

	var ran atomic.Int32
	q.Submit(Task{
		Name: "before-start",
		Run: func(ctx context.Context) error {
			ran.Add(1)
			return nil
		},
	})

	assert.Equal(t, int32(0), ran.Load())
	assert.False(t, q.IsRunning())
}

func TestQueueStartStopIdempotent(t *testing.T) {
	q := testQueue(t)

	require.NoError(t, q.Start(context.Background()))
	require.NoError(t, q.Start(context.Background()))
	assert.True(t, q.IsRunning())

	require.NoError(t, q.Stop())
	require.NoError(t, q.Stop())
	assert.False(t, q.IsRunning())
}

func TestQueueTaskTimeout(t *testing.T) {
	cfg := &config.WorkerConfig{Workers: 1, TaskTimeout: 50 * time.Millisecond}
	q := NewQueue(cfg, slog.Default())
	require.NoError(t, q.Start(context.Background()))
	defer q.Stop()

	timedOut := make(chan struct{})
	q.Submit(Task{
		Name: "slow-task",
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			close(timedOut)
			return ctx.Err()
		},
	})

	select {
	case <-timedOut:
	case <-time.After(2 * time.Second):
		t.Fatal("task context never expired")
	}
}
