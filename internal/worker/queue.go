// Package worker runs best-effort background tasks off the request path.
// Submission never blocks a handler; task failures are logged and dropped,
// never surfaced to the caller that enqueued them.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/playerstats-api/internal/config"
)

// Task is one unit of deferred work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Queue dispatches submitted tasks to a fixed pool of workers. The buffer is
// unbounded so Submit never blocks the response path.
type Queue struct {
	config  *config.WorkerConfig
	logger  *slog.Logger
	mu      sync.Mutex
	pending []Task
	wake    chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewQueue creates a task queue.
func NewQueue(cfg *config.WorkerConfig, logger *slog.Logger) *Queue {
	return &Queue{
		config: cfg,
		logger: logger,
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Submit enqueues a task. Safe to call from any goroutine; never blocks.
// Tasks submitted after Stop are dropped with a warning.
func (q *Queue) Submit(task Task) {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		q.logger.Warn("task dropped, queue not running", "task", task.Name)
		return
	}
	q.pending = append(q.pending, task)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Start launches the worker pool.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = true
	q.mu.Unlock()

	q.logger.Info("task queue started", "workers", q.config.Workers)

	go q.run(ctx)
	return nil
}

// Stop drains nothing: in-flight tasks finish, queued tasks are dropped.
func (q *Queue) Stop() error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.mu.Unlock()

	close(q.stopCh)
	<-q.doneCh

	q.mu.Lock()
	dropped := len(q.pending)
	q.pending = nil
	q.mu.Unlock()

	if dropped > 0 {
		q.logger.Warn("task queue stopped with tasks pending", "dropped", dropped)
	} else {
		q.logger.Info("task queue stopped")
	}
	return nil
}

// run fans pending tasks out to the worker pool.
func (q *Queue) run(ctx context.Context) {
	defer close(q.doneCh)

	sem := make(chan struct{}, q.config.Workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		case <-q.wake:
		}

		for {
			task, ok := q.next()
			if !ok {
				break
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			case <-q.stopCh:
				return
			}

			wg.Add(1)
			go func(task Task) {
				defer wg.Done()
				defer func() { <-sem }()
				q.execute(ctx, task)
			}(task)
		}
	}
}

func (q *Queue) next() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Task{}, false
	}
	task := q.pending[0]
	q.pending = q.pending[1:]
	return task, true
}

// execute runs one task under the configured timeout. The task context is
// detached from any request context that triggered the submission.
func (q *Queue) execute(ctx context.Context, task Task) {
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.config.TaskTimeout)
	defer cancel()

	start := time.Now()
	if err := task.Run(taskCtx); err != nil {
		q.logger.Error("background task failed",
			"task", task.Name,
			"duration", time.Since(start),
			"error", err,
		)
		return
	}
	q.logger.Debug("background task completed",
		"task", task.Name,
		"duration", time.Since(start),
	)
}

// IsRunning returns whether the queue is accepting tasks.
func (q *Queue) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}
