package queue

import (
	"context"
	"time"

	"github.com/cumulus-hpc/controller/task"
)

// Pusher defines the write-side entry point of a queue.
type Pusher interface {

	// Push enqueues a new task for future processing.
	//
	// The provided context controls cancellation of the enqueue operation
	// itself. It does not affect the lifetime of the enqueued task.
	//
	// The delay parameter specifies the minimum duration that must elapse
	// before the task becomes eligible for pulling. A zero delay makes
	// the task immediately available. A positive delay schedules the
	// task for deferred execution.
	//
	// Implementations are expected to:
	//
	//   - persist the task durably before returning nil
	//   - initialize internal scheduling metadata (for example, NextRunAt)
	//   - assign creation timestamps if applicable
	//
	// Push must not mutate t after returning.
	//
	// If Push returns a non-nil error, the task must not be considered
	// enqueued.
	//
	// Implementations may return context-related errors if ctx is canceled
	// or times out.
	Push(ctx context.Context, t *task.Task, delay time.Duration) error
}
