package queue

import (
	"context"

	"github.com/cumulus-hpc/controller/task"
	"github.com/google/uuid"
)

// Observer provides read-only access to tasks stored in the queue.
//
// Observer does not modify task state and does not participate in
// visibility timeout or lifecycle transitions. It is intended for
// diagnostic, monitoring, and administrative use cases.
//
// Methods of Observer return authoritative snapshots of storage state
// at the time of the call. Returned Task values must be treated as
// immutable views; mutating them does not affect the underlying queue.
type Observer interface {

	// Get returns the task identified by id.
	//
	// If no task with the given id exists, Get returns (nil, nil).
	//
	// The returned Task represents the current storage snapshot,
	// including its Status, Attempts, and scheduling metadata.
	//
	// Get must not change task state.
	Get(ctx context.Context, id uuid.UUID) (*task.Task, error)

	// List returns up to limit tasks matching the provided status.
	//
	// If status is task.Unknown (zero value), implementations may
	// interpret it as "no status filter" and return tasks in any state.
	//
	// If limit is zero or negative, implementations may return all
	// matching tasks, subject to storage-specific constraints.
	//
	// The returned slice contains independent snapshots of task state.
	// Modifying the returned Task values does not affect the queue.
	//
	// List is intended for inspection and administrative tools and
	// should not be used as part of the normal consumption workflow.
	List(ctx context.Context, status task.Status, limit int) ([]*task.Task, error)
}
