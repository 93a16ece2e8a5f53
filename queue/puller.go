package queue

import (
	"context"
	"errors"
	"time"

	"github.com/cumulus-hpc/controller/task"
)

var (
	// ErrTaskLost indicates that the referenced task no longer exists in
	// storage or cannot be found in its expected state.
	//
	// This error may occur if the task was concurrently removed or
	// transitioned by another actor.
	ErrTaskLost = errors.New("task lost")

	// ErrLockLost indicates that the caller no longer owns the task lock.
	//
	// This typically happens when the visibility timeout expires and the
	// task is pulled by another worker before the current worker
	// completes or extends the lock.
	ErrLockLost = errors.New("lock lost")

	// ErrCompleteFailed indicates that a task could not be completed due
	// to a state mismatch or concurrent modification.
	//
	// Implementations may return this error when Complete is called on a
	// task that is not currently in the Processing state.
	ErrCompleteFailed = errors.New("complete failed")
)

// Puller defines the read-write contract for consuming and managing tasks
// in the queue lifecycle.
//
// Puller provides visibility timeout semantics similar to systems such
// as Amazon SQS:
//
//   - Pull transitions tasks from Pending to Processing.
//   - While Processing, a task is temporarily invisible to other consumers.
//   - LockedUntil defines the visibility timeout (lease).
//   - If a worker crashes or fails to complete the task before the timeout,
//     the task becomes eligible for pulling again.
//
// The queue provides at-least-once delivery semantics. Handlers must be
// idempotent, as a task may be processed more than once.
type Puller interface {

	// Pull selects up to batch tasks on the given lane that are eligible
	// for execution and transitions them into the Processing state.
	//
	// The lock parameter defines the visibility timeout (lease duration).
	// Implementations must ensure that:
	//
	//   - returned tasks are atomically transitioned to Processing
	//   - Attempts is incremented for each pulled task
	//   - LockedUntil is set to now + lock
	//
	// Only tasks whose Lane matches, whose NextRunAt is in the past, and
	// whose lock (if any) has expired are eligible.
	//
	// The returned tasks represent authoritative storage state.
	//
	// If ctx is canceled, Pull should abort and return an error.
	Pull(ctx context.Context, lane task.Lane, batch int, lock time.Duration) ([]*task.Task, error)

	// ExtendLock extends the visibility timeout of a task currently in
	// the Processing state.
	//
	// The lock parameter defines the new lease duration starting from
	// the time of the call.
	//
	// If the task is no longer in Processing state or the caller no
	// longer owns the lease, ErrLockLost should be returned.
	//
	// ExtendLock must not succeed if the task is already transitioned
	// to a terminal state.
	ExtendLock(ctx context.Context, t *task.Task, lock time.Duration) error

	// Complete transitions a task from Processing to Done.
	//
	// Complete must only succeed if the task is currently in Processing
	// state and the caller owns the lease.
	//
	// On success, the task becomes terminal and will not be retried.
	//
	// If the task is missing or no longer in Processing state,
	// an implementation may return ErrLockLost or ErrCompleteFailed.
	Complete(ctx context.Context, t *task.Task) error

	// Return transitions a task from Processing back to Pending and
	// schedules it for future execution.
	//
	// The backoff parameter specifies the delay before the task becomes
	// eligible for pulling again.
	//
	// Implementations must:
	//
	//   - set Status to Pending
	//   - clear LockedUntil
	//   - set NextRunAt to now + backoff
	//
	// Return must only succeed if the task is currently in Processing
	// state. If the lease is lost or the task no longer exists,
	// ErrTaskLost or ErrLockLost should be returned.
	Return(ctx context.Context, t *task.Task, backoff time.Duration) error

	// Kill transitions a task to the Dead state.
	//
	// A Dead task is considered permanently failed and will not be retried.
	//
	// Implementations may allow Kill to be called on Pending or
	// Processing tasks. If the task does not exist, ErrTaskLost should
	// be returned.
	Kill(ctx context.Context, t *task.Task) error
}
