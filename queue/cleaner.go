package queue

import (
	"context"
	"errors"
	"time"

	"github.com/cumulus-hpc/controller/task"
)

var (
	// ErrBadStatus indicates that an invalid task status was supplied to
	// Cleaner.
	//
	// Cleaner implementations are expected to restrict deletion to
	// terminal states (for example, Done or Dead). Supplying a
	// non-terminal status such as Pending or Processing should result
	// in ErrBadStatus.
	ErrBadStatus = errors.New("bad task status")
)

// Cleaner provides a mechanism for permanently removing tasks from storage.
//
// Cleaner is intended for administrative and retention-management use.
// It does not participate in normal task processing and must not modify
// non-terminal tasks.
//
// Typical usage includes:
//
//   - removing completed tasks older than a certain time
//   - purging dead tasks after inspection
//
// Clean must only delete tasks in terminal states (such as Done or Dead).
// Implementations must reject attempts to delete Pending or Processing tasks.
type Cleaner interface {

	// Clean deletes tasks matching the given status and time condition.
	//
	// The status parameter specifies which task state to target.
	// If status is task.Unknown (zero value), implementations may
	// interpret this as a request to delete all terminal tasks (for
	// example, Done and Dead).
	//
	// The before parameter restricts deletion to tasks whose UpdatedAt
	// timestamp is less than or equal to the provided time.
	// If before is nil, no time-based filtering is applied.
	//
	// Clean returns the number of deleted tasks.
	//
	// Clean must not delete tasks in non-terminal states. If status
	// refers to a non-terminal state, ErrBadStatus should be returned.
	//
	// Clean does not affect currently Processing tasks and does not
	// interact with visibility timeouts.
	Clean(ctx context.Context, status task.Status, before *time.Time) (int64, error)
}
