package task

import (
	"time"

	"github.com/google/uuid"
)

// Lane names one of the two polling lanes a Task can live on.
//
// Command tasks are one-shot work (download, submit, upload, terminate,
// remove-output); Monitor tasks are recurring polls (job-queue state,
// remote-process liveness). Splitting them into separate lanes keeps a
// slow command from starving the fast monitor ticks that share the
// same process (spec.md 4.7/5).
type Lane string

const (
	Command Lane = "command"
	Monitor Lane = "monitor"
)

// Task represents a unit of work managed by the queue storage.
//
// Id identifies the task. Kind names the registered handler that
// should process it; Lane selects which worker pool polls for it;
// Payload carries the handler's JSON-encoded arguments.
//
// CreatedAt records when the task was initially enqueued.
// UpdatedAt records the last state transition or modification.
//
// Status represents the current state in the delivery lifecycle.
// Attempts counts how many times the task has been pulled for execution.
// LockedUntil defines the visibility timeout; while set and in the
// future, the task is considered owned by a worker.
// NextRunAt specifies the earliest time the task may be pulled.
//
// Task instances should be treated as snapshots of storage state.
// Mutating fields directly does not change the underlying queue state;
// transitions must be performed through the Puller interface.
type Task struct {
	Id      uuid.UUID
	Kind    string
	Lane    Lane
	Payload []byte

	CreatedAt time.Time
	UpdatedAt time.Time

	Status      Status
	Attempts    uint32
	LockedUntil *time.Time
	NextRunAt   time.Time
}

// New creates a new Task with a randomly generated id.
//
// The returned Task carries no scheduling metadata; a Pusher
// initializes CreatedAt, Status and NextRunAt on enqueue.
func New(lane Lane, kind string, payload []byte) *Task {
	return &Task{
		Id:      uuid.New(),
		Kind:    kind,
		Lane:    lane,
		Payload: payload,
	}
}
