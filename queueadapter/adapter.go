package queueadapter

import (
	"errors"
	"strings"

	"github.com/cumulus-hpc/controller/job"
)

// ErrUnsupportedQueueSystem is returned by Resolve when a cluster names
// a queue.system with no registered Adapter.
var ErrUnsupportedQueueSystem = errors.New("queueadapter: unsupported queuing system")

// ErrUnrecognizedState reports a state string, returned by an
// Adapter's ExtractJobStatus, that neither IsQueued nor IsRunning
// accepts. The job monitor returns it; ExtractJobStatus itself only
// reports the state and whether the job was found.
var ErrUnrecognizedState = errors.New("queueadapter: unrecognized job state")

// ErrJobIDNotFound is returned by ParseJobID when a submission
// command's output does not contain a recognizable job id.
var ErrJobIDNotFound = errors.New("queueadapter: job id not found in submission output")

// Adapter is the fixed set of operations needed to drive one kind of
// batch queuing system over an SSH session. Every field is a pure
// function; an Adapter holds no connection or state of its own.
type Adapter struct {
	// Name identifies the adapter, e.g. "sge".
	Name string

	// QueueJobIDField is the job document field that stores the id the
	// queue assigned at submission time. The controller uses it as the
	// PATCH body key after a successful submit.
	QueueJobIDField string

	// SubmitJobCommand builds the shell command that submits
	// scriptName (a path on the head node) to the queue.
	SubmitJobCommand func(scriptName string) string

	// ParseJobID extracts the queue-assigned job id from the stdout
	// lines of the command SubmitJobCommand produced.
	ParseJobID func(output []string) (string, error)

	// JobStatusCommand builds the shell command that lists the
	// current state of j's queue job.
	JobStatusCommand func(j *job.Job) string

	// ExtractJobStatus parses the stdout lines of JobStatusCommand
	// and returns j's state string. found is false when j no longer
	// appears in the queue's listing at all (it has left the queue,
	// successfully or not).
	ExtractJobStatus func(output []string, j *job.Job) (state string, found bool)

	// IsQueued reports whether state means "accepted but not yet
	// running".
	IsQueued func(state string) bool

	// IsRunning reports whether state means "currently executing".
	IsRunning func(state string) bool

	// TerminateJobCommand builds the shell command that cancels j's
	// queue job.
	TerminateJobCommand func(j *job.Job) string
}

var systemRegistry = map[string]Adapter{
	"sge": SGE,
}

// Resolve returns the Adapter for system, matched case-insensitively
// (so "SGE" and "sge" select the same adapter). An empty system
// defaults to SGE, matching a cluster with no queue.system configured.
func Resolve(system string) (Adapter, error) {
	if system == "" {
		system = "sge"
	}
	a, ok := systemRegistry[strings.ToLower(system)]
	if !ok {
		return Adapter{}, ErrUnsupportedQueueSystem
	}
	return a, nil
}
