package procmon

import "github.com/cumulus-hpc/controller/job"

// ContinuationKind names the command-lane task a Continuation pushes.
// It is a plain string rather than an import of package taskargs so
// procmon stays a blind forwarder: it never inspects Payload, it only
// pushes it unchanged once the watched process exits cleanly.
type ContinuationKind string

// ContinuationNone means "fire nothing" — the zero value.
const ContinuationNone ContinuationKind = ""

// Continuation is the tagged record named in spec.md §9 Design Notes
// ("Task continuations... represented as tagged records rather than
// opaque serialised callables"). Payload is the JSON-encoded argument
// value the target Kind's handler expects.
type Continuation struct {
	Kind    ContinuationKind `json:"kind,omitempty"`
	Payload []byte           `json:"payload,omitempty"`
}

// Args is the monitor-lane task payload for watching one detached
// remote process to completion (spec.md §4.4).
type Args struct {
	Cluster job.Cluster `json:"cluster"`
	JobId   string      `json:"jobId"`
	Token   string      `json:"token"`

	PID     int    `json:"pid"`
	OutFile string `json:"outFile"`

	// OutputMessage is a fmt.Sprintf-style format string with one %s
	// verb, used when logging non-empty nohup output as an error.
	// Empty means the default "Job download/upload error: %s".
	OutputMessage string `json:"outputMessage,omitempty"`

	// OnComplete fires once the process exits with empty captured
	// output. ContinuationNone means "nothing to do".
	OnComplete Continuation `json:"onComplete,omitempty"`
}
