// Package task defines the stateful envelope used by the queue engine to
// carry one unit of controller work (a download, a submit, a monitor
// tick, an upload, a terminate, ...) through its delivery lifecycle.
//
// A Task is deliberately generic: Kind names the handler that should run
// it, Lane selects which worker pool polls for it ("command" for
// one-shot work, "monitor" for recurring polls), and Payload carries the
// handler's JSON-encoded arguments. The queue engine (package queue)
// only ever looks at the delivery-state fields (Status, Attempts,
// LockedUntil, NextRunAt); it never inspects Payload.
//
// Task values are snapshots returned by a queue.Puller and passed back
// to it for state transitions. They are not constructed directly by
// handler code; use Encode/Decode to marshal handler arguments.
package task
