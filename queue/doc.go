// Package queue provides a storage-agnostic, two-lane queue with
// at-least-once delivery semantics and visibility timeout behavior.
//
// # Overview
//
// queue models a durable task queue with explicit state transitions.
// It separates the handler envelope (task.Task: Kind, Lane, Payload)
// from delivery state (Status, Attempts, LockedUntil, NextRunAt) and
// defines a set of interfaces for pushing, pulling, observing and
// cleaning tasks.
//
// The package does not mandate any particular storage backend.
// Implementations may use SQLite, PostgreSQL, or any other durable store
// (see queue/sql for a bun-backed implementation).
//
// # Delivery Semantics
//
// queue provides at-least-once processing guarantees.
//
// A task may be delivered more than once if:
//
//   - a worker crashes before completing it
//   - the visibility timeout expires
//   - the lease is lost due to concurrent processing
//
// Handlers must therefore be idempotent.
//
// Visibility Timeout (Lease Model)
//
// When a task is pulled, it transitions from Pending to Processing and
// receives a visibility timeout (LockedUntil). While the lease is valid,
// the task is not eligible for pulling by other workers.
//
// If the lease expires before completion, the task becomes eligible again.
//
// The Worker automatically extends the lease while a handler is running.
//
// # State Machine
//
// Tasks follow this lifecycle:
//
//	Pending    -> Processing
//	Processing -> Done
//	Processing -> Pending   (via Return)
//	Processing -> Dead
//
// Terminal states (Done, Dead) are not retried unless explicitly requeued.
//
// # Lanes
//
// Every Task carries a task.Lane ("command" or "monitor"). A Puller
// implementation filters Pull by lane, and the controller wires one
// Worker per lane so a slow command task never starves the fast
// monitor ticks sharing the same process.
//
// # Retry Policy
//
// Retry behavior is controlled by BackoffConfig.
//
// When a handler returns an error:
//
//   - If the maximum retry limit is not exceeded,
//     the task is rescheduled with a computed backoff delay.
//   - Otherwise, the task transitions to Dead.
//
// Attempts are incremented each time a task is successfully pulled.
//
// Worker
//
//	coordinates pulling, dispatching, retrying and completing tasks.
//
// It:
//
//   - periodically polls storage for eligible tasks on one lane
//   - dispatches them to a configurable worker pool
//   - extends task leases while handlers execute
//   - applies retry/backoff logic on failure
//   - supports graceful shutdown with timeout
//
// Worker does not guarantee exactly-once delivery.
//
// # Interfaces
//
// queue defines the following primary interfaces:
//
//	Pusher   — enqueue tasks
//	Puller   — manage task lifecycle transitions
//	Observer — inspect task state
//	Cleaner  — remove terminal tasks
//
// These interfaces allow storage implementations to be plugged in
// without coupling the queue logic to a specific database.
//
// # Concurrency Model
//
// Worker uses a bounded internal queue and a fixed-size worker pool.
// Pulling and processing are decoupled to smooth load.
//
// Shutdown is graceful: in-flight handlers are allowed to finish,
// subject to a configurable timeout.
//
// # Storage Expectations
//
// Implementations of Puller must ensure atomic state transitions,
// durable persistence and correct visibility timeout handling.
//
// queue assumes that storage provides reliable write semantics.
// Behavior under concurrent writers depends on the chosen backend.
//
// # Summary
//
// queue provides a minimal yet structured foundation for building
// durable background processing systems with explicit lifecycle control,
// retry semantics, lane isolation and pluggable storage backends.
package queue
