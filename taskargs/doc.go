// Package taskargs defines the JSON payload shapes and Kind strings
// the command-lane tasks of the controller core exchange.
//
// This is the concrete form of the Design Notes' "tagged records"
// idea applied one level up, to task dispatch rather than just
// process-monitor continuations: jobmonitor needs to enqueue an
// upload_job_output or terminate_cluster task without importing
// package controller (which owns their handlers and itself imports
// jobmonitor to push monitor_job tasks), so the shared contract lives
// here instead, imported by both sides.
package taskargs
