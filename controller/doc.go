// Package controller implements the Job Controller (spec.md §4.6,
// component G): the three top-level entry operations (submit,
// terminate, remove_output) and the command-lane handlers that carry
// out the download→submit→monitor→upload→terminate pipeline they
// enqueue into.
//
// Cluster provisioning and teardown are external collaborators
// (spec.md §1); Controller depends on a ClusterTerminator it is
// constructed with rather than driving that protocol itself.
package controller
