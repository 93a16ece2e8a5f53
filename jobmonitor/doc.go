// Package jobmonitor implements the Job Monitor (spec.md §4.5,
// component F): a recurring monitor-lane task that polls a batch-queue
// job by its queueJobId, drives the queued→running→complete
// transitions, and hands off to the upload or cluster-termination
// paths once the queue no longer knows about the job.
package jobmonitor
