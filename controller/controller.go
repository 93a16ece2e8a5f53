package controller

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cumulus-hpc/controller/job"
	"github.com/cumulus-hpc/controller/queue"
	"github.com/cumulus-hpc/controller/queueadapter"
	"github.com/cumulus-hpc/controller/sshsession"
	"github.com/cumulus-hpc/controller/stager"
	"github.com/cumulus-hpc/controller/statusclient"
	"github.com/cumulus-hpc/controller/task"
	"github.com/cumulus-hpc/controller/taskargs"
)

// Controller wires the command and monitor lanes into the pipeline
// spec.md §4.6 describes. Per the Design Notes' "Global task-runtime
// handles" entry, it is constructed with explicit enqueue handles
// rather than reaching for package-level queue singletons.
type Controller struct {
	Pool   *sshsession.Pool
	Status statusclient.API

	// Command is the one-shot work lane: submit/upload/terminate/
	// remove-output/terminate-cluster tasks.
	Command queue.Pusher
	// Monitor is the recurring-poll lane: job-monitor and
	// process-monitor ticks.
	Monitor queue.Pusher

	// BaseURL is substituted into rendered scripts and the bundled
	// client's --url argument.
	BaseURL string

	// Terminator carries out cluster teardown once a terminate_cluster
	// task fires. Cluster provisioning is an external collaborator
	// (spec.md §1); a nil Terminator makes terminate_cluster a no-op.
	Terminator ClusterTerminator

	Log *slog.Logger
}

func (c *Controller) log() *slog.Logger {
	if c.Log == nil {
		return slog.Default()
	}
	return c.Log
}

// Submit is the entry point named in spec.md §4.6: if job carries
// input descriptors, the download task is enqueued first; otherwise
// submission is enqueued directly.
func (c *Controller) Submit(ctx context.Context, token string, cluster job.Cluster, j job.Job, logURL string) error {
	if len(j.Input) > 0 {
		payload, err := task.Encode(taskargs.DownloadJobInput{Cluster: cluster, Job: j, Token: token, LogURL: logURL})
		if err != nil {
			return err
		}
		return c.Command.Push(ctx, task.New(task.Command, taskargs.KindDownloadJobInput, payload), 0)
	}
	payload, err := task.Encode(taskargs.SubmitJob{Cluster: cluster, Job: j, Token: token, LogURL: logURL})
	if err != nil {
		return err
	}
	return c.Command.Push(ctx, task.New(task.Command, taskargs.KindSubmitJob, payload), 0)
}

// Terminate enqueues the terminate_job task, which decides between
// cancelling a queued submission and marking an unsubmitted job
// terminated directly, then runs any onTerminate commands.
func (c *Controller) Terminate(ctx context.Context, token string, cluster job.Cluster, j job.Job, logURL string) error {
	payload, err := task.Encode(taskargs.TerminateJob{Cluster: cluster, Job: j, Token: token, LogURL: logURL})
	if err != nil {
		return err
	}
	return c.Command.Push(ctx, task.New(task.Command, taskargs.KindTerminateJob, payload), 0)
}

// RemoveOutput enqueues recursive removal of the job's remote working
// directory.
func (c *Controller) RemoveOutput(ctx context.Context, token string, cluster job.Cluster, j job.Job) error {
	payload, err := task.Encode(taskargs.RemoveOutput{Cluster: cluster, Job: j, Token: token})
	if err != nil {
		return err
	}
	return c.Command.Push(ctx, task.New(task.Command, taskargs.KindRemoveOutput, payload), 0)
}

// Registry returns the command lane's handler set, ready to merge into
// the worker bound to task.Command.
func (c *Controller) Registry() queue.HandlerRegistry {
	return queue.HandlerRegistry{
		taskargs.KindDownloadJobInput: c.handleDownloadJobInput,
		taskargs.KindSubmitJob:        c.handleSubmitJob,
		taskargs.KindUploadJobOutput:  c.handleUploadJobOutput,
		taskargs.KindTerminateJob:     c.handleTerminateJob,
		taskargs.KindRemoveOutput:     c.handleRemoveOutput,
		taskargs.KindTerminateCluster: c.handleTerminateCluster,
	}
}

// classify applies the error taxonomy of spec.md §7 to err, which must
// have originated from an SSH or queue-adapter call. Transport faults
// and UnsupportedQueueSystem propagate untouched so the caller (the
// queue engine's backoff, or the top-level caller) decides what to do
// next; every other class records the failure on the job and either
// swallows it (task stops) or re-raises it (Unexpected, for
// runtime-level logging).
func (c *Controller) classify(ctx context.Context, jobId, token string, err error) error {
	if errors.Is(err, sshsession.ErrConnection) {
		return err
	}
	if errors.Is(err, queueadapter.ErrUnsupportedQueueSystem) {
		return err
	}

	protocolError := errors.Is(err, sshsession.ErrRemoteCommandFailed) ||
		errors.Is(err, stager.ErrNoPID) ||
		errors.Is(err, stager.ErrMalformedPID) ||
		errors.Is(err, queueadapter.ErrJobIDNotFound) ||
		errors.Is(err, queueadapter.ErrUnrecognizedState) ||
		errors.Is(err, ErrNoSlots)

	if perr := c.Status.PatchJob(ctx, jobId, token, map[string]any{"status": string(job.Error)}); perr != nil {
		return perr
	}
	if protocolError {
		return nil
	}
	// Unexpected: record on the job, and still propagate for
	// runtime-level logging/retry accounting.
	return err
}
