package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cumulus-hpc/controller/job"
	"github.com/cumulus-hpc/controller/jobmonitor"
	"github.com/cumulus-hpc/controller/procmon"
	"github.com/cumulus-hpc/controller/queueadapter"
	"github.com/cumulus-hpc/controller/render"
	"github.com/cumulus-hpc/controller/sshsession"
	"github.com/cumulus-hpc/controller/stager"
	"github.com/cumulus-hpc/controller/task"
	"github.com/cumulus-hpc/controller/taskargs"
)

func (c *Controller) handleDownloadJobInput(ctx context.Context, t *task.Task) error {
	args, err := task.Decode[taskargs.DownloadJobInput](t.Payload)
	if err != nil {
		return err
	}
	return c.downloadJobInput(ctx, args)
}

// downloadJobInput stages the bundled download client on the head
// node, runs it detached, and watches it to completion before handing
// off to submit_job. The bundled client itself (girderclient.py) is
// treated as external infrastructure already present on the head
// node, the same way cluster provisioning is (spec.md §1) — this
// controller only knows how to invoke it.
func (c *Controller) downloadJobInput(ctx context.Context, args taskargs.DownloadJobInput) error {
	dir := job.Dir(&args.Job)
	target := job.SSHTarget(&args.Cluster)

	sess, release, err := c.Pool.Acquire(ctx, target)
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}
	defer release()

	if err := sess.Mkdir(ctx, dir, false); err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}
	if err := c.Status.PatchJob(ctx, args.Job.Id, args.Token, map[string]any{"status": string(job.Downloading)}); err != nil {
		return err
	}

	downloadCmd := fmt.Sprintf("python girderclient.py --token %s --url %q download --dir %s --job %s",
		args.Token, c.BaseURL, dir, args.Job.Id)
	outFile := args.Job.Id + ".download.out"

	staged, err := stager.Stage(ctx, sess, stager.Detach(downloadCmd, outFile))
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}
	output, err := sess.Execute(ctx, staged, false)
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}
	if err := sess.Unlink(ctx, staged); err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}

	pid, err := stager.ExtractPID(output)
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}

	payload, err := task.Encode(taskargs.SubmitJob{
		Cluster: args.Cluster, Job: args.Job, Token: args.Token, LogURL: args.LogURL,
	})
	if err != nil {
		return err
	}

	return procmon.Enqueue(ctx, c.Monitor, procmon.Args{
		Cluster: args.Cluster,
		JobId:   args.Job.Id,
		Token:   args.Token,
		PID:     pid,
		OutFile: outFile,
		OnComplete: procmon.Continuation{
			Kind:    procmon.ContinuationKind(taskargs.KindSubmitJob),
			Payload: payload,
		},
	}, 0)
}

func (c *Controller) handleSubmitJob(ctx context.Context, t *task.Task) error {
	args, err := task.Decode[taskargs.SubmitJob](t.Payload)
	if err != nil {
		return err
	}
	return c.submitJob(ctx, args)
}

// submitJob renders the job's commands into a submission script,
// uploads and submits it via the cluster's queue adapter, and spawns
// the job monitor. A job already observed as terminating is a no-op
// (spec.md §8 S5).
func (c *Controller) submitJob(ctx context.Context, args taskargs.SubmitJob) error {
	status, err := c.Status.GetStatus(ctx, args.Job.Id, args.Token)
	if err != nil {
		return err
	}
	if status == job.Terminating || status == job.Terminated {
		return nil
	}

	dir := job.Dir(&args.Job)
	target := job.SSHTarget(&args.Cluster)

	sess, release, err := c.Pool.Acquire(ctx, target)
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}
	defer release()

	adapter, err := queueadapter.Resolve(args.Cluster.Queue.System)
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}

	params := make(map[string]string, len(args.Job.Params)+2)
	for k, v := range args.Job.Params {
		params[k] = v
	}

	pe := parallelEnvironment(&args.Cluster, &args.Job)
	if pe != "" {
		params["parallelEnvironment"] = pe
	}
	if _, ok := args.Cluster.Config["numberOfSlots"]; !ok && pe != "" {
		slots, err := numberOfSlots(ctx, sess, pe)
		if err != nil {
			return c.classify(ctx, args.Job.Id, args.Token, err)
		}
		params["numberOfSlots"] = strconv.Itoa(slots)
		c.log().Info("resolved parallel environment slots", "pe", pe, "slots", slots)
	}

	scriptBody := strings.Join(args.Job.Commands, "\n") + "\n"
	rendered, err := render.Script(scriptBody, render.Context{
		Cluster: &args.Cluster, Job: &args.Job, BaseURL: c.BaseURL, Params: params,
	})
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}

	localPath := filepath.Join(os.TempDir(), args.Job.Name)
	if err := os.WriteFile(localPath, []byte(rendered), 0o600); err != nil {
		return err
	}
	defer os.Remove(localPath)

	if err := sess.Mkdir(ctx, dir, true); err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}
	if err := sess.Put(ctx, localPath, dir); err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}

	cmd := fmt.Sprintf("cd %s && %s", dir, adapter.SubmitJobCommand(args.Job.Name))
	output, err := sess.Execute(ctx, cmd, false)
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}

	queueJobId, err := adapter.ParseJobID(output)
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}

	if err := c.Status.PatchJob(ctx, args.Job.Id, args.Token, map[string]any{
		"status":               string(job.Queued),
		adapter.QueueJobIDField: queueJobId,
	}); err != nil {
		return err
	}

	args.Job.QueueJobId = queueJobId
	now := time.Now()
	args.Job.QueuedTime = &now
	args.Job.Status = job.Queued

	return jobmonitor.Enqueue(ctx, c.Monitor, jobmonitor.Args{
		Cluster: args.Cluster, Job: args.Job, Token: args.Token, LogURL: args.LogURL,
	}, 5*time.Second)
}

func (c *Controller) handleUploadJobOutput(ctx context.Context, t *task.Task) error {
	args, err := task.Decode[taskargs.UploadJobOutput](t.Payload)
	if err != nil {
		return err
	}
	return c.uploadJobOutput(ctx, args)
}

// uploadJobOutput stages a detached upload client run and watches it
// to completion, optionally chaining cluster termination.
func (c *Controller) uploadJobOutput(ctx context.Context, args taskargs.UploadJobOutput) error {
	status, err := c.Status.GetStatus(ctx, args.Job.Id, args.Token)
	if err != nil {
		return err
	}
	if status == job.Terminating || status == job.Terminated {
		return nil
	}

	dir := job.Dir(&args.Job)
	target := job.SSHTarget(&args.Cluster)

	sess, release, err := c.Pool.Acquire(ctx, target)
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}
	defer release()

	outFile := args.Job.Id + ".upload.out"
	uploadCmd := fmt.Sprintf("python ../girderclient.py --token %s --url %q upload --job %s",
		args.Token, c.BaseURL, args.Job.Id)
	script := "cd " + dir + "\n" + stager.Detach(uploadCmd, "../"+outFile)

	staged, err := stager.Stage(ctx, sess, script)
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}
	output, err := sess.Execute(ctx, staged, false)
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}
	if err := sess.Unlink(ctx, staged); err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}

	pid, err := stager.ExtractPID(output)
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}

	var onComplete procmon.Continuation
	if args.Job.OnComplete != nil && args.Job.OnComplete.Cluster == "terminate" {
		payload, err := task.Encode(taskargs.TerminateCluster{
			Cluster: args.Cluster, Token: args.Token, LogURL: args.LogURL,
		})
		if err != nil {
			return err
		}
		onComplete = procmon.Continuation{Kind: procmon.ContinuationKind(taskargs.KindTerminateCluster), Payload: payload}
	}

	return procmon.Enqueue(ctx, c.Monitor, procmon.Args{
		Cluster:    args.Cluster,
		JobId:      args.Job.Id,
		Token:      args.Token,
		PID:        pid,
		OutFile:    outFile,
		OnComplete: onComplete,
	}, 0)
}

func (c *Controller) handleTerminateJob(ctx context.Context, t *task.Task) error {
	args, err := task.Decode[taskargs.TerminateJob](t.Payload)
	if err != nil {
		return err
	}
	return c.terminateJob(ctx, args)
}

// terminateJob cancels a submitted job (or marks an unsubmitted one
// terminated directly) and, if onTerminate commands are present,
// stages and spawns them detached, watched by a process monitor.
func (c *Controller) terminateJob(ctx context.Context, args taskargs.TerminateJob) error {
	target := job.SSHTarget(&args.Cluster)
	sess, release, err := c.Pool.Acquire(ctx, target)
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}
	defer release()

	if args.Job.QueueJobId != "" {
		adapter, err := queueadapter.Resolve(args.Cluster.Queue.System)
		if err != nil {
			return c.classify(ctx, args.Job.Id, args.Token, err)
		}
		if _, err := sess.Execute(ctx, adapter.TerminateJobCommand(&args.Job), false); err != nil {
			return c.classify(ctx, args.Job.Id, args.Token, err)
		}
	} else {
		if err := c.Status.PatchJob(ctx, args.Job.Id, args.Token, map[string]any{"status": string(job.Terminated)}); err != nil {
			return err
		}
	}

	if args.Job.OnTerminate == nil || len(args.Job.OnTerminate.Commands) == 0 {
		return nil
	}

	body := strings.Join(args.Job.OnTerminate.Commands, "\n") + "\n"
	rendered, err := render.Script(body, render.Context{
		Cluster: &args.Cluster, Job: &args.Job, BaseURL: c.BaseURL,
	})
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}

	onTerminateScript, err := stager.Stage(ctx, sess, rendered)
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}
	outFile := args.Job.Id + ".terminate.out"
	wrapped, err := stager.Stage(ctx, sess, stager.Detach(onTerminateScript, outFile))
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}
	output, err := sess.Execute(ctx, wrapped, false)
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}
	if err := sess.Unlink(ctx, onTerminateScript); err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}
	if err := sess.Unlink(ctx, wrapped); err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}

	pid, err := stager.ExtractPID(output)
	if err != nil {
		return c.classify(ctx, args.Job.Id, args.Token, err)
	}

	return procmon.Enqueue(ctx, c.Monitor, procmon.Args{
		Cluster:       args.Cluster,
		JobId:         args.Job.Id,
		Token:         args.Token,
		PID:           pid,
		OutFile:       outFile,
		OutputMessage: "onTerminate error: %s",
	}, 0)
}

func (c *Controller) handleRemoveOutput(ctx context.Context, t *task.Task) error {
	args, err := task.Decode[taskargs.RemoveOutput](t.Payload)
	if err != nil {
		return err
	}
	return c.removeOutput(ctx, t.Attempts, args)
}

// removeOutput recursively deletes the job's remote working directory.
// Unlike every other command handler it never records a job status:
// the original never did, and there is no status meaning "output
// removed". It caps its own transport-fault retries at 5 attempts
// (spec.md §8 invariant 6) by inspecting the task's own attempt
// counter rather than relying on the (lane-global) backoff config.
func (c *Controller) removeOutput(ctx context.Context, attempts uint32, args taskargs.RemoveOutput) error {
	target := job.SSHTarget(&args.Cluster)
	sess, release, err := c.Pool.Acquire(ctx, target)
	if err != nil {
		return c.giveUpOrRetry(err, attempts, args.Job.Id)
	}
	defer release()

	dir := job.Dir(&args.Job)
	if _, err := sess.Execute(ctx, "rm -rf "+dir, false); err != nil {
		return c.giveUpOrRetry(err, attempts, args.Job.Id)
	}
	return nil
}

func (c *Controller) giveUpOrRetry(err error, attempts uint32, jobId string) error {
	if !errors.Is(err, sshsession.ErrConnection) {
		// Only transport faults warrant a retry (spec.md §4.6, §8
		// invariant 6); any other failure is logged and swallowed so
		// the command lane never re-enqueues it.
		c.log().Error("remove_output failed", "jobId", jobId, "err", err)
		return nil
	}
	if attempts >= 5 {
		c.log().Warn("remove_output: giving up after 5 SSH attempts", "jobId", jobId)
		return nil
	}
	return err
}

// parallelEnvironment resolves the queue parallel environment per
// spec.md §4.6: job params override cluster config, and an EC2
// cluster with neither configured defaults to "orte".
func parallelEnvironment(c *job.Cluster, j *job.Job) string {
	if pe, ok := j.Params["parallelEnvironment"]; ok && pe != "" {
		return pe
	}
	if pe, ok := c.Config["parallelEnvironment"]; ok && pe != "" {
		return pe
	}
	if c.Type == job.EC2 {
		return "orte"
	}
	return ""
}

var slotsRe = regexp.MustCompile(`slots\s+(\d+)`)

// numberOfSlots queries pe's slot count via qconf, as used when a
// cluster does not configure numberOfSlots explicitly.
func numberOfSlots(ctx context.Context, sess sshsession.Session, pe string) (int, error) {
	output, err := sess.Execute(ctx, "qconf -sp "+pe, false)
	if err != nil {
		return 0, err
	}
	for _, line := range output {
		m := slotsRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			break
		}
		return n, nil
	}
	return 0, ErrNoSlots
}
