package procmon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cumulus-hpc/controller/job"
	"github.com/cumulus-hpc/controller/queue"
	"github.com/cumulus-hpc/controller/sshsession"
	"github.com/cumulus-hpc/controller/statusclient"
	"github.com/cumulus-hpc/controller/task"
)

// Kind is the task.Kind a Monitor registers its Handle method under.
const Kind = "monitor_process"

const defaultOutputMessage = "Job download/upload error: %s"

const defaultPollInterval = 5 * time.Second

// Monitor drives the process-monitor state machine of spec.md §4.4.
type Monitor struct {
	Pool    *sshsession.Pool
	Status  statusclient.API
	Command queue.Pusher
	Monitor queue.Pusher

	// PollInterval is the reschedule cadence while the watched pid is
	// alive or the head node is unreachable. Zero means 5s.
	PollInterval time.Duration

	Log *slog.Logger
}

func (m *Monitor) interval() time.Duration {
	if m.PollInterval <= 0 {
		return defaultPollInterval
	}
	return m.PollInterval
}

func (m *Monitor) log() *slog.Logger {
	if m.Log == nil {
		return slog.Default()
	}
	return m.Log
}

// Handle implements queue.Handler, dispatched by Kind.
func (m *Monitor) Handle(ctx context.Context, t *task.Task) error {
	args, err := task.Decode[Args](t.Payload)
	if err != nil {
		return err
	}
	return m.tick(ctx, args)
}

// Registry returns a queue.HandlerRegistry with Kind bound to m.Handle,
// ready to merge into the monitor lane's combined registry.
func (m *Monitor) Registry() queue.HandlerRegistry {
	return queue.HandlerRegistry{Kind: m.Handle}
}

// Enqueue pushes a fresh monitor_process task for args, delayed by
// delay. It is the entry point callers (controller, and Monitor
// itself on reschedule) use instead of constructing a task.Task by
// hand.
func Enqueue(ctx context.Context, pusher queue.Pusher, args Args, delay time.Duration) error {
	payload, err := task.Encode(args)
	if err != nil {
		return err
	}
	return pusher.Push(ctx, task.New(task.Monitor, Kind, payload), delay)
}

func (m *Monitor) reschedule(ctx context.Context, args Args) error {
	return Enqueue(ctx, m.Monitor, args, m.interval())
}

func (m *Monitor) markError(ctx context.Context, args Args) error {
	return m.Status.PatchJob(ctx, args.JobId, args.Token, map[string]any{
		"status": string(job.Error),
	})
}

// tick runs one poll of the watched pid per spec.md §4.4 steps 1-5.
func (m *Monitor) tick(ctx context.Context, args Args) error {
	status, err := m.Status.GetStatus(ctx, args.JobId, args.Token)
	if err != nil {
		return err
	}
	if status == job.Terminating || status == job.Terminated {
		return nil
	}

	target := job.SSHTarget(&args.Cluster)
	sess, release, err := m.Pool.Acquire(ctx, target)
	if err != nil {
		if errors.Is(err, sshsession.ErrConnection) {
			return m.reschedule(ctx, args)
		}
		return err
	}
	defer release()

	// Observing: a portable liveness probe. grep against nothing
	// exits non-zero, which we ignore; len(output) > 0 means alive.
	probe := fmt.Sprintf("ps %d | grep %d", args.PID, args.PID)
	out, err := sess.Execute(ctx, probe, true)
	if err != nil {
		if errors.Is(err, sshsession.ErrConnection) {
			return m.reschedule(ctx, args)
		}
		if errors.Is(err, sshsession.ErrRemoteCommandFailed) {
			return m.markError(ctx, args)
		}
		return err
	}
	if len(out) > 0 {
		return m.reschedule(ctx, args)
	}

	// Draining: the process exited, fetch its captured output.
	errOutput, err := m.drain(ctx, sess, args)
	if err != nil {
		if errors.Is(err, sshsession.ErrConnection) {
			return m.reschedule(ctx, args)
		}
		if errors.Is(err, sshsession.ErrRemoteCommandFailed) {
			return m.markError(ctx, args)
		}
		return err
	}
	if errOutput != "" {
		outputMessage := args.OutputMessage
		if outputMessage == "" {
			outputMessage = defaultOutputMessage
		}
		m.log().Error(fmt.Sprintf(outputMessage, errOutput))
		return m.markError(ctx, args)
	}

	// Done: fire the continuation, then reconcile.
	if args.OnComplete.Kind != ContinuationNone {
		next := task.New(task.Command, string(args.OnComplete.Kind), args.OnComplete.Payload)
		if err := m.Command.Push(ctx, next, 0); err != nil {
			return err
		}
	}

	switch status {
	case job.Uploading:
		return m.Status.PatchJob(ctx, args.JobId, args.Token, map[string]any{"status": string(job.Complete)})
	case job.ErrorUploading:
		return m.Status.PatchJob(ctx, args.JobId, args.Token, map[string]any{"status": string(job.Error)})
	default:
		return nil
	}
}

// drain downloads the nohup output file and returns its trimmed
// content, non-empty iff the watched process reported an error.
func (m *Monitor) drain(ctx context.Context, sess sshsession.Session, args Args) (string, error) {
	f, err := os.CreateTemp("", "procmon-*")
	if err != nil {
		return "", err
	}
	localPath := f.Name()
	f.Close()
	defer os.Remove(localPath)

	if err := sess.Get(ctx, args.OutFile, localPath); err != nil {
		return "", err
	}
	content, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(content)), nil
}
