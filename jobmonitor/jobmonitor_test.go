package jobmonitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cumulus-hpc/controller/job"
	"github.com/cumulus-hpc/controller/sshsession"
	"github.com/cumulus-hpc/controller/statusclient"
	"github.com/cumulus-hpc/controller/task"
)

type fakePusher struct {
	mu    sync.Mutex
	tasks []*task.Task
}

func (p *fakePusher) Push(ctx context.Context, t *task.Task, delay time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, t)
	return nil
}

func (p *fakePusher) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

func (p *fakePusher) last() *task.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tasks) == 0 {
		return nil
	}
	return p.tasks[len(p.tasks)-1]
}

func newPool(sess sshsession.Session) *sshsession.Pool {
	return sshsession.NewPool(func(ctx context.Context, target string) (sshsession.Session, error) {
		return sess, nil
	}, 0)
}

func baseArgs() Args {
	return Args{
		Cluster: job.Cluster{Config: map[string]string{"host": "head.example.org"}},
		Job: job.Job{
			Id:         "job-1",
			Name:       "a",
			QueueJobId: "42",
		},
		Token: "tok",
	}
}

func TestTickTerminatedStopsWithoutSSH(t *testing.T) {
	fake := &sshsession.Fake{
		ExecuteFunc: func(ctx context.Context, cmd string, ignoreExitStatus bool) ([]string, error) {
			t.Fatal("Execute should not be called once the job is terminated")
			return nil, nil
		},
	}
	status := &statusclient.Fake{
		GetStatusFunc: func(ctx context.Context, id, token string) (job.Status, error) {
			return job.Terminated, nil
		},
	}
	m := &Monitor{Pool: newPool(fake), Status: status, Monitor: &fakePusher{}}

	args := baseArgs()
	tk := task.New(task.Monitor, Kind, mustEncode(t, args))
	if err := m.Handle(context.Background(), tk); err != nil {
		t.Fatalf("Handle: %v", err)
	}
}

func TestTickRunningComputesQueuedTimingAndReschedules(t *testing.T) {
	fake := &sshsession.Fake{
		ExecuteFunc: func(ctx context.Context, cmd string, ignoreExitStatus bool) ([]string, error) {
			return []string{"42 0.5 a user r 07/31/2026"}, nil
		},
	}
	status := &statusclient.Fake{
		GetStatusFunc: func(ctx context.Context, id, token string) (job.Status, error) {
			return job.Queued, nil
		},
	}
	monitorQ := &fakePusher{}
	m := &Monitor{Pool: newPool(fake), Status: status, Monitor: monitorQ, Command: &fakePusher{}}

	args := baseArgs()
	queuedAt := time.Now().Add(-2 * time.Second)
	args.Job.QueuedTime = &queuedAt

	tk := task.New(task.Monitor, Kind, mustEncode(t, args))
	if err := m.Handle(context.Background(), tk); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if monitorQ.len() != 1 {
		t.Fatalf("expected one reschedule, got %d", monitorQ.len())
	}
	patch := status.LastPatch()
	if patch.Fields["status"] != string(job.Running) {
		t.Fatalf("expected running patch, got %v", patch.Fields)
	}
	timings, ok := patch.Fields["timings"].(map[string]int64)
	if !ok || timings["queued"] <= 0 {
		t.Fatalf("expected queued timing, got %v", patch.Fields["timings"])
	}
}

func TestTickCompleteNoOutputsNoStderr(t *testing.T) {
	fake := &sshsession.Fake{
		ExecuteFunc: func(ctx context.Context, cmd string, ignoreExitStatus bool) ([]string, error) {
			return nil, nil // empty qstat listing: job left the queue
		},
		IsFileFunc: func(ctx context.Context, path string) (bool, error) {
			return false, nil
		},
	}
	status := &statusclient.Fake{
		GetStatusFunc: func(ctx context.Context, id, token string) (job.Status, error) {
			return job.Running, nil
		},
	}
	commandQ := &fakePusher{}
	m := &Monitor{Pool: newPool(fake), Status: status, Command: commandQ, Monitor: &fakePusher{}}

	args := baseArgs()
	tk := task.New(task.Monitor, Kind, mustEncode(t, args))
	if err := m.Handle(context.Background(), tk); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if status.LastPatch().Fields["status"] != string(job.Complete) {
		t.Fatalf("expected complete patch, got %v", status.LastPatch())
	}
	if commandQ.len() != 0 {
		t.Fatalf("expected no command push, got %d", commandQ.len())
	}
}

func TestTickCompleteWithOutputsPushesUpload(t *testing.T) {
	fake := &sshsession.Fake{
		ExecuteFunc: func(ctx context.Context, cmd string, ignoreExitStatus bool) ([]string, error) {
			return nil, nil
		},
		IsFileFunc: func(ctx context.Context, path string) (bool, error) {
			return false, nil
		},
	}
	status := &statusclient.Fake{
		GetStatusFunc: func(ctx context.Context, id, token string) (job.Status, error) {
			return job.Running, nil
		},
	}
	commandQ := &fakePusher{}
	m := &Monitor{Pool: newPool(fake), Status: status, Command: commandQ, Monitor: &fakePusher{}}

	args := baseArgs()
	args.Job.Output = []job.OutputDescriptor{{Path: "out.txt"}}
	tk := task.New(task.Monitor, Kind, mustEncode(t, args))
	if err := m.Handle(context.Background(), tk); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if status.LastPatch().Fields["status"] != string(job.Uploading) {
		t.Fatalf("expected uploading patch, got %v", status.LastPatch())
	}
	if commandQ.len() != 1 {
		t.Fatalf("expected upload task pushed, got %d", commandQ.len())
	}
}

func TestTickStderrNonEmptyMarksError(t *testing.T) {
	fake := &sshsession.Fake{
		ExecuteFunc: func(ctx context.Context, cmd string, ignoreExitStatus bool) ([]string, error) {
			return nil, nil
		},
		IsFileFunc: func(ctx context.Context, path string) (bool, error) {
			return true, nil
		},
		StatFunc: func(ctx context.Context, path string) (sshsession.Stat, error) {
			return sshsession.Stat{Size: 128}, nil
		},
	}
	status := &statusclient.Fake{
		GetStatusFunc: func(ctx context.Context, id, token string) (job.Status, error) {
			return job.Running, nil
		},
	}
	m := &Monitor{Pool: newPool(fake), Status: status, Command: &fakePusher{}, Monitor: &fakePusher{}}

	args := baseArgs()
	tk := task.New(task.Monitor, Kind, mustEncode(t, args))
	if err := m.Handle(context.Background(), tk); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if status.LastPatch().Fields["status"] != string(job.Error) {
		t.Fatalf("expected error patch, got %v", status.LastPatch())
	}
}

func TestTickPvwSkipsStderrCheck(t *testing.T) {
	fake := &sshsession.Fake{
		ExecuteFunc: func(ctx context.Context, cmd string, ignoreExitStatus bool) ([]string, error) {
			return nil, nil
		},
		IsFileFunc: func(ctx context.Context, path string) (bool, error) {
			t.Fatal("stderr check must be skipped for job.name == pvw")
			return false, nil
		},
	}
	status := &statusclient.Fake{
		GetStatusFunc: func(ctx context.Context, id, token string) (job.Status, error) {
			return job.Running, nil
		},
	}
	m := &Monitor{Pool: newPool(fake), Status: status, Command: &fakePusher{}, Monitor: &fakePusher{}}

	args := baseArgs()
	args.Job.Name = "pvw"
	tk := task.New(task.Monitor, Kind, mustEncode(t, args))
	if err := m.Handle(context.Background(), tk); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if status.LastPatch().Fields["status"] != string(job.Complete) {
		t.Fatalf("expected complete patch, got %v", status.LastPatch())
	}
}

func TestTickTerminatingStillQueuedReschedulesWithoutTerminalPatch(t *testing.T) {
	fake := &sshsession.Fake{
		ExecuteFunc: func(ctx context.Context, cmd string, ignoreExitStatus bool) ([]string, error) {
			return []string{"42 0.5 a user qw 07/31/2026"}, nil
		},
	}
	status := &statusclient.Fake{
		GetStatusFunc: func(ctx context.Context, id, token string) (job.Status, error) {
			return job.Terminating, nil
		},
	}
	monitorQ := &fakePusher{}
	m := &Monitor{Pool: newPool(fake), Status: status, Monitor: monitorQ, Command: &fakePusher{}}

	args := baseArgs()
	tk := task.New(task.Monitor, Kind, mustEncode(t, args))
	if err := m.Handle(context.Background(), tk); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if monitorQ.len() != 1 {
		t.Fatalf("expected reschedule, got %d", monitorQ.len())
	}
	if status.LastPatch().Fields["status"] != string(job.Terminating) {
		t.Fatalf("expected status to remain terminating, got %v", status.LastPatch())
	}
}

func TestTickTerminatingGoneTransitionsToTerminated(t *testing.T) {
	fake := &sshsession.Fake{
		ExecuteFunc: func(ctx context.Context, cmd string, ignoreExitStatus bool) ([]string, error) {
			return nil, nil
		},
	}
	status := &statusclient.Fake{
		GetStatusFunc: func(ctx context.Context, id, token string) (job.Status, error) {
			return job.Terminating, nil
		},
	}
	monitorQ := &fakePusher{}
	m := &Monitor{Pool: newPool(fake), Status: status, Monitor: monitorQ, Command: &fakePusher{}}

	args := baseArgs()
	tk := task.New(task.Monitor, Kind, mustEncode(t, args))
	if err := m.Handle(context.Background(), tk); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if monitorQ.len() != 0 {
		t.Fatalf("expected no reschedule, got %d", monitorQ.len())
	}
	if status.LastPatch().Fields["status"] != string(job.Terminated) {
		t.Fatalf("expected terminated patch, got %v", status.LastPatch())
	}
}

func TestTickTransportErrorReschedulesWithoutPatch(t *testing.T) {
	dialCount := 0
	pool := sshsession.NewPool(func(ctx context.Context, target string) (sshsession.Session, error) {
		dialCount++
		return nil, sshsession.ErrConnection
	}, 0)
	status := &statusclient.Fake{
		GetStatusFunc: func(ctx context.Context, id, token string) (job.Status, error) {
			return job.Queued, nil
		},
	}
	monitorQ := &fakePusher{}
	m := &Monitor{Pool: pool, Status: status, Monitor: monitorQ}

	args := baseArgs()
	tk := task.New(task.Monitor, Kind, mustEncode(t, args))
	if err := m.Handle(context.Background(), tk); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if dialCount != 1 {
		t.Fatalf("expected one dial attempt, got %d", dialCount)
	}
	if monitorQ.len() != 1 {
		t.Fatalf("expected reschedule on transport error, got %d", monitorQ.len())
	}
	if len(status.Patches) != 0 {
		t.Fatalf("expected no PATCH on transport error, got %v", status.Patches)
	}
}

func TestTickUnsupportedQueueSystemPropagatesWithoutPatch(t *testing.T) {
	status := &statusclient.Fake{
		GetStatusFunc: func(ctx context.Context, id, token string) (job.Status, error) {
			return job.Queued, nil
		},
	}
	m := &Monitor{Pool: newPool(&sshsession.Fake{}), Status: status, Monitor: &fakePusher{}}

	args := baseArgs()
	args.Cluster.Queue.System = "lsf-no-such-adapter"
	tk := task.New(task.Monitor, Kind, mustEncode(t, args))
	if err := m.Handle(context.Background(), tk); err == nil {
		t.Fatal("expected ErrUnsupportedQueueSystem to propagate")
	}
	if len(status.Patches) != 0 {
		t.Fatalf("expected no PATCH on unsupported queue system, got %v", status.Patches)
	}
}

func mustEncode(t *testing.T, args Args) []byte {
	t.Helper()
	payload, err := task.Encode(args)
	if err != nil {
		t.Fatal(err)
	}
	return payload
}
