package queueadapter_test

import (
	"testing"

	"github.com/cumulus-hpc/controller/job"
	"github.com/cumulus-hpc/controller/queueadapter"
)

func TestResolveDefaultsToSGE(t *testing.T) {
	a, err := queueadapter.Resolve("")
	if err != nil {
		t.Fatal(err)
	}
	if a.Name != "sge" {
		t.Fatalf("got adapter %q, want sge", a.Name)
	}
}

func TestResolveUnsupported(t *testing.T) {
	_, err := queueadapter.Resolve("lsf")
	if err != queueadapter.ErrUnsupportedQueueSystem {
		t.Fatalf("got %v, want ErrUnsupportedQueueSystem", err)
	}
}

func TestSGESubmitJobCommand(t *testing.T) {
	a, _ := queueadapter.Resolve("sge")
	got := a.SubmitJobCommand("run.sh")
	if got != "qsub run.sh" {
		t.Fatalf("got %q", got)
	}
}

func TestSGEParseJobID(t *testing.T) {
	a, _ := queueadapter.Resolve("sge")
	output := []string{`Your job 482931 ("run.sh") has been submitted`}
	id, err := a.ParseJobID(output)
	if err != nil {
		t.Fatal(err)
	}
	if id != "482931" {
		t.Fatalf("got %q, want 482931", id)
	}
}

func TestSGEParseJobIDMissing(t *testing.T) {
	a, _ := queueadapter.Resolve("sge")
	if _, err := a.ParseJobID([]string{"qsub: error: unknown option"}); err != queueadapter.ErrJobIDNotFound {
		t.Fatalf("got %v, want ErrJobIDNotFound", err)
	}
}

func TestSGEExtractJobStatus(t *testing.T) {
	a, _ := queueadapter.Resolve("sge")
	j := &job.Job{QueueJobId: "482931"}
	output := []string{
		"job-ID  prior   name       user         state submit/start at     queue",
		"-----------------------------------------------------------------------",
		"482931 0.55500 run.sh     cluster      r     07/31/2026 10:00:00 all.q@compute-1",
	}
	state, found := a.ExtractJobStatus(output, j)
	if !found {
		t.Fatal("expected job to be found")
	}
	if state != "r" {
		t.Fatalf("got state %q, want r", state)
	}
	if !a.IsRunning(state) {
		t.Fatal("expected r to be a running state")
	}
	if a.IsQueued(state) {
		t.Fatal("did not expect r to be a queued state")
	}
}

func TestSGEExtractJobStatusNotFound(t *testing.T) {
	a, _ := queueadapter.Resolve("sge")
	j := &job.Job{QueueJobId: "999999"}
	output := []string{
		"job-ID  prior   name       user         state submit/start at     queue",
	}
	_, found := a.ExtractJobStatus(output, j)
	if found {
		t.Fatal("did not expect job to be found")
	}
}

func TestSGEQueuedState(t *testing.T) {
	a, _ := queueadapter.Resolve("sge")
	if !a.IsQueued("qw") {
		t.Fatal("expected qw to be queued")
	}
	if a.IsRunning("qw") {
		t.Fatal("did not expect qw to be running")
	}
}

func TestSGETerminateJobCommand(t *testing.T) {
	a, _ := queueadapter.Resolve("sge")
	j := &job.Job{QueueJobId: "482931"}
	got := a.TerminateJobCommand(j)
	if got != "qdel 482931" {
		t.Fatalf("got %q", got)
	}
}
