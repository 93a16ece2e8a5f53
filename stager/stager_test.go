package stager_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cumulus-hpc/controller/sshsession"
	"github.com/cumulus-hpc/controller/stager"
)

func TestDetach(t *testing.T) {
	got := stager.Detach("python girderclient.py --job 1", "1.download.out")
	if !strings.Contains(got, "nohup python girderclient.py --job 1") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, "&> 1.download.out") {
		t.Fatalf("got %q", got)
	}
	if !strings.HasSuffix(got, "&\n") {
		t.Fatalf("expected trailing background marker, got %q", got)
	}
}

func TestStagePutsAndChmods(t *testing.T) {
	var putLocal, putDir string
	var execCmds []string

	fake := &sshsession.Fake{
		PutFunc: func(ctx context.Context, localPath, remoteDir string) error {
			putLocal = localPath
			putDir = remoteDir
			return nil
		},
		ExecuteFunc: func(ctx context.Context, cmd string, ignoreExitStatus bool) ([]string, error) {
			execCmds = append(execCmds, cmd)
			return nil, nil
		},
	}

	path, err := stager.Stage(context.Background(), fake, "echo hi\n")
	if err != nil {
		t.Fatal(err)
	}
	if putLocal == "" {
		t.Fatal("expected Put to be called")
	}
	if putDir != "." {
		t.Fatalf("got remoteDir %q, want .", putDir)
	}
	if !strings.HasPrefix(path, "./") {
		t.Fatalf("got remote path %q, want ./ prefix", path)
	}
	if len(execCmds) != 1 || !strings.HasPrefix(execCmds[0], "chmod 700 ") {
		t.Fatalf("got exec commands %v", execCmds)
	}
}

func TestExtractPID(t *testing.T) {
	pid, err := stager.ExtractPID([]string{"12345"})
	if err != nil {
		t.Fatal(err)
	}
	if pid != 12345 {
		t.Fatalf("got %d, want 12345", pid)
	}
}

func TestExtractPIDWrongLineCount(t *testing.T) {
	if _, err := stager.ExtractPID([]string{"12345", "extra"}); !errors.Is(err, stager.ErrNoPID) {
		t.Fatalf("got %v, want ErrNoPID", err)
	}
	if _, err := stager.ExtractPID(nil); !errors.Is(err, stager.ErrNoPID) {
		t.Fatalf("got %v, want ErrNoPID", err)
	}
}

func TestExtractPIDMalformed(t *testing.T) {
	if _, err := stager.ExtractPID([]string{"not-a-pid"}); !errors.Is(err, stager.ErrMalformedPID) {
		t.Fatalf("got %v, want ErrMalformedPID", err)
	}
}
