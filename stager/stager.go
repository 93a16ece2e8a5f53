package stager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cumulus-hpc/controller/sshsession"
)

// Detach wraps cmd so it runs in the background, detached from the
// parent shell, with its combined stdout and stderr redirected to
// outFile. The resulting line itself is not detached; Stage appends
// an `echo $!` after it so the backgrounded pid is the script's only
// output.
func Detach(cmd, outFile string) string {
	return fmt.Sprintf("nohup %s  &> %s  &\n", cmd, outFile)
}

// Stage writes commands to a local temporary file, appends a trailing
// `echo $!` so running the script prints the pid of its last
// backgrounded job, uploads it to the head node's home directory, and
// marks it executable. It returns the remote path, suitable for a
// direct session.Execute call.
//
// Stage does not execute or remove the script; the caller is
// responsible for both, mirroring the one-shot, no-retry contract of
// sshsession.Session.
func Stage(ctx context.Context, session sshsession.Session, commands string) (string, error) {
	f, err := os.CreateTemp("", "stage-*")
	if err != nil {
		return "", err
	}
	localPath := f.Name()
	defer os.Remove(localPath)

	if _, err := f.WriteString(commands); err != nil {
		f.Close()
		return "", err
	}
	if _, err := f.WriteString("echo $!\n"); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	if err := session.Put(ctx, localPath, "."); err != nil {
		return "", err
	}

	remotePath := "./" + filepath.Base(localPath)
	if _, err := session.Execute(ctx, "chmod 700 "+remotePath, false); err != nil {
		return "", err
	}
	return remotePath, nil
}

// ExtractPID parses the single-line pid output a staged script prints
// via its trailing `echo $!`.
func ExtractPID(output []string) (int, error) {
	if len(output) != 1 {
		return 0, fmt.Errorf("%w: got %d lines", ErrNoPID, len(output))
	}
	pid, err := strconv.Atoi(strings.TrimSpace(output[0]))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedPID, output[0])
	}
	return pid, nil
}
