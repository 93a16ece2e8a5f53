package sshsession

import (
	"errors"
	"fmt"
)

// ErrConnection indicates the SSH transport was lost or could not be
// established: dial failure, handshake failure, or io.EOF from the
// peer mid-session. Callers reschedule on ErrConnection; it is never
// treated as a job-ending failure.
var ErrConnection = errors.New("ssh: connection lost")

// ErrRemoteCommandFailed indicates a command exited non-zero and the
// caller did not request ignoreExitStatus. Use errors.As to recover
// the exit code and captured stderr via *CommandError.
var ErrRemoteCommandFailed = errors.New("ssh: remote command failed")

// CommandError carries the exit status and stderr of a failed remote
// command. It unwraps to ErrRemoteCommandFailed.
type CommandError struct {
	Cmd      string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q exited %d: %s", e.Cmd, e.ExitCode, e.Stderr)
}

func (e *CommandError) Unwrap() error {
	return ErrRemoteCommandFailed
}

func wrapConn(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}
