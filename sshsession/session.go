package sshsession

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Stat is the subset of remote file metadata the controller needs.
type Stat struct {
	Size int64
}

// Session provides scoped operations against a single cluster head
// node. Implementations MUST NOT retry internally; the caller decides
// whether a failure warrants a retry.
type Session interface {
	// Execute runs cmd and returns its stdout as an ordered sequence
	// of lines. If ignoreExitStatus is false, a non-zero exit status
	// returns a *CommandError wrapping ErrRemoteCommandFailed.
	Execute(ctx context.Context, cmd string, ignoreExitStatus bool) ([]string, error)

	// Put uploads the file at localPath into remoteDir, keeping its
	// base name.
	Put(ctx context.Context, localPath, remoteDir string) error

	// Get downloads remotePath to localPath.
	Get(ctx context.Context, remotePath, localPath string) error

	// Mkdir creates path (and parents). If ignoreFailure is true,
	// errors are swallowed.
	Mkdir(ctx context.Context, path string, ignoreFailure bool) error

	// Unlink removes path.
	Unlink(ctx context.Context, path string) error

	// IsFile reports whether path exists and is a regular file.
	IsFile(ctx context.Context, path string) (bool, error)

	// Stat returns metadata for path.
	Stat(ctx context.Context, path string) (Stat, error)

	// Close releases the underlying transport. Pool.Acquire's
	// release function calls this; callers normally do not call it
	// directly.
	Close() error
}

type sshSession struct {
	client *ssh.Client
	sftp   *sftp.Client
}

// Dial opens a new SSH connection plus its companion SFTP subsystem
// to addr using config.
func Dial(ctx context.Context, addr string, config *ssh.ClientConfig) (Session, error) {
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, wrapConn(err)
	}
	sc, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, wrapConn(err)
	}
	return &sshSession{client: client, sftp: sc}, nil
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func (s *sshSession) Execute(ctx context.Context, cmd string, ignoreExitStatus bool) ([]string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return nil, wrapConn(err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- sess.Run(cmd) }()

	select {
	case <-ctx.Done():
		sess.Signal(ssh.SIGKILL)
		return nil, ctx.Err()
	case err := <-done:
		if err == nil {
			return splitLines(stdout.String()), nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			if ignoreExitStatus {
				return splitLines(stdout.String()), nil
			}
			return nil, &CommandError{Cmd: cmd, ExitCode: exitErr.ExitStatus(), Stderr: stderr.String()}
		}
		return nil, wrapConn(err)
	}
}

func (s *sshSession) Put(ctx context.Context, localPath, remoteDir string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	remotePath := path.Join(remoteDir, filepath.Base(localPath))
	rf, err := s.sftp.Create(remotePath)
	if err != nil {
		return wrapConn(err)
	}
	defer rf.Close()

	if _, err := io.Copy(rf, f); err != nil {
		return wrapConn(err)
	}
	return nil
}

func (s *sshSession) Get(ctx context.Context, remotePath, localPath string) error {
	rf, err := s.sftp.Open(remotePath)
	if err != nil {
		return wrapConn(err)
	}
	defer rf.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, rf); err != nil {
		return wrapConn(err)
	}
	return nil
}

func (s *sshSession) Mkdir(ctx context.Context, path string, ignoreFailure bool) error {
	if err := s.sftp.MkdirAll(path); err != nil && !ignoreFailure {
		return wrapConn(err)
	}
	return nil
}

func (s *sshSession) Unlink(ctx context.Context, path string) error {
	if err := s.sftp.Remove(path); err != nil {
		return wrapConn(err)
	}
	return nil
}

func (s *sshSession) IsFile(ctx context.Context, path string) (bool, error) {
	info, err := s.sftp.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, wrapConn(err)
	}
	return !info.IsDir(), nil
}

func (s *sshSession) Stat(ctx context.Context, path string) (Stat, error) {
	info, err := s.sftp.Stat(path)
	if err != nil {
		return Stat{}, wrapConn(err)
	}
	return Stat{Size: info.Size()}, nil
}

func (s *sshSession) Close() error {
	sftpErr := s.sftp.Close()
	clientErr := s.client.Close()
	if sftpErr != nil {
		return sftpErr
	}
	return clientErr
}
