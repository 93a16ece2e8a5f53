package sshsession

import "context"

// Fake is an in-memory Session test double. Zero value is usable;
// each field defaults to a no-op/empty-success behavior when nil.
//
// Fake is intended for component tests elsewhere in this module
// (jobmonitor, procmon, controller) that need a Session without a
// real head node.
type Fake struct {
	ExecuteFunc func(ctx context.Context, cmd string, ignoreExitStatus bool) ([]string, error)
	PutFunc     func(ctx context.Context, localPath, remoteDir string) error
	GetFunc     func(ctx context.Context, remotePath, localPath string) error
	MkdirFunc   func(ctx context.Context, path string, ignoreFailure bool) error
	UnlinkFunc  func(ctx context.Context, path string) error
	IsFileFunc  func(ctx context.Context, path string) (bool, error)
	StatFunc    func(ctx context.Context, path string) (Stat, error)
	CloseFunc   func() error
}

func (f *Fake) Execute(ctx context.Context, cmd string, ignoreExitStatus bool) ([]string, error) {
	if f.ExecuteFunc == nil {
		return nil, nil
	}
	return f.ExecuteFunc(ctx, cmd, ignoreExitStatus)
}

func (f *Fake) Put(ctx context.Context, localPath, remoteDir string) error {
	if f.PutFunc == nil {
		return nil
	}
	return f.PutFunc(ctx, localPath, remoteDir)
}

func (f *Fake) Get(ctx context.Context, remotePath, localPath string) error {
	if f.GetFunc == nil {
		return nil
	}
	return f.GetFunc(ctx, remotePath, localPath)
}

func (f *Fake) Mkdir(ctx context.Context, path string, ignoreFailure bool) error {
	if f.MkdirFunc == nil {
		return nil
	}
	return f.MkdirFunc(ctx, path, ignoreFailure)
}

func (f *Fake) Unlink(ctx context.Context, path string) error {
	if f.UnlinkFunc == nil {
		return nil
	}
	return f.UnlinkFunc(ctx, path)
}

func (f *Fake) IsFile(ctx context.Context, path string) (bool, error) {
	if f.IsFileFunc == nil {
		return false, nil
	}
	return f.IsFileFunc(ctx, path)
}

func (f *Fake) Stat(ctx context.Context, path string) (Stat, error) {
	if f.StatFunc == nil {
		return Stat{}, nil
	}
	return f.StatFunc(ctx, path)
}

func (f *Fake) Close() error {
	if f.CloseFunc == nil {
		return nil
	}
	return f.CloseFunc()
}

var _ Session = (*Fake)(nil)
