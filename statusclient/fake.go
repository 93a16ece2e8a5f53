package statusclient

import (
	"context"
	"sync"

	"github.com/cumulus-hpc/controller/job"
)

// PatchCall records one PatchJob invocation against a Fake.
type PatchCall struct {
	Id     string
	Fields map[string]any
}

// Fake is an in-memory API test double. Zero value is usable; each
// function field defaults to a no-op/empty-success behavior when nil.
// Every PatchJob call is additionally recorded in Patches so tests can
// assert on the exact sequence of status transitions a handler issued.
type Fake struct {
	GetJobFunc    func(ctx context.Context, id, token string) (*job.Job, error)
	GetStatusFunc func(ctx context.Context, id, token string) (job.Status, error)
	PatchJobFunc  func(ctx context.Context, id, token string, fields map[string]any) error

	mu      sync.Mutex
	Patches []PatchCall
}

func (f *Fake) GetJob(ctx context.Context, id, token string) (*job.Job, error) {
	if f.GetJobFunc == nil {
		return &job.Job{Id: id}, nil
	}
	return f.GetJobFunc(ctx, id, token)
}

func (f *Fake) GetStatus(ctx context.Context, id, token string) (job.Status, error) {
	if f.GetStatusFunc == nil {
		return job.Created, nil
	}
	return f.GetStatusFunc(ctx, id, token)
}

func (f *Fake) PatchJob(ctx context.Context, id, token string, fields map[string]any) error {
	f.mu.Lock()
	f.Patches = append(f.Patches, PatchCall{Id: id, Fields: fields})
	f.mu.Unlock()
	if f.PatchJobFunc == nil {
		return nil
	}
	return f.PatchJobFunc(ctx, id, token, fields)
}

// LastPatch returns the most recent PatchJob call, or the zero value
// if none were made.
func (f *Fake) LastPatch() PatchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Patches) == 0 {
		return PatchCall{}
	}
	return f.Patches[len(f.Patches)-1]
}

var _ API = (*Fake)(nil)
