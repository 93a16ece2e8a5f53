package statusclient

import (
	"context"

	"github.com/cumulus-hpc/controller/job"
)

// API is the subset of metadata-service operations the controller
// core depends on. *Client is the production implementation; tests in
// jobmonitor, procmon, and controller substitute *Fake so they never
// need a live metadata service, mirroring sshsession.Session/Fake.
type API interface {
	// GetJob fetches the full job document.
	GetJob(ctx context.Context, id, token string) (*job.Job, error)

	// GetStatus fetches only the job's current status, the cheap poll
	// every monitor tick performs to detect termination.
	GetStatus(ctx context.Context, id, token string) (job.Status, error)

	// PatchJob merges fields into the job document.
	PatchJob(ctx context.Context, id, token string, fields map[string]any) error
}

var _ API = (*Client)(nil)
