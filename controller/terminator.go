package controller

import (
	"context"
	"log/slog"

	"github.com/cumulus-hpc/controller/job"
	"github.com/cumulus-hpc/controller/task"
	"github.com/cumulus-hpc/controller/taskargs"
)

// ClusterTerminator tears down a cluster once its owning job(s)
// reach onComplete.cluster == "terminate" or an upload finishes with
// the same directive. Cluster provisioning is treated as an external
// collaborator (spec.md §1): no termination protocol is specified
// anywhere in scope, so this is the seam a real implementation plugs
// into.
type ClusterTerminator interface {
	TerminateCluster(ctx context.Context, cluster job.Cluster, logURL string) error
}

// LoggingTerminator is a no-op ClusterTerminator that only logs the
// request. It is the default so a Controller is usable without a real
// cluster-provisioning integration wired in yet.
type LoggingTerminator struct {
	Log *slog.Logger
}

func (t *LoggingTerminator) log() *slog.Logger {
	if t.Log == nil {
		return slog.Default()
	}
	return t.Log
}

func (t *LoggingTerminator) TerminateCluster(ctx context.Context, cluster job.Cluster, logURL string) error {
	t.log().Info("cluster termination requested", "clusterId", cluster.Id, "logUrl", logURL)
	return nil
}

func (c *Controller) handleTerminateCluster(ctx context.Context, t *task.Task) error {
	args, err := task.Decode[taskargs.TerminateCluster](t.Payload)
	if err != nil {
		return err
	}
	if c.Terminator == nil {
		return nil
	}
	return c.Terminator.TerminateCluster(ctx, args.Cluster, args.LogURL)
}
