// Command cumulus-workerd is the process entrypoint for the job
// controller core described in spec.md: it wires the command/monitor
// queue lanes, the SSH session pool, and the metadata-service client
// together into a long-running daemon, plus a handful of read-only
// inspection subcommands against the local task store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var configPath string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "cumulus-workerd",
		Short: "Job-lifecycle controller for cluster orchestration",
		Long: `cumulus-workerd stages, submits, monitors and tears down
batch jobs on a remote cluster's head node on behalf of a central
metadata service. It owns the persistent task graph driving a job
from created through queued/running to complete, error or terminated,
and streams status transitions back over HTTP.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (overlaid with CUMULUS_* env vars)")
	root.AddCommand(newServeCommand())
	root.AddCommand(newJobsCommand())
	return root
}

func withContext() context.Context {
	return context.Background()
}
