package main

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cumulus-hpc/controller/internal/config"
	sqlstore "github.com/cumulus-hpc/controller/queue/sql"
	"github.com/cumulus-hpc/controller/task"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

// newJobsCommand groups read-only introspection of the local task
// store: it never talks to the metadata service or a cluster, only
// the durable queue backing cumulus-workerd's own lanes.
func newJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect tasks in the local queue store",
	}
	cmd.AddCommand(newJobsListCommand())
	cmd.AddCommand(newJobsGetCommand())
	return cmd
}

func openObserverDB(dsn string) (*bun.DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

func newJobsListCommand() *cobra.Command {
	var statusFlag string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally filtered by status (Pending, Processing, Done, Dead)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			db, err := openObserverDB(cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			st := task.Unknown
			if statusFlag != "" {
				st, err = task.ParseStatus(statusFlag)
				if err != nil {
					return err
				}
			}
			observer := sqlstore.NewObserver(db)
			tasks, err := observer.List(withContext(), st, limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tasks)
		},
	}
	cmd.Flags().StringVar(&statusFlag, "status", "", "filter by status (default: all)")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of tasks to return")
	return cmd
}

func newJobsGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <task-id>",
		Short: "Print a single task by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid task id %q: %w", args[0], err)
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			db, err := openObserverDB(cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			observer := sqlstore.NewObserver(db)
			t, err := observer.Get(withContext(), id)
			if err != nil {
				return err
			}
			if t == nil {
				return fmt.Errorf("task %s not found", id)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(t)
		},
	}
	return cmd
}
