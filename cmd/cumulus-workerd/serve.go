package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cumulus-hpc/controller/controller"
	"github.com/cumulus-hpc/controller/internal/config"
	"github.com/cumulus-hpc/controller/jobmonitor"
	"github.com/cumulus-hpc/controller/procmon"
	"github.com/cumulus-hpc/controller/queue"
	sqlstore "github.com/cumulus-hpc/controller/queue/sql"
	"github.com/cumulus-hpc/controller/sshsession"
	"github.com/cumulus-hpc/controller/statusclient"
	"github.com/cumulus-hpc/controller/task"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
	"golang.org/x/crypto/ssh"
)

func newServeCommand() *cobra.Command {
	var shutdownTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the controller daemon: command and monitor lanes, SSH pool, metadata client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigCh
				log.Info("shutdown signal received")
				cancel()
			}()

			return runServe(ctx, cfg, log, shutdownTimeout)
		},
	}
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "max time to wait for in-flight tasks on shutdown")
	return cmd
}

func openDB(dsn string) (*bun.DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1) // single-writer WAL discipline, mirrors the teacher's sqlite test harness
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if err := sqlstore.InitDB(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}

// sshDialer builds an sshsession.Dialer authenticating as cfg.User
// with the private key at cfg.KeyPath. Host key verification is left
// to the operator's network posture (cluster head nodes are reached
// over a private network in the deployments this targets); a stricter
// callback can be substituted here without touching any other
// component.
func sshDialer(cfg config.SSH) (sshsession.Dialer, error) {
	keyData, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key %s: %w", cfg.KeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key %s: %w", cfg.KeyPath, err)
	}
	clientConfig := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         cfg.DialTimeout,
	}
	return func(ctx context.Context, target string) (sshsession.Session, error) {
		return sshsession.Dial(ctx, target, clientConfig)
	}, nil
}

func workerConfig(lane task.Lane, l config.Lane) *queue.WorkerConfig {
	return &queue.WorkerConfig{
		Lane:         lane,
		Concurrency:  l.Concurrency,
		Queue:        l.Queue,
		BatchSize:    l.BatchSize,
		PullInterval: l.PullInterval,
		LockTimeout:  l.LockTimeout,
		Backoff: queue.BackoffConfig{
			MaxRetries:          l.Backoff.MaxRetries,
			InitialInterval:     l.Backoff.InitialInterval,
			MaxInterval:         l.Backoff.MaxInterval,
			Multiplier:          l.Backoff.Multiplier,
			RandomizationFactor: l.Backoff.RandomizationFactor,
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger, shutdownTimeout time.Duration) error {
	db, err := openDB(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	dial, err := sshDialer(cfg.SSH)
	if err != nil {
		return err
	}
	pool := sshsession.NewPool(dial, cfg.SSH.MaxSessionsPerCluster)
	status := statusclient.New(statusclient.Config{BaseURL: cfg.Metadata.BaseURL, Timeout: cfg.Metadata.Timeout})

	pusher := sqlstore.NewPusher(db)
	puller := sqlstore.NewPuller(db)

	ctrl := &controller.Controller{
		Pool:       pool,
		Status:     status,
		Command:    pusher,
		Monitor:    pusher,
		BaseURL:    cfg.Metadata.BaseURL,
		Terminator: &controller.LoggingTerminator{Log: log.With("component", "terminator")},
		Log:        log.With("component", "controller"),
	}
	jobMon := &jobmonitor.Monitor{
		Pool:         pool,
		Status:       status,
		Command:      pusher,
		Monitor:      pusher,
		BaseURL:      cfg.Metadata.BaseURL,
		PollInterval: cfg.Poll.JobInterval,
		Log:          log.With("component", "jobmonitor"),
	}
	procMon := &procmon.Monitor{
		Pool:         pool,
		Status:       status,
		Command:      pusher,
		Monitor:      pusher,
		PollInterval: cfg.Poll.ProcessInterval,
		Log:          log.With("component", "procmon"),
	}

	commandRegistry := ctrl.Registry()
	monitorRegistry := queue.HandlerRegistry{}
	for k, h := range jobMon.Registry() {
		monitorRegistry[k] = h
	}
	for k, h := range procMon.Registry() {
		monitorRegistry[k] = h
	}

	commandWorker := queue.NewWorker(puller, commandRegistry, workerConfig(task.Command, cfg.Command), log.With("lane", "command"))
	monitorWorker := queue.NewWorker(puller, monitorRegistry, workerConfig(task.Monitor, cfg.Monitor), log.With("lane", "monitor"))

	if err := commandWorker.Start(ctx); err != nil {
		return fmt.Errorf("start command worker: %w", err)
	}
	if err := monitorWorker.Start(ctx); err != nil {
		return fmt.Errorf("start monitor worker: %w", err)
	}

	log.Info("cumulus-workerd started", "metadata", cfg.Metadata.BaseURL, "dsn", cfg.Database.DSN)
	<-ctx.Done()
	log.Info("stopping workers")

	var stopErr error
	if err := commandWorker.Stop(shutdownTimeout); err != nil {
		stopErr = err
	}
	if err := monitorWorker.Stop(shutdownTimeout); err != nil && stopErr == nil {
		stopErr = err
	}
	return stopErr
}
