package queue_test

import (
	"context"
	"database/sql"
	"errors"

	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cumulus-hpc/controller/queue"
	qsql "github.com/cumulus-hpc/controller/queue/sql"
	"github.com/cumulus-hpc/controller/task"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", "file::memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1) // important for sqlite
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	ctx := context.Background()
	if err := qsql.InitDB(ctx, db); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestWorkerProcessesTask(t *testing.T) {
	db := newTestDB(t)

	pusher := qsql.NewPusher(db)
	puller := qsql.NewPuller(db)
	observer := qsql.NewObserver(db)

	logger := slog.Default()

	handlerCalled := make(chan struct{}, 1)

	registry := queue.HandlerRegistry{
		"noop": func(ctx context.Context, t *task.Task) error {
			handlerCalled <- struct{}{}
			return nil
		},
	}

	cfg := &queue.WorkerConfig{
		Lane:         task.Command,
		Concurrency:  1,
		Queue:        10,
		BatchSize:    1,
		PullInterval: 20 * time.Millisecond,
		LockTimeout:  200 * time.Millisecond,
	}

	worker := queue.NewWorker(puller, registry, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := worker.Start(ctx); err != nil {
		t.Fatal(err)
	}

	tsk := task.New(task.Command, "noop", nil)
	if err := pusher.Push(ctx, tsk, 0); err != nil {
		t.Fatal(err)
	}

	select {
	case <-handlerCalled:
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}

	time.Sleep(100 * time.Millisecond)

	got, err := observer.Get(ctx, tsk.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != task.Done {
		t.Fatalf("expected Done, got %v", got.Status)
	}

	if err := worker.Stop(time.Second); err != nil {
		t.Fatal(err)
	}
}

func TestWorkerRetry(t *testing.T) {
	db := newTestDB(t)

	pusher := qsql.NewPusher(db)
	puller := qsql.NewPuller(db)
	observer := qsql.NewObserver(db)

	logger := slog.Default()

	var calls atomic.Int32

	registry := queue.HandlerRegistry{
		"noop": func(ctx context.Context, t *task.Task) error {
			if calls.Add(1) < 2 {
				return errors.New("fail once")
			}
			return nil
		},
	}

	cfg := &queue.WorkerConfig{
		Lane:         task.Command,
		Concurrency:  1,
		Queue:        10,
		BatchSize:    1,
		PullInterval: 20 * time.Millisecond,
		LockTimeout:  200 * time.Millisecond,
		Backoff: queue.BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      1,
		},
	}

	worker := queue.NewWorker(puller, registry, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = worker.Start(ctx)

	tsk := task.New(task.Command, "noop", nil)
	_ = pusher.Push(ctx, tsk, 0)

	time.Sleep(300 * time.Millisecond)

	got, _ := observer.Get(ctx, tsk.Id)
	if got.Status != task.Done {
		t.Fatalf("expected Done after retry, got %v", got.Status)
	}

	_ = worker.Stop(time.Second)
}

func TestWorkerKillOnExhaustedRetries(t *testing.T) {
	db := newTestDB(t)

	pusher := qsql.NewPusher(db)
	puller := qsql.NewPuller(db)
	observer := qsql.NewObserver(db)

	logger := slog.Default()

	registry := queue.HandlerRegistry{
		"noop": func(ctx context.Context, t *task.Task) error {
			return errors.New("always fails")
		},
	}

	cfg := &queue.WorkerConfig{
		Lane:         task.Command,
		Concurrency:  1,
		Queue:        10,
		BatchSize:    1,
		PullInterval: 20 * time.Millisecond,
		LockTimeout:  200 * time.Millisecond,
		Backoff: queue.BackoffConfig{
			MaxRetries:      1,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     10 * time.Millisecond,
		},
	}

	worker := queue.NewWorker(puller, registry, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = worker.Start(ctx)

	tsk := task.New(task.Command, "noop", nil)
	_ = pusher.Push(ctx, tsk, 0)

	time.Sleep(300 * time.Millisecond)

	got, _ := observer.Get(ctx, tsk.Id)
	if got.Status != task.Dead {
		t.Fatalf("expected Dead, got %v", got.Status)
	}

	_ = worker.Stop(time.Second)
}
