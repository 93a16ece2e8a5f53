package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cumulus-hpc/controller/queue/internal"
	"github.com/cumulus-hpc/controller/task"
)

// Handler defines the user-provided function that processes a task
// pulled from the queue.
//
// The provided context is canceled when:
//
//   - the worker is shutting down
//   - the task lease is lost
//
// The handler must be idempotent. queue provides at-least-once delivery
// semantics, and a task may be executed more than once if a worker
// crashes or fails to complete it before the visibility timeout expires.
//
// If the handler returns nil, the task is marked as Done.
// If the handler returns a non-nil error, the task is either retried
// according to BackoffConfig or transitioned to Dead.
type Handler func(ctx context.Context, t *task.Task) error

// HandlerRegistry dispatches a pulled Task to the Handler registered
// under its Kind.
//
// A Worker is bound to a single HandlerRegistry and a single Lane;
// the controller wires one registry/worker pair per lane so that a
// handful of long-lived command handlers never compete with the
// recurring monitor polls for pool slots.
type HandlerRegistry map[string]Handler

func (r HandlerRegistry) dispatch(ctx context.Context, t *task.Task) error {
	h, ok := r[t.Kind]
	if !ok {
		return fmt.Errorf("no handler registered for kind %q", t.Kind)
	}
	return h(ctx, t)
}

type errChan chan error

// WorkerConfig defines runtime behavior of a Worker.
//
// Lane selects which lane of tasks this worker polls for.
//
// Concurrency specifies the number of concurrent task handlers.
//
// Queue specifies the internal buffering capacity between pulling
// tasks from storage and dispatching them to handlers.
//
// BatchSize defines the maximum number of tasks fetched in a single Pull.
//
// PullInterval defines how often the worker polls storage for new tasks.
//
// LockTimeout defines the visibility timeout (lease duration) assigned
// to each pulled task.
//
// Backoff defines the retry policy applied when a handler returns an error.
type WorkerConfig struct {
	Lane         task.Lane
	Concurrency  int
	Queue        int
	BatchSize    int
	PullInterval time.Duration
	LockTimeout  time.Duration
	Backoff      BackoffConfig
}

// Worker coordinates pulling, dispatching, retrying and completing tasks
// on a single lane.
//
// Worker implements an at-least-once processing model:
//
//  1. Periodically Pull tasks from storage on its configured lane.
//  2. Transition them to Processing with a visibility timeout.
//  3. Dispatch them to the registered Handler for their Kind.
//  4. Extend the visibility timeout while the handler runs.
//  5. On success, mark the task as Done.
//  6. On failure, reschedule or permanently fail the task
//     according to BackoffConfig.
//
// Worker does not guarantee exactly-once delivery.
// Handlers must be idempotent.
//
// Worker has a strict lifecycle:
//   - Start may only be called once.
//   - Stop gracefully shuts down pull and worker goroutines.
//   - Stop waits until all in-flight handlers finish or the timeout expires.
type Worker struct {
	lcBase
	puller    Puller
	pullTask  internal.TimerTask
	pool      *internal.WorkerPool[*task.Task]
	log       *slog.Logger
	registry  HandlerRegistry
	lane      task.Lane
	batchSize int
	interval  time.Duration
	lock      time.Duration
	halfLock  time.Duration
	backoff   backoffCounter
}

// NewWorker creates a new Worker instance.
//
// The worker is not started automatically. Call Start to begin processing.
//
// The provided Puller implementation defines storage semantics.
// The provided HandlerRegistry defines user processing logic, keyed
// by task.Kind.
func NewWorker(puller Puller, registry HandlerRegistry, config *WorkerConfig, log *slog.Logger) *Worker {
	return &Worker{
		puller:    puller,
		pool:      internal.NewWorkerPool[*task.Task](config.Concurrency, config.Queue, log),
		log:       log,
		registry:  registry,
		lane:      config.Lane,
		batchSize: config.BatchSize,
		interval:  config.PullInterval,
		lock:      config.LockTimeout,
		halfLock:  config.LockTimeout / 2,
		backoff:   backoffCounter{config.Backoff},
	}
}

func (w *Worker) pull(ctx context.Context) {
	tasks, err := w.puller.Pull(ctx, w.lane, w.batchSize, w.lock)
	if err != nil {
		w.log.Error("pull failed", "err", err)
		return
	}
	for _, entry := range tasks {
		if !w.pool.Push(entry) {
			w.log.Debug("task push interrupted via shutdown", "id", entry.Id)
			return // pool closed, stop handle any tasks, LockUntil fix possible pull-hold
		}
	}
}

func do(registry HandlerRegistry, ctx context.Context, t *task.Task) errChan {
	ret := make(errChan, 1)
	go func() {
		ret <- registry.dispatch(ctx, t)
	}()
	return ret
}

func (w *Worker) handleOrExtend(ctx context.Context, t *task.Task) error {
	wrapped, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := do(w.registry, wrapped, t)
	timer := time.NewTimer(w.halfLock)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			if err := w.puller.ExtendLock(ctx, t, w.lock); err != nil {
				cancel()
				return err
			}
			timer.Reset(w.halfLock)
		case err := <-errCh:
			return err
		}
	}
}

func (w *Worker) handle(ctx context.Context, t *task.Task) {
	err := w.handleOrExtend(ctx, t)
	if err == nil {
		if err := w.puller.Complete(ctx, t); err != nil {
			w.log.Error("cannot complete task", "id", t.Id, "err", err)
		}
		return
	}
	if errors.Is(err, ErrLockLost) {
		w.log.Warn("task lock lost", "id", t.Id, "err", err)
		return
	}
	backoff, ok := w.backoff.next(t.Attempts)
	if !ok {
		if err := w.puller.Kill(ctx, t); err != nil {
			w.log.Error("cannot kill task", "id", t.Id, "err", err)
		}
		return
	}
	if err := w.puller.Return(ctx, t, backoff); err != nil {
		w.log.Error("cannot return task", "id", t.Id, "err", err)
	}
}

// Start begins background pulling and processing of tasks.
//
// Start returns ErrDoubleStarted if the worker has already been started.
//
// The provided context controls cancellation of the worker. When ctx
// is canceled, pulling stops and in-flight handlers receive a canceled
// context.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.tryStart(); err != nil {
		return err
	}
	w.pool.Start(ctx, w.handle)
	w.pullTask.Start(ctx, w.pull, w.interval)
	return nil
}

func (w *Worker) doStop() internal.DoneChan {
	first := w.pullTask.Stop()
	second := w.pool.Stop()
	return internal.Combine(first, second)
}

// Stop initiates graceful shutdown of the worker.
//
// Stop performs the following steps:
//
//  1. Stops periodic pulling of new tasks.
//  2. Cancels the internal worker pool.
//  3. Waits for all in-flight handlers to complete.
//
// If shutdown does not complete within the specified timeout,
// ErrStopTimeout is returned. In this case, background goroutines
// may still be terminating.
//
// Stop returns ErrDoubleStopped if the worker is not running.
func (w *Worker) Stop(timeout time.Duration) error {
	return w.tryStop(timeout, w.doStop)
}
