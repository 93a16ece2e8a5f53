package sql

import (
	"context"
	"time"

	"github.com/cumulus-hpc/controller/task"
	"github.com/uptrace/bun"
)

// Pusher implements queue.Pusher using a SQL backend.
//
// Pusher inserts new tasks into storage in the Pending state.
// It does not perform any deduplication or idempotency checks.
// The caller is responsible for ensuring that task identifiers
// are unique if required.
type Pusher struct {
	db *bun.DB
}

// NewPusher creates a new SQL-backed Pusher.
//
// The provided *bun.DB must be properly configured and connected.
// Schema initialization must be completed before pushing tasks.
func NewPusher(db *bun.DB) *Pusher {
	return &Pusher{
		db: db,
	}
}

// Push inserts a new task into storage.
//
// The task is scheduled for execution after the specified delay.
// Internally, delay determines the initial NextRunAt timestamp.
//
// Push does not modify the provided task after insertion.
// If insertion fails, no task is created.
//
// Push respects the provided context for cancellation.
func (p *Pusher) Push(ctx context.Context, t *task.Task, delay time.Duration) error {
	model := fromNew(t, delay)
	_, err := p.db.NewInsert().
		Model(model).
		Exec(ctx)
	return err
}
