package sql

import (
	"context"
	"time"

	"github.com/cumulus-hpc/controller/queue"
	"github.com/cumulus-hpc/controller/task"
	"github.com/uptrace/bun"
)

// Puller implements queue.Puller using a SQL backend.
//
// Puller performs atomic state transitions using UPDATE ... RETURNING
// semantics to ensure safe concurrent access across multiple workers.
//
// The implementation assumes:
//
//   - durable writes
//   - transactional guarantees provided by the underlying database
//   - correct indexing of status and scheduling columns
//
// Puller enforces visibility timeout semantics using the locked_until
// column.
type Puller struct {
	db *bun.DB
}

// NewPuller creates a new SQL-backed Puller.
//
// The provided *bun.DB must be properly configured and connected.
// Schema initialization must be completed before using Puller.
func NewPuller(db *bun.DB) *Puller {
	return &Puller{
		db: db,
	}
}

// Pull selects up to batch eligible tasks on the given lane and
// transitions them to Processing state atomically.
//
// A task is eligible if:
//
//   - lane = lane
//   - next_run_at <= now
//   - status = Pending
//     OR
//   - status = Processing AND locked_until < now
//
// Eligible tasks are transitioned to Processing,
// attempts are incremented,
// locked_until is set to now + lock,
// updated_at is refreshed.
//
// Pull returns the updated task snapshots.
//
// Pull relies on a single UPDATE ... WHERE id IN (subquery)
// statement with RETURNING to avoid race conditions between
// selection and state transition.
func (p *Puller) Pull(ctx context.Context, lane task.Lane, batch int, lock time.Duration) ([]*task.Task, error) {
	now := time.Now()
	lockUntil := now.Add(lock)
	subQuery := p.db.NewSelect().
		Model((*taskModel)(nil)).
		Column("id").
		Where("lane = ?", lane).
		Where("next_run_at <= ?", now).
		WhereGroup("AND", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("status = ?", task.Pending).
				WhereOr("status = ? AND locked_until < ?", task.Processing, now)
		}).
		Order("next_run_at ASC").
		Limit(batch)
	var tasks []*task.Task
	err := p.db.NewUpdate().
		Model((*taskModel)(nil)).
		Set("status = ?", task.Processing).
		Set("attempts = attempts + 1").
		Set("locked_until = ?", lockUntil).
		Set("updated_at = ?", now).
		Where("id IN (?)", subQuery).
		Returning("*").
		Scan(ctx, &tasks)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ExtendLock extends the visibility timeout of a Processing task.
//
// The task must currently be in Processing state.
// If no rows are affected, ErrLockLost is returned.
//
// ExtendLock updates locked_until and updated_at.
//
// This method does not guarantee exclusive ownership;
// it only ensures the row was still Processing at update time.
func (p *Puller) ExtendLock(ctx context.Context, t *task.Task, lock time.Duration) error {
	now := time.Now()
	newLock := now.Add(lock)
	res, err := p.db.NewUpdate().
		Model((*taskModel)(nil)).
		Set("locked_until = ?", newLock).
		Set("updated_at = ?", now).
		Where("id = ?", t.Id).
		Where("status = ?", task.Processing).
		Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return queue.ErrLockLost
	}
	t.UpdatedAt = now
	t.LockedUntil = &newLock
	t.Status = task.Processing
	return nil
}

// Complete transitions a Processing task to Done state.
//
// The task must currently be in Processing state.
// If the update affects no rows, ErrCompleteFailed is returned.
//
// Complete clears locked_until and updates updated_at.
func (p *Puller) Complete(ctx context.Context, t *task.Task) error {
	now := time.Now()
	res, err := p.db.NewUpdate().
		Model((*taskModel)(nil)).
		Set("status = ?", task.Done).
		Set("locked_until = NULL").
		Set("updated_at = ?", now).
		Where("id = ?", t.Id).
		Where("status = ?", task.Processing).
		Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return queue.ErrCompleteFailed
	}
	t.Status = task.Done
	t.LockedUntil = nil
	t.UpdatedAt = now
	return nil
}

// Return reschedules a Processing task back to Pending state.
//
// next_run_at is set to now + backoff.
// locked_until is cleared.
// updated_at is refreshed.
//
// If the update affects no rows, ErrTaskLost is returned.
//
// Return is typically used after handler failure when
// retry attempts remain.
func (p *Puller) Return(ctx context.Context, t *task.Task, backoff time.Duration) error {
	now := time.Now()
	nextRun := now.Add(backoff)
	res, err := p.db.NewUpdate().
		Model((*taskModel)(nil)).
		Set("status = ?", task.Pending).
		Set("next_run_at = ?", nextRun).
		Set("locked_until = NULL").
		Set("updated_at = ?", now).
		Where("id = ?", t.Id).
		Where("status = ?", task.Processing).
		Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return queue.ErrTaskLost
	}
	t.Status = task.Pending
	t.NextRunAt = nextRun
	t.LockedUntil = nil
	t.UpdatedAt = now
	return nil
}

// Kill transitions a task to Dead state.
//
// The task must be in Pending or Processing state.
// locked_until is cleared.
// updated_at is refreshed.
//
// If the update affects no rows, ErrTaskLost is returned.
//
// Kill is typically used when retry limits are exceeded.
func (p *Puller) Kill(ctx context.Context, t *task.Task) error {
	now := time.Now()
	res, err := p.db.NewUpdate().
		Model((*taskModel)(nil)).
		Set("status = ?", task.Dead).
		Set("locked_until = NULL").
		Set("updated_at = ?", now).
		Where("id = ?", t.Id).
		Where("status IN (?, ?)", task.Pending, task.Processing).
		Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return queue.ErrTaskLost
	}
	t.Status = task.Dead
	t.LockedUntil = nil
	t.UpdatedAt = now
	return nil
}
