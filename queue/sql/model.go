package sql

import (
	"time"

	"github.com/cumulus-hpc/controller/task"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type taskModel struct {
	bun.BaseModel `bun:"table:tasks"`
	Id            uuid.UUID `bun:"id,pk,type:uuid"`
	Kind          string    `bun:"kind,notnull"`
	Lane          task.Lane `bun:"lane,notnull"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	Status      task.Status `bun:"status,notnull,default:0"`
	Attempts    uint32      `bun:"attempts,notnull,default:0"`
	LockedUntil *time.Time  `bun:"locked_until,nullzero,default:null"`
	NextRunAt   time.Time   `bun:"next_run_at,notnull"`

	Payload []byte `bun:"payload,type:blob"`
}

func (tm *taskModel) toTask() *task.Task {
	return &task.Task{
		Id:          tm.Id,
		Kind:        tm.Kind,
		Lane:        tm.Lane,
		Payload:     tm.Payload,
		CreatedAt:   tm.CreatedAt,
		UpdatedAt:   tm.UpdatedAt,
		Status:      tm.Status,
		Attempts:    tm.Attempts,
		LockedUntil: tm.LockedUntil,
		NextRunAt:   tm.NextRunAt,
	}
}

func fromNew(t *task.Task, delay time.Duration) *taskModel {
	now := time.Now()
	return &taskModel{
		Id:          t.Id,
		Kind:        t.Kind,
		Lane:        t.Lane,
		Payload:     t.Payload,
		CreatedAt:   now,
		UpdatedAt:   now,
		Status:      task.Pending,
		LockedUntil: nil,
		NextRunAt:   now.Add(delay),
	}
}
