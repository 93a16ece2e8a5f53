package sql_test

import (
	"context"
	"testing"

	qsql "github.com/cumulus-hpc/controller/queue/sql"
	"github.com/cumulus-hpc/controller/task"
)

func TestPusherAndObserver(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	pusher := qsql.NewPusher(db)
	observer := qsql.NewObserver(db)

	tsk := task.New(task.Command, "submit_job", []byte("data"))

	if err := pusher.Push(ctx, tsk, 0); err != nil {
		t.Fatal(err)
	}

	got, err := observer.Get(ctx, tsk.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("task not found")
	}
	if got.Status != task.Pending {
		t.Fatalf("expected Pending, got %v", got.Status)
	}
}
