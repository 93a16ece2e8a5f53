package sql_test

import (
	"context"
	"testing"
	"time"

	qsql "github.com/cumulus-hpc/controller/queue/sql"
	"github.com/cumulus-hpc/controller/task"
)

func TestCleaner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	pusher := qsql.NewPusher(db)
	puller := qsql.NewPuller(db)
	cleaner := qsql.NewCleaner(db)

	tsk := task.New(task.Command, "noop", nil)
	if err := pusher.Push(ctx, tsk, 0); err != nil {
		t.Fatal(err)
	}

	tasks, _ := puller.Pull(ctx, task.Command, 1, time.Second)
	pulled := tasks[0]
	_ = puller.Complete(ctx, pulled)

	count, err := cleaner.Clean(ctx, task.Done, nil)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 deleted task, got %d", count)
	}
}
