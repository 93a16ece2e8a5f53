package sshsession_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cumulus-hpc/controller/sshsession"
)

func TestPoolBoundsConcurrencyPerTarget(t *testing.T) {
	var open atomic.Int32
	var maxOpen atomic.Int32

	dial := func(ctx context.Context, target string) (sshsession.Session, error) {
		n := open.Add(1)
		for {
			cur := maxOpen.Load()
			if n <= cur || maxOpen.CompareAndSwap(cur, n) {
				break
			}
		}
		return &sshsession.Fake{
			CloseFunc: func() error {
				open.Add(-1)
				return nil
			},
		}, nil
	}

	pool := sshsession.NewPool(dial, 2)

	const workers = 5
	done := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		go func() {
			session, release, err := pool.Acquire(context.Background(), "head.example.com")
			if err != nil {
				t.Error(err)
				done <- struct{}{}
				return
			}
			time.Sleep(20 * time.Millisecond)
			_ = session
			release()
			done <- struct{}{}
		}()
	}
	for i := 0; i < workers; i++ {
		<-done
	}

	if maxOpen.Load() > 2 {
		t.Fatalf("pool allowed %d concurrent sessions, want <= 2", maxOpen.Load())
	}
}

func TestPoolAcquireCanceled(t *testing.T) {
	dial := func(ctx context.Context, target string) (sshsession.Session, error) {
		return &sshsession.Fake{}, nil
	}
	pool := sshsession.NewPool(dial, 1)

	_, release, err := pool.Acquire(context.Background(), "head.example.com")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := pool.Acquire(ctx, "head.example.com"); err == nil {
		t.Fatal("expected error from canceled Acquire while pool is saturated")
	}
}
