package sshsession

import (
	"context"
	"sync"
)

// Dialer opens a new Session against target. The controller supplies
// one backed by Dial; tests substitute a fake.
type Dialer func(ctx context.Context, target string) (Session, error)

// Pool bounds the number of concurrent Sessions held open per target
// (a cluster head node address). It does not keep connections warm
// across calls and does not retry a failed Acquire; it exists purely
// to cap concurrency so a burst of ticks against the same cluster
// cannot exhaust its sshd MaxSessions.
type Pool struct {
	dial  Dialer
	limit int

	mu   sync.Mutex
	sems map[string]chan struct{}
}

// NewPool creates a Pool that dials via dial and allows at most limit
// concurrent sessions per target. limit <= 0 means unbounded.
func NewPool(dial Dialer, limit int) *Pool {
	return &Pool{
		dial:  dial,
		limit: limit,
		sems:  make(map[string]chan struct{}),
	}
}

func (p *Pool) semFor(target string) chan struct{} {
	if p.limit <= 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	sem, ok := p.sems[target]
	if !ok {
		sem = make(chan struct{}, p.limit)
		p.sems[target] = sem
	}
	return sem
}

// Acquire opens a Session to target, blocking until a slot is free or
// ctx is canceled. The returned release function must be called
// exactly once when the caller is done with the session.
func (p *Pool) Acquire(ctx context.Context, target string) (Session, func(), error) {
	sem := p.semFor(target)
	if sem != nil {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	session, err := p.dial(ctx, target)
	if err != nil {
		if sem != nil {
			<-sem
		}
		return nil, nil, err
	}
	release := func() {
		session.Close()
		if sem != nil {
			<-sem
		}
	}
	return session, release, nil
}
