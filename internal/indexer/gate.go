package indexer

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/catalogger/internal/vector"
)

// Gate allows at most one build per identity at a time. Callers that arrive while a build
// is running wait for it and share its result.
//
// The build runs on a context detached from any single caller. It is cancelled only when
// every waiting caller has given up, so one cancelled request cannot fail the others.
type Gate struct {
	group singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Do runs fn unless a call for identity is already in flight. fn receives the shared build
// context. shared reports whether the result came from another caller's build.
func (g *Gate) Do(ctx context.Context, identity string, fn func(ctx context.Context) (*vector.Matrix, error)) (m *vector.Matrix, shared bool, err error) {
	m, shared, err = g.wait(ctx, identity, fn)
	// A build abandoned by its earlier waiters fails with context.Canceled even though this
	// caller is still interested; start over once on a fresh build.
	if errors.Is(err, context.Canceled) && ctx.Err() == nil {
		m, shared, err = g.wait(ctx, identity, fn)
	}
	return m, shared, err
}

func (g *Gate) wait(ctx context.Context, identity string, fn func(ctx context.Context) (*vector.Matrix, error)) (*vector.Matrix, bool, error) {
	f := g.join(ctx, identity)
	ch := g.group.DoChan(identity, func() (any, error) {
		return fn(f.ctx)
	})
	select {
	case res := <-ch:
		g.leave(identity, f)
		if res.Err != nil {
			return nil, res.Shared, res.Err
		}
		return res.Val.(*vector.Matrix), res.Shared, nil
	case <-ctx.Done():
		g.leave(identity, f)
		return nil, false, ctx.Err()
	}
}

func (g *Gate) join(ctx context.Context, identity string) *flight {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.flights == nil {
		g.flights = make(map[string]*flight)
	}
	f, ok := g.flights[identity]
	if !ok {
		buildCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: buildCtx, cancel: cancel}
		g.flights[identity] = f
	}
	f.waiters++
	return f
}

func (g *Gate) leave(identity string, f *flight) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if g.flights[identity] == f {
		delete(g.flights, identity)
	}
}
