package pool

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pool runs named tasks on a bounded number of goroutines and collects their
// results by name. Tasks never fail the pool: a task reports its failure in
// its result, so one task going wrong neither cancels nor delays the others.
type Pool[R any] struct {
	g       errgroup.Group
	mu      sync.Mutex
	results map[string]R
}

// New returns a pool running at most workers tasks at a time. Zero or less
// means no bound.
func New[R any](workers int) *Pool[R] {
	p := &Pool[R]{results: make(map[string]R)}
	if workers <= 0 {
		workers = -1
	}
	p.g.SetLimit(workers)
	return p
}

// Add schedules fn under name, blocking while the pool is at capacity. Names
// are expected to be unique; a later result replaces an earlier one.
func (p *Pool[R]) Add(ctx context.Context, name string, fn func(context.Context) R) {
	p.g.Go(func() error {
		r := fn(ctx)

		p.mu.Lock()
		p.results[name] = r
		p.mu.Unlock()

		return nil
	})
}

// Wait blocks until every added task has finished and returns their results.
func (p *Pool[R]) Wait() map[string]R {
	_ = p.g.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.results
}
