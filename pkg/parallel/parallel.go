// Package parallel provides a bounded parallel map over an index range.
package parallel

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Mapper runs a function over the index range [0, n) and blocks until every
// index has completed or one of them failed.
type Mapper interface {
	Map(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error
}

// Pool is an errgroup-backed Mapper with a fixed worker limit.
type Pool struct {
	workers int
}

// NewPool returns a Pool running at most workers tasks concurrently.
// A non-positive workers value falls back to GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{workers: workers}
}

// Map fans fn out across the pool. The first error cancels the remaining
// tasks and is returned; callers are responsible for writing results into
// index-addressed slots so completion order never matters.
func (p *Pool) Map(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n < 0 {
		return fmt.Errorf("parallel map: negative task count %d", n)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}

	return g.Wait()
}
