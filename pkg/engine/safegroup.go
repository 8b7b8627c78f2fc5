// Package engine schedules the selected pipelines and collects their
// results in the order they were requested.
package engine

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// SafeGroup wraps errgroup.Group so a panic in one goroutine is turned
// into an error instead of crashing the process.
type SafeGroup struct {
	group *errgroup.Group
	ctx   context.Context
}

// NewSafeGroup creates a SafeGroup derived from ctx.
func NewSafeGroup(ctx context.Context) (*SafeGroup, context.Context) {
	group, groupCtx := errgroup.WithContext(ctx)
	return &SafeGroup{group: group, ctx: groupCtx}, groupCtx
}

// SetLimit bounds the number of concurrently running goroutines.
func (g *SafeGroup) SetLimit(n int) {
	g.group.SetLimit(n)
}

// Go runs fn on a new goroutine with panic recovery.
func (g *SafeGroup) Go(fn func() error) {
	g.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in goroutine: %v\n%s", r, debug.Stack())
			}
		}()
		return fn()
	})
}

// Wait blocks until all goroutines complete and returns the first error.
func (g *SafeGroup) Wait() error {
	return g.group.Wait()
}
