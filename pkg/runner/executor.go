package runner

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Executor runs CPU-bound work on its own goroutines, at most threads at a
// time, so I/O-bound tasks are not starved by encoding or compression.
type Executor struct {
	threads int
	sem     *semaphore.Weighted
}

// NewExecutor creates an Executor. threads <= 0 means runtime.NumCPU().
func NewExecutor(threads int) *Executor {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	return &Executor{
		threads: threads,
		sem:     semaphore.NewWeighted(int64(threads)),
	}
}

// Threads returns the executor's parallelism.
func (e *Executor) Threads() int { return e.threads }

// Do runs fn on the executor and waits for it. Waiting for a free slot
// honours ctx; fn itself always runs to completion once started.
func (e *Executor) Do(ctx context.Context, fn func() error) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer e.sem.Release(1)
		defer func() {
			if p := recover(); p != nil {
				done <- &panicError{value: p}
			}
		}()
		done <- fn()
	}()
	return <-done
}
