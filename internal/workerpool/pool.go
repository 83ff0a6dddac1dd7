// Package workerpool fans a slice of tasks out over a fixed number of
// goroutines and gathers the results back in task order.
package workerpool

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the pool size used when none is configured.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// Map runs fn for every task with at most workers tasks in flight.
// results[i] and errs[i] belong to tasks[i] regardless of completion order.
// A failing task never stops the others; Map returns only once every task
// has finished.
func Map[T, R any](workers int, tasks []T, fn func(i int, task T) (R, error)) ([]R, []error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]R, len(tasks))
	errs := make([]error, len(tasks))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, task := range tasks {
		g.Go(func() error {
			results[i], errs[i] = fn(i, task)
			return nil
		})
	}
	_ = g.Wait()

	return results, errs
}

// FirstError returns the lowest-index non-nil error, or nil.
func FirstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
