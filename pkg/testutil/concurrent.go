package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	"vcregistry/pkg/platform/sentinel"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes int32
	Errors    int32
	Conflicts int32
	NotFounds int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Conflicts + r.NotFounds
}

// RunConcurrent executes fn in parallel goroutines, released together, and
// buckets the results into success, conflict, not found, or other error.
// Errors wrapping sentinel.ErrAlreadyExists count as conflicts.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg                                  sync.WaitGroup
		successes, errs, conflicts, missing atomic.Int32
		start                               = make(chan struct{})
	)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyExists):
				conflicts.Add(1)
			case errors.Is(err, sentinel.ErrNotFound):
				missing.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Errors:    errs.Load(),
		Conflicts: conflicts.Load(),
		NotFounds: missing.Load(),
	}
}
