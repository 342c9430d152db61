package testutil

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ConcurrentResult counts the outcomes of RunConcurrent.
type ConcurrentResult struct {
	Successes int32
	Errors    int32
	NotFounds int32
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.NotFounds
}

// RunConcurrent runs fn once per goroutine index and waits for all of them.
// Errors matching notFound are counted as NotFounds; pass nil to count every
// error as Errors.
func RunConcurrent(goroutines int, notFound error, fn func(idx int) error) *ConcurrentResult {
	var (
		wg                         sync.WaitGroup
		successes, errs, notFounds atomic.Int32
	)
	wg.Add(goroutines)
	for i := range goroutines {
		go func() {
			defer wg.Done()
			switch err := fn(i); {
			case err == nil:
				successes.Add(1)
			case notFound != nil && errors.Is(err, notFound):
				notFounds.Add(1)
			default:
				errs.Add(1)
			}
		}()
	}
	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Errors:    errs.Load(),
		NotFounds: notFounds.Load(),
	}
}
