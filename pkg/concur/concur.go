package concur

import (
	"context"
	"sync"
)

// Outcome is the result of processing a single item.
type Outcome[T any, R any] struct {
	Item   T
	Result R
	Err    error
}

// Run processes items with at most limit workers and returns one outcome per
// item, in input order. Items that were never started because ctx was canceled
// carry ctx.Err().
func Run[T any, R any](
	ctx context.Context,
	limit int,
	items []T,
	fn func(context.Context, T) (R, error),
) []Outcome[T, R] {
	if limit < 1 {
		limit = 1
	}

	outcomes := make([]Outcome[T, R], len(items))
	started := make([]bool, len(items))
	taskChan := make(chan int, limit)
	var wg sync.WaitGroup

	for i := 0; i < limit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range taskChan {
				// each index is owned by exactly one worker
				started[index] = true
				result, err := fn(ctx, items[index])
				outcomes[index] = Outcome[T, R]{Item: items[index], Result: result, Err: err}
			}
		}()
	}

send:
	for i := range items {
		select {
		case <-ctx.Done():
			break send
		case taskChan <- i:
		}
	}
	close(taskChan)
	wg.Wait()

	for i := range outcomes {
		if !started[i] {
			outcomes[i] = Outcome[T, R]{Item: items[i], Err: ctx.Err()}
		}
	}
	return outcomes
}

// Errors returns the non-nil errors of outcomes.
func Errors[T any, R any](outcomes []Outcome[T, R]) []error {
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}
