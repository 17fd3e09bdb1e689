package utils

import (
	"context"
	"fmt"
	"sync"
)

// BatchResult is the outcome of processing one item
type BatchResult[R any] struct {
	Value R
	Err   error
}

// ProcessInBatches runs fn over items in sequential batches of at most limit
// concurrent calls. Each batch is awaited fully before the next starts, so at
// most limit calls are ever in flight. Results keep the input order. A panic in
// fn is reported as that item's error. Batches not yet started when ctx is done
// are reported with ctx.Err().
func ProcessInBatches[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) (R, error)) []BatchResult[R] {
	if limit < 1 {
		limit = 1
	}
	results := make([]BatchResult[R], len(items))

	for start := 0; start < len(items); start += limit {
		end := min(start+limit, len(items))

		if err := ctx.Err(); err != nil {
			for i := start; i < len(items); i++ {
				results[i].Err = err
			}
			break
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer func() {
					if rec := recover(); rec != nil {
						results[i] = BatchResult[R]{Err: fmt.Errorf("panic processing item %d: %v", i, rec)}
					}
				}()
				v, err := fn(ctx, items[i])
				results[i] = BatchResult[R]{Value: v, Err: err}
			}(i)
		}
		wg.Wait()
	}

	return results
}
