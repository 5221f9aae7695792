// Package worker provides a generic fixed-size worker pool that returns
// results in input order, which the pipelines rely on: records may be
// classified in parallel because every record subtree is self-contained,
// but rows must come out in file order.
package worker

import (
	"context"
	"sync"
)

// ProcessFunc handles one input.
type ProcessFunc[T any, R any] func(ctx context.Context, input T) (R, error)

// Result pairs one input with its outcome.
type Result[T any, R any] struct {
	Input  T
	Output R
	Err    error
}

// Pool runs a ProcessFunc over inputs with bounded concurrency.
type Pool[T any, R any] struct {
	workers int
	process ProcessFunc[T, R]
}

// NewPool creates a pool with the given concurrency, minimum one.
func NewPool[T any, R any](workers int, fn ProcessFunc[T, R]) *Pool[T, R] {
	if workers < 1 {
		workers = 1
	}
	return &Pool[T, R]{workers: workers, process: fn}
}

// Execute processes all inputs and returns one Result per input, indexed
// identically to inputs. Honors context cancellation; inputs not picked
// up before cancellation keep their zero Result.
func (p *Pool[T, R]) Execute(ctx context.Context, inputs []T) []Result[T, R] {
	results := make([]Result[T, R], len(inputs))
	indexCh := make(chan int, len(inputs))

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case idx, ok := <-indexCh:
					if !ok {
						return
					}
					out, err := p.process(ctx, inputs[idx])
					results[idx] = Result[T, R]{Input: inputs[idx], Output: out, Err: err}
				}
			}
		}()
	}

	for i := range inputs {
		indexCh <- i
	}
	close(indexCh)

	wg.Wait()
	return results
}
