package util

import (
	"context"
	"sync"
)

// Parallel calls fn for every input using at most workerLimit goroutines and
// returns the errors by input index. A failing input does not stop the
// others. Inputs not yet started when ctx is done get ctx.Err().
func Parallel[T any](ctx context.Context, inputs []T, workerLimit int, fn func(context.Context, T) error) []error {
	errs := make([]error, len(inputs))
	if len(inputs) == 0 {
		return errs
	}

	if workerLimit <= 0 {
		workerLimit = 1
	}
	if workerLimit > len(inputs) {
		workerLimit = len(inputs)
	}

	tasks := make(chan int)

	// workers
	wg := sync.WaitGroup{}
	for i := 0; i < workerLimit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				if err := ctx.Err(); err != nil {
					errs[idx] = err
					continue
				}
				errs[idx] = fn(ctx, inputs[idx])
			}
		}()
	}

	for idx := range inputs {
		tasks <- idx
	}
	close(tasks)

	wg.Wait()
	return errs
}
