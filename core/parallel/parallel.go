package parallel

import (
	"runtime"
	"sync"

	"github.com/YuminosukeSato/biascorrect/pkg/errors"
)

// Parallelize divides items into contiguous ranges, one per CPU core,
// and runs fn on each range (start, end) concurrently.
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeN(items, runtime.NumCPU(), fn)
}

// ParallelizeN is Parallelize with an explicit upper bound on workers.
// A panic in a worker is re-raised on the calling goroutine as a
// *errors.PanicError once every worker has returned, so a deferred
// errors.Recover in the caller still sees it.
func ParallelizeN(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	if workers > items {
		workers = items
	}

	chunkSize := (items + workers - 1) / workers

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		panicErr error
	)
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			err := errors.SafeExecute("parallel.worker", func() error {
				fn(s, e)
				return nil
			})
			if err != nil {
				mu.Lock()
				if panicErr == nil {
					panicErr = err
				}
				mu.Unlock()
			}
		}(start, end)
	}
	wg.Wait()
	if panicErr != nil {
		panic(panicErr)
	}
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items does not exceed threshold, and in parallel otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, fn)
}

// ForEach calls fn(i) for every i in [0, items), in parallel above threshold.
// fn must only write to state owned by index i.
func ForEach(items, threshold int, fn func(i int)) {
	ParallelizeWithThreshold(items, threshold, func(start, end int) {
		for i := start; i < end; i++ {
			fn(i)
		}
	})
}
