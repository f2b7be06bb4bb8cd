// Package parallel fans index ranges out over a bounded set of goroutines.
package parallel

import (
	"runtime"
	"sync"

	"github.com/YuminosukeSato/irisforest/pkg/errors"
)

// Parallelize は items 個のインデックスを CPU コア数で分割し、各範囲 [start, end) に fn を並列実行する
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeN(items, 0, fn)
}

// ParallelizeN is Parallelize with an explicit worker bound.
// workers <= 0 means runtime.NumCPU().
func ParallelizeN(items, workers int, fn func(start, end int)) {
	var wg sync.WaitGroup
	for _, r := range chunks(items, workers) {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(r[0], r[1])
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) on the calling goroutine when
// items does not exceed threshold.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// ForEach calls fn once per index on at most workers goroutines.
// A panic inside fn is recovered into an errors.PanicError. The error of the
// lowest failing index is returned, annotated with op and the index, so the
// result does not depend on scheduling.
func ForEach(items, workers int, op string, fn func(i int) error) error {
	if items <= 0 {
		return nil
	}
	errs := make([]error, items)
	ParallelizeN(items, workers, func(start, end int) {
		for i := start; i < end; i++ {
			errs[i] = errors.SafeExecute(op, func() error { return fn(i) })
		}
	})
	for i, err := range errs {
		if err != nil {
			return errors.Wrapf(err, "%s[%d]", op, i)
		}
	}
	return nil
}

// chunks splits [0, items) into at most workers contiguous ranges.
func chunks(items, workers int) [][2]int {
	if items <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, items)

	size := (items + workers - 1) / workers
	out := make([][2]int, 0, workers)
	for start := 0; start < items; start += size {
		out = append(out, [2]int{start, min(start+size, items)})
	}
	return out
}
