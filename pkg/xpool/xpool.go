// Package xpool implements the fork/join worker pool and the shared
// partitioning policy every data-producing operator (FilterScan, Join,
// SelfJoin, Checksum) uses: contiguous chunking, a small-input
// short-circuit, and a bulk-synchronous barrier between phases.
//
// An ants.Pool is sized to a worker count and driven through an explicit
// barrier; Forall exposes that barrier directly rather than hiding it
// behind an event queue, since a phase must not begin until every worker
// of the previous phase has finished.
package xpool

import (
	"github.com/panjf2000/ants/v2"
)

// Range is a worker's contiguous, half-open slice of the row range
// [0, N): [Lo, Hi).
type Range struct {
	Lo, Hi uint64
}

// Len reports the number of rows in the range.
func (r Range) Len() uint64 { return r.Hi - r.Lo }

// Config mirrors the engine's three execution tunables.
type Config struct {
	WorkerCount          int
	SmallInputThresholdK int
	HashReserveFactor    int
}

// WorkerCountFor applies the small-input short-circuit: if n is below
// WorkerCount*K, exactly one worker runs; otherwise WorkerCount workers
// run.
func WorkerCountFor(n uint64, cfg Config) int {
	if cfg.WorkerCount <= 0 {
		return 1
	}
	threshold := uint64(cfg.WorkerCount) * uint64(cfg.SmallInputThresholdK)
	if n < threshold {
		return 1
	}
	return cfg.WorkerCount
}

// Partition splits [0, n) into exactly t contiguous chunks of size
// ceil(n/t). Once the input is exhausted, remaining chunks are empty
// trailing ranges [n, n) rather than being omitted — callers index
// ranges[w] for every w in [0, t), so the length of the result must
// always equal t, including for n == 0.
func Partition(n uint64, t int) []Range {
	if t <= 0 {
		t = 1
	}
	chunk := (n + uint64(t) - 1) / uint64(t)
	ranges := make([]Range, t)
	lo := uint64(0)
	for i := 0; i < t; i++ {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		ranges[i] = Range{Lo: lo, Hi: hi}
		lo = hi
	}
	return ranges
}

// Runner is a reusable ants.Pool sized to the engine's configured worker
// count, driving the bulk-synchronous fork/join barrier used by every
// data-producing operator's run().
type Runner struct {
	pool *ants.Pool
}

// NewRunner allocates a pool with capacity for maxWorkers concurrent
// tasks. maxWorkers should be the engine's configured WorkerCount; a
// single Runner may be shared across operators in one query since ants
// pools tasks beyond capacity rather than rejecting them.
func NewRunner(maxWorkers int) (*Runner, error) {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	pool, err := ants.NewPool(maxWorkers, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	return &Runner{pool: pool}, nil
}

// Release frees the underlying pool's goroutines.
func (r *Runner) Release() {
	r.pool.Release()
}

// Forall runs fn(0), fn(1), ..., fn(workers-1) concurrently and blocks
// until every invocation returns, establishing the happens-before edge
// needed before the next phase begins. It returns the first non-nil
// error observed, if any; every worker still runs to completion
// regardless of other workers' errors, since worker output regions are
// disjoint and safe to finish writing.
func (r *Runner) Forall(workers int, fn func(worker int) error) error {
	if workers <= 1 {
		return fn(0)
	}
	errs := make([]error, workers)
	done := make(chan struct{}, workers)
	for w := 0; w < workers; w++ {
		w := w
		task := func() {
			defer func() { done <- struct{}{} }()
			errs[w] = fn(w)
		}
		if err := r.pool.Submit(task); err != nil {
			// Pool rejected the task (e.g. released); run inline so the
			// barrier count stays correct.
			task()
		}
	}
	for i := 0; i < workers; i++ {
		<-done
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
