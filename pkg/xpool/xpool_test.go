package xpool

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkerCountForSmallInputShortCircuit(t *testing.T) {
	cfg := Config{WorkerCount: 4, SmallInputThresholdK: 2, HashReserveFactor: 2}
	require.Equal(t, 1, WorkerCountFor(0, cfg))
	require.Equal(t, 1, WorkerCountFor(7, cfg)) // < 4*2
	require.Equal(t, 4, WorkerCountFor(8, cfg)) // == threshold
	require.Equal(t, 4, WorkerCountFor(1000, cfg))
}

func TestPartitionContiguousAndCovering(t *testing.T) {
	ranges := Partition(10, 3)
	require.Len(t, ranges, 3) // chunk size ceil(10/3)=4 -> chunks of 4,4,2
	var total uint64
	var prevHi uint64
	for _, r := range ranges {
		require.Equal(t, prevHi, r.Lo, "chunks must be contiguous")
		require.GreaterOrEqual(t, r.Hi, r.Lo)
		total += r.Len()
		prevHi = r.Hi
	}
	require.Equal(t, uint64(10), total)
	require.Equal(t, uint64(10), prevHi)
}

func TestPartitionAlwaysReturnsExactlyTRanges(t *testing.T) {
	// n=9 across 8 workers: chunk=ceil(9/8)=2, so only 5 chunks have any
	// rows and the rest must still be present as empty trailing ranges —
	// every operator indexes ranges[w] for w in [0, workers).
	ranges := Partition(9, 8)
	require.Len(t, ranges, 8)
	var total uint64
	var prevHi uint64
	for _, r := range ranges {
		require.Equal(t, prevHi, r.Lo, "chunks must be contiguous, including empty tails")
		total += r.Len()
		prevHi = r.Hi
	}
	require.Equal(t, uint64(9), total)
	require.Equal(t, ranges[6], Range{Lo: 9, Hi: 9})
	require.Equal(t, ranges[7], Range{Lo: 9, Hi: 9})
}

func TestPartitionZeroRowsStillReturnsTRanges(t *testing.T) {
	ranges := Partition(0, 4)
	require.Len(t, ranges, 4)
	for _, r := range ranges {
		require.Equal(t, Range{Lo: 0, Hi: 0}, r)
	}
}

func TestPartitionZeroRowsSingleWorker(t *testing.T) {
	require.Equal(t, []Range{{Lo: 0, Hi: 0}}, Partition(0, 1))
}

func TestPartitionSingleWorker(t *testing.T) {
	ranges := Partition(5, 1)
	require.Equal(t, []Range{{Lo: 0, Hi: 5}}, ranges)
}

func TestRunnerForallBarrier(t *testing.T) {
	r, err := NewRunner(4)
	require.NoError(t, err)
	defer r.Release()

	var counter int64
	err = r.Forall(4, func(worker int) error {
		atomic.AddInt64(&counter, 1)
		return nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 4, counter)
}

func TestRunnerForallPropagatesError(t *testing.T) {
	r, err := NewRunner(2)
	require.NoError(t, err)
	defer r.Release()

	sentinel := errFixture{}
	err = r.Forall(2, func(worker int) error {
		if worker == 1 {
			return sentinel
		}
		return nil
	})
	require.Error(t, err)
}

type errFixture struct{}

func (errFixture) Error() string { return "boom" }
