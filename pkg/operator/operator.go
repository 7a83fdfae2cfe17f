// Package operator implements the physical operator tree: Scan,
// FilterScan, Join, SelfJoin, and Checksum, sharing the three-phase
// parallel algorithm (partitioned selection -> prefix-sum reduction ->
// partitioned materialization) via pkg/xpool, and the column-resolution
// protocol (require/resolve/get_results/result_size) via the Operator
// interface below.
package operator

import (
	"fmt"

	"github.com/matrixorigin/qeval/pkg/metric"
	"github.com/matrixorigin/qeval/pkg/plan"
	"github.com/matrixorigin/qeval/pkg/qerr"
	"github.com/matrixorigin/qeval/pkg/xpool"
)

// Context carries the per-query, immutable collaborators every operator's
// Run needs: the parallelism configuration, a shared worker-pool runner,
// and an optional metrics sink. A nil Metrics is valid; every metric.Sink
// method tolerates a nil receiver.
type Context struct {
	Config  xpool.Config
	Runner  *xpool.Runner
	Metrics *metric.Sink
}

// Operator is the contract every non-root node in the plan tree (Scan,
// FilterScan, Join, SelfJoin) satisfies. Checksum, the plan root, is
// deliberately not required to satisfy this interface: nothing in this
// engine ever resolves a column against a Checksum's output, since the
// plan is always a tree rooted at Checksum.
type Operator interface {
	// Require registers that a parent needs column info in this
	// operator's result, returning whether it can be supplied. Must be
	// idempotent and callable multiple times before Run.
	Require(info plan.SelectInfo) bool
	// Run executes exactly once, filling in this operator's results.
	// Children's Run is guaranteed to have completed before a parent
	// reads their results.
	Run(ctx *Context) error
	// Resolve maps a previously-required SelectInfo to this operator's
	// output column index. Valid only after the matching Require call
	// returned true.
	Resolve(info plan.SelectInfo) (int, bool)
	// GetResults returns borrowed references to the output columns, in
	// the order Resolve's indices address. Valid only after Run.
	GetResults() [][]uint64
	// ResultSize returns the number of output rows. Zero before Run.
	ResultSize() uint64
}

// allocColumn allocates a zero-valued uint64 column of length n,
// converting an allocation panic (this engine's only way to observe
// "out of memory" from a bare make()) into a qerr.ResourceExhaustion
// error carrying operator/phase/size diagnostic context. Every
// pre-sizing call site in this package — output buffers allocated ahead
// of partitioned materialization — goes through this helper rather than
// a bare make().
func allocColumn(op, phase string, n uint64) (col []uint64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = qerr.ResourceExhaustion(op, phase, n, fmt.Errorf("%v", r))
		}
	}()
	col = make([]uint64, n)
	return col, nil
}
