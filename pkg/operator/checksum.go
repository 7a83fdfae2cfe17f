package operator

import (
	"bytes"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/matrixorigin/qeval/pkg/logutil"
	"github.com/matrixorigin/qeval/pkg/metric"
	"github.com/matrixorigin/qeval/pkg/plan"
	"github.com/matrixorigin/qeval/pkg/qerr"
	"github.com/matrixorigin/qeval/pkg/xpool"
)

// Checksum is the plan root: it requires an ordered list of columns from
// its child, runs the child, and computes a modulo-2^64 sum per
// requested column. It is deliberately not an Operator — nothing in
// this engine ever resolves a column against a Checksum's output.
type Checksum struct {
	input   Operator
	colInfo []plan.SelectInfo

	sums       []uint64
	resultSize uint64
}

// NewChecksum constructs a Checksum over input summing colInfo, in order.
func NewChecksum(input Operator, colInfo []plan.SelectInfo) *Checksum {
	return &Checksum{input: input, colInfo: colInfo}
}

func (c *Checksum) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Checksum(%d cols)", len(c.colInfo))
	return buf.String()
}

// Run requires every column from the child, runs it, then sums each
// requested column in parallel across workers — sequential within a
// column — wrapping modulo 2^64. Sums are appended in col_info order.
func (c *Checksum) Run(ctx *Context) error {
	for _, info := range c.colInfo {
		if !c.input.Require(info) {
			return qerr.PlanConstruction("Checksum", "require", "column not resolvable in child")
		}
	}
	if err := c.input.Run(ctx); err != nil {
		return err
	}

	results := c.input.GetResults()
	c.resultSize = c.input.ResultSize()

	resolved := make([]int, len(c.colInfo))
	for i, info := range c.colInfo {
		idx, ok := c.input.Resolve(info)
		if !ok {
			return qerr.PlanConstruction("Checksum", "resolve", "column not resolvable in child")
		}
		resolved[i] = idx
	}

	c.sums = make([]uint64, len(c.colInfo))
	n := uint64(len(c.colInfo))
	workers := xpool.WorkerCountFor(n, ctx.Config)
	if workers == 1 {
		ctx.Metrics.RecordSingleWorker()
	}
	ranges := xpool.Partition(n, workers)

	sumStart := time.Now()
	err := ctx.Runner.Forall(workers, func(w int) error {
		r := ranges[w]
		for k := r.Lo; k < r.Hi; k++ {
			col := results[resolved[k]]
			var sum uint64
			for _, v := range col {
				sum += v // wraps modulo 2^64 per Go's unsigned arithmetic
			}
			c.sums[k] = sum
		}
		return nil
	})
	ctx.Metrics.ObservePhase("Checksum", metric.PhaseSum, time.Since(sumStart))
	logutil.Debug("Checksum sum done", zap.Int("workers", workers), zap.Uint64("columns", n))
	return err
}

// Sums returns the computed checksums, aligned with col_info order.
func (c *Checksum) Sums() []uint64 { return c.sums }

// ResultSize returns the child's result size.
func (c *Checksum) ResultSize() uint64 { return c.resultSize }
