package operator

import (
	"bytes"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/matrixorigin/qeval/pkg/logutil"
	"github.com/matrixorigin/qeval/pkg/metric"
	"github.com/matrixorigin/qeval/pkg/plan"
	"github.com/matrixorigin/qeval/pkg/qerr"
	"github.com/matrixorigin/qeval/pkg/relation"
	"github.com/matrixorigin/qeval/pkg/xpool"
)

// FilterScan wraps a base relation, a binding, and an ordered list of
// pushdown FilterInfo predicates whose targets all belong to that
// binding. Unlike Scan, its output rows are a subset of the input, so
// results live in owned tmp_results buffers rather than borrowed
// relation columns.
type FilterScan struct {
	relation *relation.Relation
	binding  uint32
	filters  []plan.FilterInfo

	inputData  [][]uint64 // borrowed base columns, parallel to tmpResults
	tmpResults [][]uint64
	colIndex   map[plan.SelectInfo]int
	resultSize uint64
}

// NewFilterScan constructs a FilterScan, rejecting up front any filter
// whose target binding doesn't match: a filter targeting a column
// outside the wrapping binding is a plan-construction error.
func NewFilterScan(rel *relation.Relation, binding uint32, filters []plan.FilterInfo) (*FilterScan, error) {
	for _, f := range filters {
		if f.Target.Binding != binding {
			return nil, qerr.PlanConstruction("FilterScan", "construct", "filter targets a column outside this binding")
		}
	}
	return &FilterScan{
		relation: rel,
		binding:  binding,
		filters:  filters,
		colIndex: make(map[plan.SelectInfo]int),
	}, nil
}

func (f *FilterScan) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "FilterScan(binding=%d, relation=%d, filters=%d)", f.binding, f.relation.ID(), len(f.filters))
	return buf.String()
}

// Require registers an output column the same way Scan does, but into
// tmp_results, since output rows are a subset of input rows.
func (f *FilterScan) Require(info plan.SelectInfo) bool {
	if info.Binding != f.binding {
		return false
	}
	if int(info.ColumnIndex) >= f.relation.NumColumns() {
		return false
	}
	if _, ok := f.colIndex[info]; ok {
		return true
	}
	f.inputData = append(f.inputData, f.relation.Column(int(info.ColumnIndex)))
	f.tmpResults = append(f.tmpResults, nil)
	f.colIndex[info] = len(f.tmpResults) - 1
	return true
}

// passes evaluates every filter against row i in declared order with
// short-circuit AND.
func (f *FilterScan) passes(i uint64) bool {
	for _, filt := range f.filters {
		col := f.relation.Column(int(filt.Target.ColumnIndex))
		if !filt.Apply(col[i]) {
			return false
		}
	}
	return true
}

// Run executes the three-phase pattern: partitioned selection into
// per-worker bitmaps of surviving local offsets,
// prefix-sum reduction to per-worker write offsets, then partitioned
// materialization into pre-sized output buffers. Bitmap iteration is
// ascending by construction, which is what gives the "output rows appear
// in ascending source-row order" invariant without a separate sort.
func (f *FilterScan) Run(ctx *Context) error {
	n := f.relation.Size()
	workers := xpool.WorkerCountFor(n, ctx.Config)
	if workers == 1 {
		ctx.Metrics.RecordSingleWorker()
	}
	ranges := xpool.Partition(n, workers)

	selectStart := time.Now()
	selected := make([]*roaring.Bitmap, workers)
	if err := ctx.Runner.Forall(workers, func(w int) error {
		r := ranges[w]
		bmp := roaring.New()
		for i := r.Lo; i < r.Hi; i++ {
			if f.passes(i) {
				bmp.Add(uint32(i - r.Lo))
			}
		}
		selected[w] = bmp
		return nil
	}); err != nil {
		return err
	}
	ctx.Metrics.ObservePhase("FilterScan", metric.PhaseSelect, time.Since(selectStart))
	logutil.Debug("FilterScan select done", zap.Int("workers", workers), zap.Uint64("rows", n))

	reduceStart := time.Now()
	offsets := make([]uint64, workers)
	var total uint64
	for w := 0; w < workers; w++ {
		offsets[w] = total
		total += uint64(selected[w].GetCardinality())
	}
	f.resultSize = total
	ctx.Metrics.ObservePhase("FilterScan", metric.PhaseReduce, time.Since(reduceStart))

	numCols := len(f.tmpResults)
	for c := 0; c < numCols; c++ {
		col, err := allocColumn("FilterScan", "materialize", total)
		if err != nil {
			return err
		}
		f.tmpResults[c] = col
	}

	materializeStart := time.Now()
	if err := ctx.Runner.Forall(workers, func(w int) error {
		r := ranges[w]
		off := offsets[w]
		it := selected[w].Iterator()
		var i uint64
		for it.HasNext() {
			global := r.Lo + uint64(it.Next())
			for c := 0; c < numCols; c++ {
				f.tmpResults[c][off+i] = f.inputData[c][global]
			}
			i++
		}
		return nil
	}); err != nil {
		return err
	}
	ctx.Metrics.ObservePhase("FilterScan", metric.PhaseMaterialize, time.Since(materializeStart))
	logutil.Debug("FilterScan materialize done", zap.Uint64("result_size", total))
	return nil
}

// Resolve maps a required SelectInfo to its tmp_results index.
func (f *FilterScan) Resolve(info plan.SelectInfo) (int, bool) {
	idx, ok := f.colIndex[info]
	return idx, ok
}

// GetResults returns the materialized output columns.
func (f *FilterScan) GetResults() [][]uint64 { return f.tmpResults }

// ResultSize returns the number of surviving rows, or 0 before Run.
func (f *FilterScan) ResultSize() uint64 { return f.resultSize }
