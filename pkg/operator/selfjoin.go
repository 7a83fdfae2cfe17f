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
	"github.com/matrixorigin/qeval/pkg/xpool"
)

// SelfJoin filters one child's rows by an equality predicate between two
// of its own columns: left_col[i] == right_col[i].
type SelfJoin struct {
	input     Operator
	predicate plan.PredicateInfo

	requiredSet   map[plan.SelectInfo]struct{}
	requiredOrder []plan.SelectInfo // registration order — kept for deterministic output layout

	tmpResults []uint64Column
	colIndex   map[plan.SelectInfo]int
	resultSize uint64
}

type uint64Column = []uint64

// NewSelfJoin constructs a SelfJoin over input on the given equality
// predicate, both halves of which must resolve in input.
func NewSelfJoin(input Operator, pred plan.PredicateInfo) *SelfJoin {
	return &SelfJoin{
		input:       input,
		predicate:   pred,
		requiredSet: make(map[plan.SelectInfo]struct{}),
		colIndex:    make(map[plan.SelectInfo]int),
	}
}

func (s *SelfJoin) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "SelfJoin(%v = %v)", s.predicate.Left, s.predicate.Right)
	return buf.String()
}

// Require forwards to the child and records the output index in
// registration order — the set of required columns is otherwise
// unordered, and output column order must stay reproducible across
// runs of the same plan.
func (s *SelfJoin) Require(info plan.SelectInfo) bool {
	if _, ok := s.requiredSet[info]; ok {
		return true
	}
	if !s.input.Require(info) {
		return false
	}
	s.requiredSet[info] = struct{}{}
	s.requiredOrder = append(s.requiredOrder, info)
	return true
}

// Run executes the same three-phase pattern as FilterScan, with the
// selection predicate being left_col[i] == right_col[i].
func (s *SelfJoin) Run(ctx *Context) error {
	if !s.input.Require(s.predicate.Left) {
		return qerr.PlanConstruction("SelfJoin", "require", "predicate's left column is not resolvable in the child")
	}
	if !s.input.Require(s.predicate.Right) {
		return qerr.PlanConstruction("SelfJoin", "require", "predicate's right column is not resolvable in the child")
	}
	if err := s.input.Run(ctx); err != nil {
		return err
	}

	inputResults := s.input.GetResults()
	copyData := make([]uint64Column, 0, len(s.requiredOrder))
	for i, info := range s.requiredOrder {
		idx, ok := s.input.Resolve(info)
		if !ok {
			return qerr.PlanConstruction("SelfJoin", "resolve", "child failed to resolve a previously required column")
		}
		copyData = append(copyData, inputResults[idx])
		s.colIndex[info] = i
	}

	leftIdx, ok := s.input.Resolve(s.predicate.Left)
	if !ok {
		return qerr.PlanConstruction("SelfJoin", "resolve", "predicate's left column not resolvable")
	}
	rightIdx, ok := s.input.Resolve(s.predicate.Right)
	if !ok {
		return qerr.PlanConstruction("SelfJoin", "resolve", "predicate's right column not resolvable")
	}
	leftCol := inputResults[leftIdx]
	rightCol := inputResults[rightIdx]

	n := s.input.ResultSize()
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
			if leftCol[i] == rightCol[i] {
				bmp.Add(uint32(i - r.Lo))
			}
		}
		selected[w] = bmp
		return nil
	}); err != nil {
		return err
	}
	ctx.Metrics.ObservePhase("SelfJoin", metric.PhaseSelect, time.Since(selectStart))
	logutil.Debug("SelfJoin select done", zap.Int("workers", workers), zap.Uint64("rows", n))

	reduceStart := time.Now()
	offsets := make([]uint64, workers)
	var total uint64
	for w := 0; w < workers; w++ {
		offsets[w] = total
		total += uint64(selected[w].GetCardinality())
	}
	s.resultSize = total
	ctx.Metrics.ObservePhase("SelfJoin", metric.PhaseReduce, time.Since(reduceStart))

	numCols := len(copyData)
	s.tmpResults = make([]uint64Column, numCols)
	for c := 0; c < numCols; c++ {
		col, err := allocColumn("SelfJoin", "materialize", total)
		if err != nil {
			return err
		}
		s.tmpResults[c] = col
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
				s.tmpResults[c][off+i] = copyData[c][global]
			}
			i++
		}
		return nil
	}); err != nil {
		return err
	}
	ctx.Metrics.ObservePhase("SelfJoin", metric.PhaseMaterialize, time.Since(materializeStart))
	logutil.Debug("SelfJoin materialize done", zap.Uint64("result_size", total))
	return nil
}

// Resolve maps a previously required SelectInfo to its output position.
func (s *SelfJoin) Resolve(info plan.SelectInfo) (int, bool) {
	idx, ok := s.colIndex[info]
	return idx, ok
}

// GetResults returns the materialized output columns.
func (s *SelfJoin) GetResults() [][]uint64 { return s.tmpResults }

// ResultSize returns the number of surviving rows, or 0 before Run.
func (s *SelfJoin) ResultSize() uint64 { return s.resultSize }
