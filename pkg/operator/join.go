package operator

import (
	"bytes"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/matrixorigin/qeval/pkg/hashmap"
	"github.com/matrixorigin/qeval/pkg/logutil"
	"github.com/matrixorigin/qeval/pkg/metric"
	"github.com/matrixorigin/qeval/pkg/plan"
	"github.com/matrixorigin/qeval/pkg/qerr"
	"github.com/matrixorigin/qeval/pkg/xpool"
)

// Join implements a parallel hash equi-join: build a chaining multimap
// on the smaller child, probe with the larger child in parallel,
// materialize matched pairs into pre-sized output buffers.
type Join struct {
	left, right Operator
	predicate   plan.PredicateInfo
	label       string // for metrics/diagnostics only

	requestedSet   map[plan.SelectInfo]struct{}
	requestedLeft  []plan.SelectInfo
	requestedRight []plan.SelectInfo

	copyLeftData  [][]uint64
	copyRightData [][]uint64
	tmpResults    [][]uint64
	colIndex      map[plan.SelectInfo]int
	resultSize    uint64
}

// NewJoin constructs a Join over left and right children on the given
// equi-join predicate. label is used only for metrics attribution.
func NewJoin(left, right Operator, pred plan.PredicateInfo, label string) *Join {
	return &Join{
		left:         left,
		right:        right,
		predicate:    pred,
		label:        label,
		requestedSet: make(map[plan.SelectInfo]struct{}),
		colIndex:     make(map[plan.SelectInfo]int),
	}
}

func (j *Join) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Join(%s)", j.label)
	return buf.String()
}

// Require routes info to whichever child can supply it, recording which
// side satisfied the request so Run can reproduce the same partition
// after a possible build-side swap.
func (j *Join) Require(info plan.SelectInfo) bool {
	if _, ok := j.requestedSet[info]; ok {
		return true
	}
	switch {
	case j.left.Require(info):
		j.requestedLeft = append(j.requestedLeft, info)
	case j.right.Require(info):
		j.requestedRight = append(j.requestedRight, info)
	default:
		return false
	}
	j.requestedSet[info] = struct{}{}
	return true
}

// Run executes six phases: child execution with build-side choice,
// output column position assignment, sequential single-threaded build,
// parallel probe, prefix-sum reduction, and parallel materialization.
func (j *Join) Run(ctx *Context) error {
	if !j.left.Require(j.predicate.Left) {
		return qerr.PlanConstruction("Join", "require", "join predicate's left column is not resolvable in the left child")
	}
	if !j.right.Require(j.predicate.Right) {
		return qerr.PlanConstruction("Join", "require", "join predicate's right column is not resolvable in the right child")
	}
	if err := j.left.Run(ctx); err != nil {
		return err
	}
	if err := j.right.Run(ctx); err != nil {
		return err
	}

	// Phase 1: build-side choice. The smaller operand is always the
	// build side.
	if j.left.ResultSize() > j.right.ResultSize() {
		j.left, j.right = j.right, j.left
		j.predicate.Left, j.predicate.Right = j.predicate.Right, j.predicate.Left
		j.requestedLeft, j.requestedRight = j.requestedRight, j.requestedLeft
		ctx.Metrics.RecordBuildSideSwap()
	}

	leftResults := j.left.GetResults()
	rightResults := j.right.GetResults()

	// Phase 2: resolve output column positions — left-requested columns
	// first (registration order), then right-requested (registration
	// order).
	j.copyLeftData = make([][]uint64, 0, len(j.requestedLeft))
	j.copyRightData = make([][]uint64, 0, len(j.requestedRight))
	resCol := 0
	for _, info := range j.requestedLeft {
		idx, ok := j.left.Resolve(info)
		if !ok {
			return qerr.PlanConstruction("Join", "resolve", "left child failed to resolve a previously required column")
		}
		j.copyLeftData = append(j.copyLeftData, leftResults[idx])
		j.colIndex[info] = resCol
		resCol++
	}
	for _, info := range j.requestedRight {
		idx, ok := j.right.Resolve(info)
		if !ok {
			return qerr.PlanConstruction("Join", "resolve", "right child failed to resolve a previously required column")
		}
		j.copyRightData = append(j.copyRightData, rightResults[idx])
		j.colIndex[info] = resCol
		resCol++
	}

	leftKeyIdx, ok := j.left.Resolve(j.predicate.Left)
	if !ok {
		return qerr.PlanConstruction("Join", "resolve", "join key column not resolvable in build side")
	}
	rightKeyIdx, ok := j.right.Resolve(j.predicate.Right)
	if !ok {
		return qerr.PlanConstruction("Join", "resolve", "join key column not resolvable in probe side")
	}
	leftKeyColumn := leftResults[leftKeyIdx]
	rightKeyColumn := rightResults[rightKeyIdx]

	// Phase 3: build. Single-threaded, sequential, insertion order
	// preserved.
	buildStart := time.Now()
	buildSize := j.left.ResultSize()
	table := hashmap.New(buildSize, ctx.Config.HashReserveFactor)
	for i := uint64(0); i < buildSize; i++ {
		table.Insert(leftKeyColumn[i], i)
	}
	recordBuildCardinality(ctx.Metrics, j.label, leftKeyColumn, buildSize)
	ctx.Metrics.ObservePhase("Join", metric.PhaseBuild, time.Since(buildStart))
	logutil.Debug("Join build done", zap.String("label", j.label), zap.Uint64("build_size", buildSize))

	// Phase 4: probe, partitioned identically to FilterScan's rule.
	probeSize := j.right.ResultSize()
	workers := xpool.WorkerCountFor(probeSize, ctx.Config)
	if workers == 1 {
		ctx.Metrics.RecordSingleWorker()
	}
	ranges := xpool.Partition(probeSize, workers)

	probeStart := time.Now()
	threadLeftSelected := make([][]uint64, workers)
	threadRightSelected := make([][]uint64, workers)
	if err := ctx.Runner.Forall(workers, func(w int) error {
		r := ranges[w]
		var leftSel, rightSel []uint64
		for rid := r.Lo; rid < r.Hi; rid++ {
			for _, lid := range table.Lookup(rightKeyColumn[rid]) {
				leftSel = append(leftSel, lid)
				rightSel = append(rightSel, rid)
			}
		}
		threadLeftSelected[w] = leftSel
		threadRightSelected[w] = rightSel
		return nil
	}); err != nil {
		return err
	}
	ctx.Metrics.ObservePhase("Join", metric.PhaseProbe, time.Since(probeStart))
	logutil.Debug("Join probe done", zap.String("label", j.label), zap.Int("workers", workers))

	// Phase 5: reduction.
	reduceStart := time.Now()
	offsets := make([]uint64, workers)
	var total uint64
	for w := 0; w < workers; w++ {
		offsets[w] = total
		total += uint64(len(threadRightSelected[w]))
	}
	j.resultSize = total
	ctx.Metrics.ObservePhase("Join", metric.PhaseReduce, time.Since(reduceStart))

	// Phase 6: materialization, using per-thread offsets and per-thread
	// sizes throughout so each worker's writes land in a disjoint region
	// of the output buffer.
	numLeftCols := len(j.copyLeftData)
	numRightCols := len(j.copyRightData)
	j.tmpResults = make([][]uint64, numLeftCols+numRightCols)
	for c := range j.tmpResults {
		col, err := allocColumn("Join", "materialize", total)
		if err != nil {
			return err
		}
		j.tmpResults[c] = col
	}

	materializeStart := time.Now()
	if err := ctx.Runner.Forall(workers, func(w int) error {
		off := offsets[w]
		leftSel := threadLeftSelected[w]
		rightSel := threadRightSelected[w]
		for i, lid := range leftSel {
			for c := 0; c < numLeftCols; c++ {
				j.tmpResults[c][off+uint64(i)] = j.copyLeftData[c][lid]
			}
		}
		for i, rid := range rightSel {
			for c := 0; c < numRightCols; c++ {
				j.tmpResults[numLeftCols+c][off+uint64(i)] = j.copyRightData[c][rid]
			}
		}
		return nil
	}); err != nil {
		return err
	}
	ctx.Metrics.ObservePhase("Join", metric.PhaseMaterialize, time.Since(materializeStart))
	logutil.Debug("Join materialize done", zap.String("label", j.label), zap.Uint64("result_size", total))
	return nil
}

func recordBuildCardinality(sink *metric.Sink, label string, keyColumn []uint64, n uint64) {
	if sink == nil {
		return
	}
	est := metric.NewCardinalityEstimator()
	for i := uint64(0); i < n; i++ {
		est.Insert(keyColumn[i])
	}
	sink.RecordBuildCardinality(label, est.Estimate())
}

// Resolve maps a previously required SelectInfo to its output position.
func (j *Join) Resolve(info plan.SelectInfo) (int, bool) {
	idx, ok := j.colIndex[info]
	return idx, ok
}

// GetResults returns the materialized output columns: left-requested
// columns first, then right-requested.
func (j *Join) GetResults() [][]uint64 { return j.tmpResults }

// ResultSize returns the number of matched pairs, or 0 before Run.
func (j *Join) ResultSize() uint64 { return j.resultSize }
