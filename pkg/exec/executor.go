// Package exec is the executor driver: it turns an abstract plan.Node
// tree into an operator.Operator tree, walks it via require/run, and
// collects the root Checksum's results.
package exec

import (
	"fmt"

	"github.com/matrixorigin/qeval/pkg/logutil"
	"github.com/matrixorigin/qeval/pkg/metric"
	"github.com/matrixorigin/qeval/pkg/operator"
	"github.com/matrixorigin/qeval/pkg/plan"
	"github.com/matrixorigin/qeval/pkg/qerr"
	"github.com/matrixorigin/qeval/pkg/relation"
	"github.com/matrixorigin/qeval/pkg/xpool"
	"go.uber.org/zap"
)

// Executor builds and runs plans against a fixed catalog of preloaded
// relations, under a fixed parallelism configuration.
type Executor struct {
	catalog *relation.Catalog
	config  xpool.Config
}

// New constructs an Executor over catalog with the given engine config.
func New(catalog *relation.Catalog, cfg xpool.Config) *Executor {
	return &Executor{catalog: catalog, config: cfg}
}

// Run builds root (which must be a Checksum node) into an operator tree,
// executes it, and returns the checksums in col_info order.
func (e *Executor) Run(root *plan.Node) ([]uint64, error) {
	sums, _, err := e.RunWithMetrics(root)
	return sums, err
}

// RunWithMetrics is Run plus the query's metrics sink, for callers that
// want introspection: build-side-swap and single-worker behavior are
// only observable this way.
func (e *Executor) RunWithMetrics(root *plan.Node) ([]uint64, *metric.Sink, error) {
	if root.Kind != plan.NodeChecksum {
		return nil, nil, qerr.PlanConstruction("Executor", "build", "plan root must be a Checksum node")
	}
	input, err := e.build(root.Input)
	if err != nil {
		return nil, nil, err
	}

	runner, err := xpool.NewRunner(e.config.WorkerCount)
	if err != nil {
		return nil, nil, qerr.ResourceExhaustion("Executor", "init-pool", 0, err)
	}
	defer runner.Release()

	sink := metric.New()
	ctx := &operator.Context{Config: e.config, Runner: runner, Metrics: sink}

	checksum := operator.NewChecksum(input, root.ColInfo)
	logutil.Debug("running plan", zap.String("root", checksum.String()))
	if err := checksum.Run(ctx); err != nil {
		logutil.Error("query failed", zap.Error(err))
		return nil, nil, err
	}
	return checksum.Sums(), sink, nil
}

// build recursively turns a non-Checksum plan.Node into an
// operator.Operator, reporting unresolvable relations as
// plan-construction errors.
func (e *Executor) build(node *plan.Node) (operator.Operator, error) {
	if node == nil {
		return nil, qerr.PlanConstruction("Executor", "build", "nil plan node")
	}
	switch node.Kind {
	case plan.NodeScan:
		rel := e.catalog.Lookup(node.RelationID)
		if rel == nil {
			return nil, qerr.PlanConstruction("Scan", "build", fmt.Sprintf("relation %d not found in catalog", node.RelationID))
		}
		return operator.NewScan(rel, node.Binding), nil

	case plan.NodeFilterScan:
		rel := e.catalog.Lookup(node.RelationID)
		if rel == nil {
			return nil, qerr.PlanConstruction("FilterScan", "build", fmt.Sprintf("relation %d not found in catalog", node.RelationID))
		}
		return operator.NewFilterScan(rel, node.Binding, node.Filters)

	case plan.NodeJoin:
		left, err := e.build(node.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.build(node.Right)
		if err != nil {
			return nil, err
		}
		return operator.NewJoin(left, right, node.Predicate, fmt.Sprintf("b%d=b%d", node.Predicate.Left.Binding, node.Predicate.Right.Binding)), nil

	case plan.NodeSelfJoin:
		input, err := e.build(node.Input)
		if err != nil {
			return nil, err
		}
		return operator.NewSelfJoin(input, node.Predicate), nil

	default:
		return nil, qerr.PlanConstruction("Executor", "build", "unexpected node kind below the plan root")
	}
}
