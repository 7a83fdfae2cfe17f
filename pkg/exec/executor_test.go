package exec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/qeval/pkg/plan"
	"github.com/matrixorigin/qeval/pkg/relation"
	"github.com/matrixorigin/qeval/pkg/xpool"
)

func testConfig() xpool.Config {
	return xpool.Config{WorkerCount: 4, SmallInputThresholdK: 1, HashReserveFactor: 2}
}

func TestExecutorSingleTableFilterChecksum(t *testing.T) {
	rel := relation.New(0, [][]uint64{{1, 2, 3, 4, 5}})
	catalog := relation.NewCatalog(rel)

	col := plan.SelectInfo{Binding: 0, ColumnIndex: 0}
	filter := plan.FilterInfo{Target: col, Constant: 2, Comparison: plan.Greater}
	root := plan.Checksum(
		plan.FilterScanNode(0, 0, []plan.FilterInfo{filter}),
		[]plan.SelectInfo{col},
	)

	sums, err := New(catalog, testConfig()).Run(root)
	require.NoError(t, err)
	require.Equal(t, []uint64{3 + 4 + 5}, sums)
}

func TestExecutorTwoTableEquiJoinChecksum(t *testing.T) {
	left := relation.New(0, [][]uint64{{1, 2, 2}, {100, 200, 300}})
	right := relation.New(1, [][]uint64{{2, 3}, {7, 9}})
	catalog := relation.NewCatalog(left, right)

	kL := plan.SelectInfo{RelationID: 0, Binding: 0, ColumnIndex: 0}
	xL := plan.SelectInfo{RelationID: 0, Binding: 0, ColumnIndex: 1}
	kR := plan.SelectInfo{RelationID: 1, Binding: 1, ColumnIndex: 0}
	yR := plan.SelectInfo{RelationID: 1, Binding: 1, ColumnIndex: 1}

	root := plan.Checksum(
		plan.Join(plan.Scan(0, 0), plan.Scan(1, 1), plan.PredicateInfo{Left: kL, Right: kR}),
		[]plan.SelectInfo{xL, yR},
	)

	sums, err := New(catalog, testConfig()).Run(root)
	require.NoError(t, err)
	require.Equal(t, []uint64{500, 14}, sums)
}

func TestExecutorJoinBuildSideSwapObservable(t *testing.T) {
	// 10,000-row skewed left side, tiny right side: build side must swap
	// to the right child.
	n := 10000
	leftKeys := make([]uint64, n)
	for i := range leftKeys {
		leftKeys[i] = uint64(i % 3)
	}
	left := relation.New(0, [][]uint64{leftKeys})
	right := relation.New(1, [][]uint64{{1}})
	catalog := relation.NewCatalog(left, right)

	kL := plan.SelectInfo{RelationID: 0, Binding: 0, ColumnIndex: 0}
	kR := plan.SelectInfo{RelationID: 1, Binding: 1, ColumnIndex: 0}

	root := plan.Checksum(
		plan.Join(plan.Scan(0, 0), plan.Scan(1, 1), plan.PredicateInfo{Left: kL, Right: kR}),
		[]plan.SelectInfo{kL},
	)

	sums, sink, err := New(catalog, testConfig()).RunWithMetrics(root)
	require.NoError(t, err)
	require.Equal(t, 1, sink.BuildSideSwaps())
	require.Len(t, sums, 1)
}

func TestExecutorSelfJoinEquality(t *testing.T) {
	rel := relation.New(0, [][]uint64{{1, 2, 3, 4}, {1, 9, 3, 9}})
	catalog := relation.NewCatalog(rel)

	a := plan.SelectInfo{RelationID: 0, Binding: 0, ColumnIndex: 0}
	b := plan.SelectInfo{RelationID: 0, Binding: 0, ColumnIndex: 1}

	root := plan.Checksum(
		plan.SelfJoin(plan.Scan(0, 0), plan.PredicateInfo{Left: a, Right: b}),
		[]plan.SelectInfo{a},
	)

	sums, err := New(catalog, testConfig()).Run(root)
	require.NoError(t, err)
	require.Equal(t, []uint64{1 + 3}, sums)
}

func TestExecutorEmptyResultChecksum(t *testing.T) {
	rel := relation.New(0, [][]uint64{{1, 2, 3}})
	catalog := relation.NewCatalog(rel)

	col := plan.SelectInfo{RelationID: 0, Binding: 0, ColumnIndex: 0}
	filter := plan.FilterInfo{Target: col, Constant: 100, Comparison: plan.Equal}
	root := plan.Checksum(
		plan.FilterScanNode(0, 0, []plan.FilterInfo{filter}),
		[]plan.SelectInfo{col},
	)

	sums, err := New(catalog, testConfig()).Run(root)
	require.NoError(t, err)
	require.Equal(t, []uint64{0}, sums)
}

func TestExecutorDuplicateKeysCrossProductDeterministic(t *testing.T) {
	left := relation.New(0, [][]uint64{{1, 1}, {10, 20}})
	right := relation.New(1, [][]uint64{{1, 1}, {100, 200}})
	catalog := relation.NewCatalog(left, right)

	kL := plan.SelectInfo{RelationID: 0, Binding: 0, ColumnIndex: 0}
	xL := plan.SelectInfo{RelationID: 0, Binding: 0, ColumnIndex: 1}
	kR := plan.SelectInfo{RelationID: 1, Binding: 1, ColumnIndex: 0}
	yR := plan.SelectInfo{RelationID: 1, Binding: 1, ColumnIndex: 1}

	root := plan.Checksum(
		plan.Join(plan.Scan(0, 0), plan.Scan(1, 1), plan.PredicateInfo{Left: kL, Right: kR}),
		[]plan.SelectInfo{xL, yR},
	)

	sums1, err := New(catalog, testConfig()).Run(root)
	require.NoError(t, err)
	sums2, err := New(catalog, testConfig()).Run(root)
	require.NoError(t, err)
	require.Equal(t, sums1, sums2, "identical plans against identical data must checksum identically")
	require.Equal(t, []uint64{2 * (10 + 20), 2 * (100 + 200)}, sums1)
}

func TestExecutorRejectsNonChecksumRoot(t *testing.T) {
	rel := relation.New(0, [][]uint64{{1, 2, 3}})
	catalog := relation.NewCatalog(rel)
	root := plan.Scan(0, 0)

	_, err := New(catalog, testConfig()).Run(root)
	require.Error(t, err)
}

func TestExecutorUnknownRelation(t *testing.T) {
	catalog := relation.NewCatalog()
	root := plan.Checksum(plan.Scan(42, 0), nil)

	_, err := New(catalog, testConfig()).Run(root)
	require.Error(t, err)
}
