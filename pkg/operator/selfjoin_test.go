package operator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/qeval/pkg/plan"
	"github.com/matrixorigin/qeval/pkg/relation"
)

func TestSelfJoinEqualityFilter(t *testing.T) {
	// a=[1,2,3,4], b=[1,9,3,9] -> rows where a==b survive: rows 0 and 2.
	rel := relation.New(0, [][]uint64{{1, 2, 3, 4}, {1, 9, 3, 9}})
	scan := NewScan(rel, 0)

	a := plan.SelectInfo{Binding: 0, ColumnIndex: 0}
	b := plan.SelectInfo{Binding: 0, ColumnIndex: 1}

	sj := NewSelfJoin(scan, plan.PredicateInfo{Left: a, Right: b})
	require.True(t, sj.Require(a))

	ctx := newTestContext(t, 2)
	require.NoError(t, sj.Run(ctx))

	require.EqualValues(t, 2, sj.ResultSize())
	idx, ok := sj.Resolve(a)
	require.True(t, ok)
	require.Equal(t, []uint64{1, 3}, sj.GetResults()[idx])
}

func TestSelfJoinDeterministicColumnOrder(t *testing.T) {
	rel := relation.New(0, [][]uint64{{5, 5}, {1, 2}, {9, 9}})
	scan := NewScan(rel, 0)

	col0 := plan.SelectInfo{Binding: 0, ColumnIndex: 0}
	col1 := plan.SelectInfo{Binding: 0, ColumnIndex: 1}
	col2 := plan.SelectInfo{Binding: 0, ColumnIndex: 2}

	sj := NewSelfJoin(scan, plan.PredicateInfo{Left: col0, Right: col2})
	require.True(t, sj.Require(col2))
	require.True(t, sj.Require(col1))
	require.True(t, sj.Require(col0))

	ctx := newTestContext(t, 1)
	require.NoError(t, sj.Run(ctx))

	idx2, _ := sj.Resolve(col2)
	idx1, _ := sj.Resolve(col1)
	idx0, _ := sj.Resolve(col0)
	require.Equal(t, 0, idx2, "output column order follows registration order")
	require.Equal(t, 1, idx1)
	require.Equal(t, 2, idx0)
}

func TestSelfJoinNoMatches(t *testing.T) {
	rel := relation.New(0, [][]uint64{{1, 2}, {3, 4}})
	scan := NewScan(rel, 0)
	a := plan.SelectInfo{Binding: 0, ColumnIndex: 0}
	b := plan.SelectInfo{Binding: 0, ColumnIndex: 1}

	sj := NewSelfJoin(scan, plan.PredicateInfo{Left: a, Right: b})
	ctx := newTestContext(t, 2)
	require.NoError(t, sj.Run(ctx))
	require.EqualValues(t, 0, sj.ResultSize())
}
