package plan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectInfoEquality(t *testing.T) {
	a := SelectInfo{RelationID: 1, Binding: 2, ColumnIndex: 3}
	b := SelectInfo{RelationID: 1, Binding: 2, ColumnIndex: 3}
	c := SelectInfo{RelationID: 9, Binding: 2, ColumnIndex: 3}
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)

	m := map[SelectInfo]int{a: 1}
	_, ok := m[b]
	require.True(t, ok, "SelectInfo must hash/compare by value for map-key use")
}

func TestFilterInfoApply(t *testing.T) {
	cases := []struct {
		name string
		f    FilterInfo
		v    uint64
		want bool
	}{
		{"equal-true", FilterInfo{Constant: 5, Comparison: Equal}, 5, true},
		{"equal-false", FilterInfo{Constant: 5, Comparison: Equal}, 6, false},
		{"greater-true", FilterInfo{Constant: 5, Comparison: Greater}, 6, true},
		{"greater-false", FilterInfo{Constant: 5, Comparison: Greater}, 5, false},
		{"less-true", FilterInfo{Constant: 5, Comparison: Less}, 4, true},
		{"less-false", FilterInfo{Constant: 5, Comparison: Less}, 5, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.f.Apply(tc.v))
		})
	}
}
