// Package plan defines the abstract, parser/optimizer-independent
// description of a query the executor consumes: SelectInfo, FilterInfo,
// PredicateInfo, and a tree of Node descriptors.
package plan

// SelectInfo identifies a logical column reference within a query as the
// triple (RelationID, Binding, ColumnIndex). Binding is a query-scoped
// alias distinguishing multiple references to the same relation within
// one plan; equality and hashing (via Go's built-in map key semantics,
// since SelectInfo is comparable) are defined over the full triple, but a
// Scan/FilterScan matches only Binding and ColumnIndex — RelationID is
// informational.
type SelectInfo struct {
	RelationID  uint32
	Binding     uint32
	ColumnIndex uint32
}

// Comparison enumerates the three predicates supported for pushed-down
// filters.
type Comparison uint8

const (
	Equal Comparison = iota
	Greater
	Less
)

// FilterInfo is a pushdown predicate applied row-wise to a base relation
// column: compare_col[i] <cmp> Constant, using unsigned comparison.
type FilterInfo struct {
	Target     SelectInfo
	Constant   uint64
	Comparison Comparison
}

// Apply evaluates the filter against a single value using unsigned
// integer comparison.
func (f FilterInfo) Apply(value uint64) bool {
	switch f.Comparison {
	case Equal:
		return value == f.Constant
	case Greater:
		return value > f.Constant
	case Less:
		return value < f.Constant
	default:
		return false
	}
}

// PredicateInfo is an equi-join or self-join predicate over two column
// references.
type PredicateInfo struct {
	Left  SelectInfo
	Right SelectInfo
}
