package operator

import (
	"bytes"
	"fmt"

	"github.com/matrixorigin/qeval/pkg/plan"
	"github.com/matrixorigin/qeval/pkg/relation"
)

// Scan wraps a base relation and a binding alias, exposing selected base
// columns with zero copying. Its "results" are borrowed references into
// the relation's own storage, indexed by a separate select_to_result_col_id
// map from the one FilterScan/Join/SelfJoin use for their owned
// tmp_results buffers.
type Scan struct {
	relation *relation.Relation
	binding  uint32

	resultColumns [][]uint64
	colIndex      map[plan.SelectInfo]int
	resultSize    uint64
	ran           bool
}

// NewScan constructs a Scan over rel under the given query-scoped binding.
func NewScan(rel *relation.Relation, binding uint32) *Scan {
	return &Scan{
		relation: rel,
		binding:  binding,
		colIndex: make(map[plan.SelectInfo]int),
	}
}

func (s *Scan) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Scan(binding=%d, relation=%d)", s.binding, s.relation.ID())
	return buf.String()
}

// Require accepts info when its binding matches this Scan's and its
// column index is in range, appending the relation's column pointer to
// the output list.
func (s *Scan) Require(info plan.SelectInfo) bool {
	if info.Binding != s.binding {
		return false
	}
	if int(info.ColumnIndex) >= s.relation.NumColumns() {
		return false
	}
	if _, ok := s.colIndex[info]; ok {
		return true
	}
	s.resultColumns = append(s.resultColumns, s.relation.Column(int(info.ColumnIndex)))
	s.colIndex[info] = len(s.resultColumns) - 1
	return true
}

// Run only sets result_size; there is nothing to copy.
func (s *Scan) Run(_ *Context) error {
	s.resultSize = s.relation.Size()
	s.ran = true
	return nil
}

// Resolve maps a required SelectInfo to its position in GetResults.
func (s *Scan) Resolve(info plan.SelectInfo) (int, bool) {
	idx, ok := s.colIndex[info]
	return idx, ok
}

// GetResults returns the borrowed base-column pointers in registration
// order.
func (s *Scan) GetResults() [][]uint64 { return s.resultColumns }

// ResultSize returns R, the base relation's row count, or 0 before Run.
func (s *Scan) ResultSize() uint64 { return s.resultSize }
