// Package relation defines the read-only view of a preloaded, column-major
// table that the executor consumes: N columns of R uint64 values each,
// immutable for the duration of query execution. Loading relations from
// disk/mmap is left to callers — Relation is a plain in-memory holder
// that any loader can populate.
package relation

// Relation is an ordered collection of columns C0..C(N-1), each a
// contiguous slice of R uint64 values. Row i is (C0[i], ..., C(N-1)[i]).
type Relation struct {
	id      uint32
	columns [][]uint64
	size    uint64
}

// New builds a Relation from column-major data. All columns must have
// equal length; that length becomes Size(). id is the relation's catalog
// identifier, echoed into SelectInfo.RelationID for diagnostics only.
func New(id uint32, columns [][]uint64) *Relation {
	var size uint64
	if len(columns) > 0 {
		size = uint64(len(columns[0]))
	}
	return &Relation{id: id, columns: columns, size: size}
}

// ID returns the relation's catalog identifier.
func (r *Relation) ID() uint32 { return r.id }

// Size returns R, the row count.
func (r *Relation) Size() uint64 { return r.size }

// NumColumns returns N, the column count.
func (r *Relation) NumColumns() int { return len(r.columns) }

// Column returns a borrowed reference to column i's underlying storage.
// The returned slice must not be mutated; it is shared with every reader
// of this relation for the query's duration.
func (r *Relation) Column(i int) []uint64 { return r.columns[i] }

// Columns returns borrowed references to every column, in declaration
// order.
func (r *Relation) Columns() [][]uint64 { return r.columns }

// Catalog is the small set of preloaded relations a query plan may
// reference, keyed by relation id.
type Catalog struct {
	relations map[uint32]*Relation
}

// NewCatalog builds a Catalog from the given relations, keyed by their ID.
func NewCatalog(relations ...*Relation) *Catalog {
	c := &Catalog{relations: make(map[uint32]*Relation, len(relations))}
	for _, r := range relations {
		c.relations[r.ID()] = r
	}
	return c
}

// Lookup returns the relation registered under id, or nil if absent.
func (c *Catalog) Lookup(id uint32) *Relation {
	return c.relations[id]
}
