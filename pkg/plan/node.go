package plan

// NodeKind tags the five physical operator shapes a plan can contain.
type NodeKind uint8

const (
	NodeScan NodeKind = iota
	NodeFilterScan
	NodeJoin
	NodeSelfJoin
	NodeChecksum
)

// Node is an abstract plan-tree descriptor: the input to the executor,
// produced by a parser/plan-builder that lives outside this package. The
// executor (pkg/exec) turns a Node tree into an operator tree; it never
// mutates the Node tree itself.
type Node struct {
	Kind NodeKind

	// Scan / FilterScan
	RelationID uint32
	Binding    uint32
	Filters    []FilterInfo // FilterScan only

	// Join / SelfJoin
	Left      *Node
	Right     *Node // Join only
	Input     *Node // SelfJoin / Checksum only
	Predicate PredicateInfo

	// Checksum
	ColInfo []SelectInfo
}

// Scan builds a Scan node descriptor.
func Scan(relationID, binding uint32) *Node {
	return &Node{Kind: NodeScan, RelationID: relationID, Binding: binding}
}

// FilterScanNode builds a FilterScan node descriptor.
func FilterScanNode(relationID, binding uint32, filters []FilterInfo) *Node {
	return &Node{Kind: NodeFilterScan, RelationID: relationID, Binding: binding, Filters: filters}
}

// Join builds a Join node descriptor.
func Join(left, right *Node, pred PredicateInfo) *Node {
	return &Node{Kind: NodeJoin, Left: left, Right: right, Predicate: pred}
}

// SelfJoin builds a SelfJoin node descriptor.
func SelfJoin(input *Node, pred PredicateInfo) *Node {
	return &Node{Kind: NodeSelfJoin, Input: input, Predicate: pred}
}

// Checksum builds a Checksum node descriptor, the root of every plan.
func Checksum(input *Node, colInfo []SelectInfo) *Node {
	return &Node{Kind: NodeChecksum, Input: input, ColInfo: colInfo}
}
