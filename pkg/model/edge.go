package model

// Edge is a directed "customers who bought this also bought" link
type Edge struct {
	SourceID uint64 `json:"src"`
	TargetID uint64 `json:"dst"`
}

// NewEdge creates a new Edge between source and target products
func NewEdge(sourceID, targetID uint64) Edge {
	return Edge{SourceID: sourceID, TargetID: targetID}
}

// Reverse returns the edge with its endpoints swapped
func (e Edge) Reverse() Edge {
	return Edge{SourceID: e.TargetID, TargetID: e.SourceID}
}

// Snapshot names, one per edge list of the co-purchase dataset
const (
	SnapshotEarlyMarch = "early_march" // amazon0302
	SnapshotLateMarch  = "late_march"  // amazon0312
	SnapshotMay        = "may"         // amazon0505
	SnapshotJune       = "june"        // amazon0601
)

// SnapshotNames lists the snapshots in chronological order
var SnapshotNames = []string{SnapshotEarlyMarch, SnapshotLateMarch, SnapshotMay, SnapshotJune}

// Snapshot is the co-purchase graph at one point in time.
// Edges are kept as loaded; duplicates are not removed.
type Snapshot struct {
	Name  string
	Edges []Edge
}

// NewSnapshot creates an empty snapshot
func NewSnapshot(name string) *Snapshot {
	return &Snapshot{Name: name, Edges: make([]Edge, 0)}
}

// AddEdge appends a directed edge
func (s *Snapshot) AddEdge(sourceID, targetID uint64) {
	s.Edges = append(s.Edges, NewEdge(sourceID, targetID))
}

// Len returns the number of directed edges
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Edges)
}

// Pair is an unordered product pair, normalised so that U < V
type Pair struct {
	U uint64 `json:"u"`
	V uint64 `json:"v"`
}

// NewPair normalises the two ids into a Pair
func NewPair(a, b uint64) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{U: a, V: b}
}

// Less orders pairs by U then V
func (p Pair) Less(other Pair) bool {
	if p.U != other.U {
		return p.U < other.U
	}
	return p.V < other.V
}
