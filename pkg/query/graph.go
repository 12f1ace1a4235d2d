package query

import (
	"sort"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// Graph is the adjacency of one snapshot. Neighbor lists are sorted
// ascending without duplicates.
type Graph struct {
	name     string
	outgoing map[uint64][]uint64
	incoming map[uint64][]uint64
	edges    int
}

// NewGraph builds the adjacency of a snapshot
func NewGraph(snapshot *model.Snapshot) *Graph {
	g := &Graph{
		outgoing: make(map[uint64][]uint64),
		incoming: make(map[uint64][]uint64),
	}
	if snapshot == nil {
		return g
	}
	g.name = snapshot.Name

	for _, e := range snapshot.Edges {
		g.outgoing[e.SourceID] = append(g.outgoing[e.SourceID], e.TargetID)
		g.incoming[e.TargetID] = append(g.incoming[e.TargetID], e.SourceID)
	}
	for id, list := range g.outgoing {
		g.outgoing[id] = sortUnique(list)
		g.edges += len(g.outgoing[id])
	}
	for id, list := range g.incoming {
		g.incoming[id] = sortUnique(list)
	}
	return g
}

func sortUnique(ids []uint64) []uint64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:0]
	for i, id := range ids {
		if i > 0 && id == ids[i-1] {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Name returns the snapshot name the graph was built from
func (g *Graph) Name() string {
	return g.name
}

// Outgoing returns the targets of id's outgoing edges
func (g *Graph) Outgoing(id uint64) []uint64 {
	return g.outgoing[id]
}

// Incoming returns the sources of id's incoming edges
func (g *Graph) Incoming(id uint64) []uint64 {
	return g.incoming[id]
}

// Neighbors returns the adjacent ids in the given direction, ascending
func (g *Graph) Neighbors(id uint64, direction string) []uint64 {
	switch direction {
	case DirectionOutgoing:
		return g.Outgoing(id)
	case DirectionIncoming:
		return g.Incoming(id)
	default:
		both := append(append([]uint64{}, g.Outgoing(id)...), g.Incoming(id)...)
		return sortUnique(both)
	}
}

// HasNode reports whether id takes part in any edge
func (g *Graph) HasNode(id uint64) bool {
	_, out := g.outgoing[id]
	_, in := g.incoming[id]
	return out || in
}

// EdgeCount returns the number of distinct directed edges
func (g *Graph) EdgeCount() int {
	return g.edges
}
