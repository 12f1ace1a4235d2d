package query

import (
	"sort"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// PairSet is a set of unordered product pairs
type PairSet map[model.Pair]struct{}

// Add inserts a pair
func (ps PairSet) Add(p model.Pair) {
	ps[p] = struct{}{}
}

// Contains reports whether the pair is in the set
func (ps PairSet) Contains(p model.Pair) bool {
	_, ok := ps[p]
	return ok
}

// Intersect returns the pairs present in both sets
func (ps PairSet) Intersect(other PairSet) PairSet {
	small, large := ps, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(PairSet)
	for p := range small {
		if large.Contains(p) {
			out.Add(p)
		}
	}
	return out
}

// Sorted returns the pairs ordered by (U, V)
func (ps PairSet) Sorted() []model.Pair {
	pairs := make([]model.Pair, 0, len(ps))
	for p := range ps {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Less(pairs[j]) })
	return pairs
}

// BidirectionalPairs returns the pairs {u, v} with both u->v and v->u in the
// snapshot. Self loops do not form a pair.
func BidirectionalPairs(snapshot *model.Snapshot) PairSet {
	pairs := make(PairSet)
	if snapshot.Len() == 0 {
		return pairs
	}

	directed := make(map[model.Edge]struct{}, len(snapshot.Edges))
	for _, e := range snapshot.Edges {
		directed[e] = struct{}{}
	}
	for e := range directed {
		if e.SourceID == e.TargetID {
			continue
		}
		if _, ok := directed[e.Reverse()]; ok {
			pairs.Add(model.NewPair(e.SourceID, e.TargetID))
		}
	}
	return pairs
}

// ConsistentBidirectionalPairs returns the pairs that are bidirectional in
// every snapshot, ordered by (U, V). No snapshots, or any empty snapshot,
// gives an empty result.
func ConsistentBidirectionalPairs(snapshots ...*model.Snapshot) []model.Pair {
	if len(snapshots) == 0 {
		return []model.Pair{}
	}

	var result PairSet
	for _, s := range snapshots {
		pairs := BidirectionalPairs(s)
		if result == nil {
			result = pairs
		} else {
			result = result.Intersect(pairs)
		}
		if len(result) == 0 {
			return []model.Pair{}
		}
	}
	return result.Sorted()
}
