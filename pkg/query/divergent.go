package query

import (
	"context"
	"sort"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// DefaultMaxDepth bounds the divergent category search when no depth is given
const DefaultMaxDepth = 3

// PathStep is one product on a co-purchase path
type PathStep struct {
	ID    uint64 `json:"id"`
	ASIN  string `json:"asin,omitempty"`
	Title string `json:"title"`
	Group string `json:"group"`
	Depth int    `json:"depth"`
}

// DivergentPath is the outcome of a first divergent category search.
// Steps runs from the start product to the first product of another group
// and is empty when Found is false.
type DivergentPath struct {
	StartID    uint64     `json:"start_id"`
	StartGroup string     `json:"start_group"`
	StartKnown bool       `json:"start_known"`
	MaxDepth   int        `json:"max_depth"`
	Found      bool       `json:"found"`
	Steps      []PathStep `json:"steps"`
}

// Target returns the last step of a found path
func (p *DivergentPath) Target() (PathStep, bool) {
	if p == nil || !p.Found || len(p.Steps) == 0 {
		return PathStep{}, false
	}
	return p.Steps[len(p.Steps)-1], true
}

// Length returns the number of edges on a found path
func (p *DivergentPath) Length() int {
	if p == nil || !p.Found {
		return 0
	}
	return len(p.Steps) - 1
}

// FirstDivergentCategoryPath searches outgoing edges breadth first from
// startID for the nearest product whose group is non-empty and differs from
// the start's group, within maxDepth edges (DefaultMaxDepth when <= 0).
//
// Only products with a metadata record are walked; edges to other ids are
// ignored. Within a level the lowest qualifying id wins, and each node's
// parent is the lowest id of the previous level that links to it, so results
// are reproducible. An unknown start product gives a result with StartKnown and
// Found both false. Only cancellation of ctx is reported as an error.
func FirstDivergentCategoryPath(ctx context.Context, products *ProductIndex, graph *Graph, startID uint64, maxDepth int) (*DivergentPath, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	result := &DivergentPath{StartID: startID, MaxDepth: maxDepth, Steps: []PathStep{}}
	start, ok := products.Get(startID)
	if !ok {
		return result, nil
	}
	result.StartKnown = true
	result.StartGroup = start.Group

	parent := make(map[uint64]uint64)
	visited := map[uint64]bool{startID: true}
	frontier := []uint64{startID}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// frontier is ascending, so the first parent to claim a node is the lowest
		next := make([]uint64, 0)
		for _, u := range frontier {
			for _, v := range graph.Outgoing(u) {
				if visited[v] {
					continue
				}
				visited[v] = true
				if _, known := products.Get(v); !known {
					continue
				}
				parent[v] = u
				next = append(next, v)
			}
		}
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })

		for _, v := range next {
			group := products.Group(v)
			if group == "" || group == start.Group {
				continue
			}
			result.Found = true
			result.Steps = buildSteps(products, parent, startID, v, depth)
			return result, nil
		}
		frontier = next
	}

	return result, nil
}

func buildSteps(products *ProductIndex, parent map[uint64]uint64, startID, targetID uint64, depth int) []PathStep {
	steps := make([]PathStep, depth+1)
	id := targetID
	for d := depth; d >= 0; d-- {
		p, _ := products.Get(id)
		steps[d] = newPathStep(id, p, d)
		if id == startID {
			break
		}
		id = parent[id]
	}
	return steps
}

// newPathStep describes one node; p is nil for ids without a metadata record
func newPathStep(id uint64, p *model.Product, depth int) PathStep {
	step := PathStep{ID: id, Depth: depth}
	if p != nil {
		step.ASIN = p.ASIN
		step.Title = p.Title
		step.Group = p.Group
	}
	return step
}
