package query

import (
	"context"
	"fmt"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// TraversalType represents different graph traversal algorithms
type TraversalType string

const (
	TraversalTypeBFS TraversalType = "BFS" // Breadth-First Search
	TraversalTypeDFS TraversalType = "DFS" // Depth-First Search
)

// TraversalVisitor is called once per reached node. product is nil when the
// node has no metadata record. Returning false stops the traversal.
type TraversalVisitor func(id uint64, product *model.Product, depth int) (bool, error)

// Traversal walks a snapshot graph from a start product
type Traversal struct {
	Graph    *Graph
	Products *ProductIndex
	MaxDepth int
	Type     TraversalType
}

// NewTraversal creates a breadth-first traversal limited to 10 hops
func NewTraversal(graph *Graph, products *ProductIndex) *Traversal {
	return &Traversal{
		Graph:    graph,
		Products: products,
		MaxDepth: 10,
		Type:     TraversalTypeBFS,
	}
}

// SetMaxDepth sets the maximum traversal depth
func (t *Traversal) SetMaxDepth(depth int) {
	if depth > 0 {
		t.MaxDepth = depth
	}
}

// SetType sets the traversal algorithm type
func (t *Traversal) SetType(traversalType TraversalType) {
	t.Type = traversalType
}

// Run visits the start node and every node reachable within MaxDepth hops.
// Neighbors are expanded in ascending id order.
func (t *Traversal) Run(ctx context.Context, startID uint64, direction string, visitor TraversalVisitor) error {
	if _, ok := t.Products.Get(startID); !ok && !t.Graph.HasNode(startID) {
		return fmt.Errorf("%w: %d", model.ErrProductNotFound, startID)
	}

	switch t.Type {
	case TraversalTypeBFS:
		return t.runBFS(ctx, startID, direction, visitor)
	case TraversalTypeDFS:
		_, err := t.runDFS(ctx, startID, direction, visitor, 0, make(map[uint64]bool))
		return err
	default:
		return fmt.Errorf("unsupported traversal type: %s", t.Type)
	}
}

func (t *Traversal) visit(id uint64, depth int, visitor TraversalVisitor) (bool, error) {
	p, _ := t.Products.Get(id)
	return visitor(id, p, depth)
}

func (t *Traversal) runBFS(ctx context.Context, startID uint64, direction string, visitor TraversalVisitor) error {
	type item struct {
		id    uint64
		depth int
	}

	visited := map[uint64]bool{startID: true}
	queue := []item{{id: startID}}

	cont, err := t.visit(startID, 0, visitor)
	if err != nil || !cont {
		return err
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		current := queue[0]
		queue = queue[1:]
		if current.depth >= t.MaxDepth {
			continue
		}

		for _, next := range t.Graph.Neighbors(current.id, direction) {
			if visited[next] {
				continue
			}
			visited[next] = true

			cont, err := t.visit(next, current.depth+1, visitor)
			if err != nil || !cont {
				return err
			}
			queue = append(queue, item{id: next, depth: current.depth + 1})
		}
	}
	return nil
}

// runDFS returns false once the visitor asked to stop
func (t *Traversal) runDFS(ctx context.Context, id uint64, direction string, visitor TraversalVisitor, depth int, visited map[uint64]bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	visited[id] = true
	cont, err := t.visit(id, depth, visitor)
	if err != nil || !cont {
		return false, err
	}
	if depth >= t.MaxDepth {
		return true, nil
	}

	for _, next := range t.Graph.Neighbors(id, direction) {
		if visited[next] {
			continue
		}
		cont, err := t.runDFS(ctx, next, direction, visitor, depth+1, visited)
		if err != nil || !cont {
			return false, err
		}
	}
	return true, nil
}
