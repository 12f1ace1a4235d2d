package query

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// Result represents a query result. Only the fields of the executed query
// type are set.
type Result struct {
	Type      QueryType       `json:"type"`
	Histogram []RatingShare   `json:"histogram,omitempty"`
	Pairs     []model.Pair    `json:"pairs,omitempty"`
	Path      *DivergentPath  `json:"path,omitempty"`
	Products  []model.Product `json:"products,omitempty"`
	Reviews   []model.Review  `json:"reviews,omitempty"`
	Steps     []PathStep      `json:"steps,omitempty"`
}

// Executor executes queries against the loaded products and snapshots
type Executor struct {
	Products  *ProductIndex
	Optimizer *Optimizer
	logger    model.Logger

	snapshots map[string]*model.Snapshot

	mu     sync.Mutex
	graphs map[string]*Graph

	pairsOnce sync.Once
	pairs     []model.Pair
	pairsErr  error
}

// NewExecutor creates a new query executor over products and the named
// snapshots
func NewExecutor(products *ProductIndex, snapshots map[string]*model.Snapshot, logger model.Logger) *Executor {
	if logger == nil {
		logger = model.DefaultLoggerInstance
	}
	if products == nil {
		products = NewProductIndex(nil)
	}
	return &Executor{
		Products:  products,
		Optimizer: NewOptimizer(),
		logger:    logger,
		snapshots: snapshots,
		graphs:    make(map[string]*Graph),
	}
}

// Graph returns the adjacency of the named snapshot, built on first use
func (e *Executor) Graph(name string) (*Graph, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if g, ok := e.graphs[name]; ok {
		return g, nil
	}
	snapshot, ok := e.snapshots[name]
	if !ok || snapshot == nil {
		return nil, model.ErrUnknownSnapshot{Name: name}
	}

	g := NewGraph(snapshot)
	e.graphs[name] = g
	e.logger.Debug("Built graph for snapshot %s: %d edges", name, g.EdgeCount())
	return g, nil
}

// ConsistentPairs returns the pairs linked both ways in every snapshot.
// The result is computed once and shared by later calls.
func (e *Executor) ConsistentPairs() ([]model.Pair, error) {
	e.pairsOnce.Do(func() {
		ordered := make([]*model.Snapshot, 0, len(model.SnapshotNames))
		for _, name := range model.SnapshotNames {
			s, ok := e.snapshots[name]
			if !ok || s == nil {
				e.pairsErr = model.ErrUnknownSnapshot{Name: name}
				return
			}
			ordered = append(ordered, s)
		}
		e.pairs = ConsistentBidirectionalPairs(ordered...)
		e.logger.Info("Found %d consistent bidirectional pairs", len(e.pairs))
	})
	return e.pairs, e.pairsErr
}

// Execute executes a query and returns the result
func (e *Executor) Execute(ctx context.Context, query *Query) (*Result, error) {
	// Create optimized query plan
	plan, err := e.Optimizer.Optimize(query)
	if err != nil {
		return nil, fmt.Errorf("optimization error: %w", err)
	}

	switch plan.Type {
	case QueryTypeRatingHistogram:
		return e.executeHistogram(plan)
	case QueryTypeConsistentPairs:
		return e.executeConsistentPairs(ctx)
	case QueryTypeDivergentPath:
		return e.executeDivergentPath(ctx, plan)
	case QueryTypeProduct:
		return e.executeProduct(plan)
	case QueryTypeFindNeighbors:
		return e.executeNeighbors(ctx, plan)
	default:
		return nil, fmt.Errorf("unsupported query type: %s", plan.Type)
	}
}

func (e *Executor) executeHistogram(query *Query) (*Result, error) {
	id, err := productIDParam(query.Parameters, ParamProductID)
	if err != nil {
		return nil, err
	}

	p, _ := e.Products.Get(id)
	return &Result{Type: query.Type, Histogram: HistogramOf(p)}, nil
}

func (e *Executor) executeConsistentPairs(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pairs, err := e.ConsistentPairs()
	if err != nil {
		return nil, err
	}
	return &Result{Type: QueryTypeConsistentPairs, Pairs: pairs}, nil
}

func (e *Executor) executeDivergentPath(ctx context.Context, query *Query) (*Result, error) {
	maxDepth, err := intParam(query.Parameters, ParamMaxDepth)
	if err != nil {
		return nil, err
	}
	graph, err := e.Graph(query.Parameters[ParamSnapshot])
	if err != nil {
		return nil, err
	}

	var startID uint64
	if title, ok := query.Parameters[ParamStartTitle]; ok {
		startID, err = e.Products.ResolveTitle(title)
		if errors.Is(err, model.ErrProductNotFound) {
			// Unknown titles answer like unknown ids
			return &Result{
				Type: query.Type,
				Path: &DivergentPath{MaxDepth: maxDepth, Steps: []PathStep{}},
			}, nil
		}
	} else {
		startID, err = productIDParam(query.Parameters, ParamStartID)
	}
	if err != nil {
		return nil, err
	}

	path, err := FirstDivergentCategoryPath(ctx, e.Products, graph, startID, maxDepth)
	if err != nil {
		return nil, err
	}
	return &Result{Type: query.Type, Path: path}, nil
}

func (e *Executor) executeProduct(query *Query) (*Result, error) {
	id, err := productIDParam(query.Parameters, ParamProductID)
	if err != nil {
		return nil, err
	}

	result := &Result{Type: query.Type, Products: []model.Product{}}
	if p, ok := e.Products.Get(id); ok {
		result.Products = append(result.Products, *p)
		result.Reviews = reviewsOf(p)
	}
	return result, nil
}

// reviewsOf returns the review lines of p that parse, in file order
func reviewsOf(p *model.Product) []model.Review {
	reviews := make([]model.Review, 0, len(p.Reviews))
	for _, line := range p.Reviews {
		if r, ok := model.ParseReview(line); ok {
			reviews = append(reviews, r)
		}
	}
	return reviews
}

// executeNeighbors returns every product reachable from productId within
// maxDepth hops, in the visiting order of the chosen algorithm, excluding the
// start
func (e *Executor) executeNeighbors(ctx context.Context, query *Query) (*Result, error) {
	id, err := productIDParam(query.Parameters, ParamProductID)
	if err != nil {
		return nil, err
	}
	maxDepth, err := intParam(query.Parameters, ParamMaxDepth)
	if err != nil {
		return nil, err
	}
	graph, err := e.Graph(query.Parameters[ParamSnapshot])
	if err != nil {
		return nil, err
	}

	traversal := NewTraversal(graph, e.Products)
	traversal.SetMaxDepth(maxDepth)
	traversal.SetType(TraversalType(query.Parameters[ParamAlgorithm]))

	steps := make([]PathStep, 0)
	err = traversal.Run(ctx, id, query.Parameters[ParamDirection], func(nodeID uint64, p *model.Product, depth int) (bool, error) {
		if depth > 0 {
			steps = append(steps, newPathStep(nodeID, p, depth))
		}
		return true, nil
	})
	if err != nil && !errors.Is(err, model.ErrProductNotFound) {
		return nil, err
	}
	return &Result{Type: query.Type, Steps: steps}, nil
}
