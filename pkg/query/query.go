package query

import (
	"context"
	"strconv"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// Engine represents the query processing engine
type Engine struct {
	Executor  *Executor
	Optimizer *Optimizer
}

// NewEngine creates a query engine over products and the named snapshots
func NewEngine(products []model.Product, snapshots map[string]*model.Snapshot, logger model.Logger) *Engine {
	executor := NewExecutor(NewProductIndex(products), snapshots, logger)
	return &Engine{
		Executor:  executor,
		Optimizer: executor.Optimizer,
	}
}

// Execute parses and executes a query
func (e *Engine) Execute(ctx context.Context, queryStr string) (*Result, error) {
	query, err := Parse(queryStr)
	if err != nil {
		return nil, err
	}
	return e.Executor.Execute(ctx, query)
}

// RatingHistogram returns the rating shares of one product
func (e *Engine) RatingHistogram(ctx context.Context, productID uint64) (*Result, error) {
	query := &Query{
		Type: QueryTypeRatingHistogram,
		Parameters: map[string]string{
			ParamProductID: strconv.FormatUint(productID, 10),
		},
	}
	return e.Executor.Execute(ctx, query)
}

// ConsistentPairs returns the pairs linked both ways in all four snapshots
func (e *Engine) ConsistentPairs(ctx context.Context) (*Result, error) {
	return e.Executor.Execute(ctx, &Query{Type: QueryTypeConsistentPairs, Parameters: map[string]string{}})
}

// DivergentPath searches snapshot for the nearest product of another group.
// An empty snapshot name selects june, maxDepth <= 0 the default depth.
func (e *Engine) DivergentPath(ctx context.Context, startID uint64, maxDepth int, snapshot string) (*Result, error) {
	query := &Query{
		Type: QueryTypeDivergentPath,
		Parameters: map[string]string{
			ParamStartID:  strconv.FormatUint(startID, 10),
			ParamSnapshot: snapshot,
		},
	}
	if maxDepth > 0 {
		query.Parameters[ParamMaxDepth] = strconv.Itoa(maxDepth)
	}
	return e.Executor.Execute(ctx, query)
}

// DivergentPathByTitle is DivergentPath starting from the lowest id titled title
func (e *Engine) DivergentPathByTitle(ctx context.Context, title string, maxDepth int, snapshot string) (*Result, error) {
	query := &Query{
		Type: QueryTypeDivergentPath,
		Parameters: map[string]string{
			ParamStartTitle: title,
			ParamSnapshot:   snapshot,
		},
	}
	if maxDepth > 0 {
		query.Parameters[ParamMaxDepth] = strconv.Itoa(maxDepth)
	}
	return e.Executor.Execute(ctx, query)
}

// Product looks a product up by id
func (e *Engine) Product(ctx context.Context, productID uint64) (*Result, error) {
	query := &Query{
		Type: QueryTypeProduct,
		Parameters: map[string]string{
			ParamProductID: strconv.FormatUint(productID, 10),
		},
	}
	return e.Executor.Execute(ctx, query)
}

// FindNeighbors finds the products within maxDepth hops of productID. An
// empty algorithm walks breadth-first.
func (e *Engine) FindNeighbors(ctx context.Context, productID uint64, direction string, algorithm TraversalType, maxDepth int, snapshot string) (*Result, error) {
	query := &Query{
		Type: QueryTypeFindNeighbors,
		Parameters: map[string]string{
			ParamProductID: strconv.FormatUint(productID, 10),
			ParamSnapshot:  snapshot,
		},
	}
	if direction != "" {
		query.Parameters[ParamDirection] = direction
	}
	if algorithm != "" {
		query.Parameters[ParamAlgorithm] = string(algorithm)
	}
	if maxDepth > 0 {
		query.Parameters[ParamMaxDepth] = strconv.Itoa(maxDepth)
	}
	return e.Executor.Execute(ctx, query)
}
