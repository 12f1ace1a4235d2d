package query

import (
	"fmt"
	"strconv"
	"strings"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// Optimizer normalises query parameters before execution
type Optimizer struct {
	DefaultMaxDepth int
	MaxDepthLimit   int
	DefaultSnapshot string
}

// NewOptimizer creates an optimizer with the standard defaults
func NewOptimizer() *Optimizer {
	return &Optimizer{
		DefaultMaxDepth: DefaultMaxDepth,
		MaxDepthLimit:   10,
		DefaultSnapshot: model.SnapshotJune,
	}
}

// Optimize returns a copy of query with defaults filled in and values checked
func (o *Optimizer) Optimize(query *Query) (*Query, error) {
	if query == nil {
		return nil, fmt.Errorf("%w: query is nil", ErrInvalidQuery)
	}
	if err := validateQueryParameters(query); err != nil {
		return nil, err
	}

	optimized := &Query{
		Type:       query.Type,
		Parameters: make(map[string]string, len(query.Parameters)),
	}
	for k, v := range query.Parameters {
		optimized.Parameters[k] = strings.TrimSpace(v)
	}

	switch query.Type {
	case QueryTypeDivergentPath:
		if err := o.optimizeDepth(optimized, o.DefaultMaxDepth); err != nil {
			return nil, err
		}
		o.optimizeSnapshot(optimized)
	case QueryTypeFindNeighbors:
		if _, ok := optimized.Parameters[ParamDirection]; !ok {
			optimized.Parameters[ParamDirection] = DirectionOutgoing
		}
		alg := strings.ToUpper(optimized.Parameters[ParamAlgorithm])
		if alg == "" {
			alg = string(TraversalTypeBFS)
		}
		optimized.Parameters[ParamAlgorithm] = alg
		if err := o.optimizeDepth(optimized, 1); err != nil {
			return nil, err
		}
		o.optimizeSnapshot(optimized)
	}

	return optimized, nil
}

func (o *Optimizer) optimizeDepth(query *Query, def int) error {
	raw, ok := query.Parameters[ParamMaxDepth]
	if !ok || raw == "" {
		query.Parameters[ParamMaxDepth] = strconv.Itoa(def)
		return nil
	}

	depth, err := strconv.Atoi(raw)
	if err != nil || depth <= 0 {
		return fmt.Errorf("%w: maxDepth must be a positive integer, got %q", ErrInvalidQuery, raw)
	}
	if o.MaxDepthLimit > 0 && depth > o.MaxDepthLimit {
		depth = o.MaxDepthLimit
	}
	query.Parameters[ParamMaxDepth] = strconv.Itoa(depth)
	return nil
}

func (o *Optimizer) optimizeSnapshot(query *Query) {
	if query.Parameters[ParamSnapshot] == "" {
		query.Parameters[ParamSnapshot] = o.DefaultSnapshot
	}
}
