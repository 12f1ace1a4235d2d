package query

import (
	"context"
	"errors"
	"testing"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

func newTestEngine() *Engine {
	return NewEngine(testProducts(), testSnapshots(), model.NewNoOpLogger())
}

func TestEngine_Execute(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	res, err := engine.Execute(ctx, `DIVERGENT_PATH(startTitle: "Alpha", maxDepth: "3")`)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !equalIDs(pathIDs(res.Path), []uint64{1, 2, 4}) {
		t.Errorf("path = %v, want 1 -> 2 -> 4", pathIDs(res.Path))
	}

	if _, err := engine.Execute(ctx, "NOT A QUERY"); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("Execute() error = %v, want ErrInvalidQuery", err)
	}
}

func TestEngine_TypedMethods(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	res, err := engine.RatingHistogram(ctx, 1)
	if err != nil || len(res.Histogram) != 3 {
		t.Errorf("RatingHistogram() = %+v, %v", res, err)
	}

	res, err = engine.ConsistentPairs(ctx)
	if err != nil || len(res.Pairs) != 1 {
		t.Errorf("ConsistentPairs() = %+v, %v", res, err)
	}

	res, err = engine.DivergentPath(ctx, 4, 0, "")
	if err != nil || !equalIDs(pathIDs(res.Path), []uint64{4, 2}) {
		t.Errorf("DivergentPath() = %+v, %v", res, err)
	}

	res, err = engine.DivergentPathByTitle(ctx, "Alpha", 1, model.SnapshotJune)
	if err != nil || res.Path.Found {
		t.Errorf("DivergentPathByTitle() with depth 1 = %+v, %v; want not found", res, err)
	}

	res, err = engine.Product(ctx, 5)
	if err != nil || len(res.Products) != 1 || res.Products[0].Group != "DVD" {
		t.Errorf("Product() = %+v, %v", res, err)
	}

	res, err = engine.FindNeighbors(ctx, 2, DirectionIncoming, "", 1, "")
	if err != nil || len(res.Steps) != 2 {
		t.Errorf("FindNeighbors() = %+v, %v; want 1 and 4", res, err)
	}

	res, err = engine.FindNeighbors(ctx, 1, DirectionOutgoing, TraversalTypeDFS, 2, "")
	if err != nil || len(res.Steps) != 4 || res.Steps[1].ID != 4 {
		t.Errorf("FindNeighbors() depth first = %+v, %v; want 2 4 5 3", res, err)
	}
}
