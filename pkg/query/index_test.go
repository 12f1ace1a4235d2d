package query

import (
	"errors"
	"testing"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

func TestProductIndex(t *testing.T) {
	products := testProducts()
	dup := newTestProduct(2, "Beta again", "Music")
	products = append(products, dup)

	idx := NewProductIndex(products)
	if idx.Len() != 7 {
		t.Errorf("Len() = %d, want 7", idx.Len())
	}

	p, ok := idx.Get(2)
	if !ok || p.Title != "Beta" {
		t.Errorf("Get(2) = %+v, %v; want first record", p, ok)
	}
	if _, ok := idx.Get(99); ok {
		t.Error("Get(99) should miss")
	}
	if g := idx.Group(4); g != "Music" {
		t.Errorf("Group(4) = %q, want Music", g)
	}
	if g := idx.Group(99); g != "" {
		t.Errorf("Group(99) = %q, want empty", g)
	}
	if ids := idx.ByTitle("Beta again"); len(ids) != 0 {
		t.Errorf("duplicate record should not be indexed by title, got %v", ids)
	}
}

func TestResolveTitle(t *testing.T) {
	products := testProducts()

	id, err := ResolveTitle(products, "Alpha")
	if err != nil {
		t.Fatalf("ResolveTitle() error = %v", err)
	}
	if id != 1 {
		t.Errorf("ResolveTitle(Alpha) = %d, want lowest id 1", id)
	}

	_, err = ResolveTitle(products, "alpha")
	if !errors.Is(err, model.ErrProductNotFound) {
		t.Errorf("title match must be exact, got err = %v", err)
	}
}

func TestGraph(t *testing.T) {
	g := NewGraph(snapshotOf("g",
		[2]uint64{1, 3}, [2]uint64{1, 2}, [2]uint64{1, 2}, [2]uint64{3, 1},
	))

	if !equalIDs(g.Outgoing(1), []uint64{2, 3}) {
		t.Errorf("Outgoing(1) = %v, want [2 3]", g.Outgoing(1))
	}
	if !equalIDs(g.Incoming(1), []uint64{3}) {
		t.Errorf("Incoming(1) = %v, want [3]", g.Incoming(1))
	}
	if !equalIDs(g.Neighbors(1, DirectionBoth), []uint64{2, 3}) {
		t.Errorf("Neighbors(1, both) = %v, want [2 3]", g.Neighbors(1, DirectionBoth))
	}
	if g.EdgeCount() != 3 {
		t.Errorf("EdgeCount() = %d, want 3", g.EdgeCount())
	}
	if !g.HasNode(2) || g.HasNode(4) {
		t.Error("HasNode() reports wrong membership")
	}
	if g.Name() != "g" {
		t.Errorf("Name() = %q", g.Name())
	}

	empty := NewGraph(nil)
	if empty.EdgeCount() != 0 || len(empty.Outgoing(1)) != 0 {
		t.Error("graph of nil snapshot should be empty")
	}
}
