package model

import (
	"testing"
)

func TestNewEdge(t *testing.T) {
	edge := NewEdge(1, 2)

	if edge.SourceID != 1 || edge.TargetID != 2 {
		t.Errorf("Unexpected edge %+v", edge)
	}

	rev := edge.Reverse()
	if rev.SourceID != 2 || rev.TargetID != 1 {
		t.Errorf("Unexpected reversed edge %+v", rev)
	}
}

func TestSnapshot(t *testing.T) {
	var nilSnapshot *Snapshot
	if nilSnapshot.Len() != 0 {
		t.Error("Nil snapshot should have no edges")
	}

	s := NewSnapshot(SnapshotJune)
	s.AddEdge(1, 2)
	s.AddEdge(1, 2)
	s.AddEdge(2, 1)

	if s.Len() != 3 {
		t.Errorf("Expected duplicates to be kept, got %d edges", s.Len())
	}
	if s.Name != "june" {
		t.Errorf("Unexpected snapshot name %q", s.Name)
	}
}

func TestPair(t *testing.T) {
	if NewPair(5, 3) != NewPair(3, 5) {
		t.Error("Pairs should be unordered")
	}

	p := NewPair(9, 4)
	if p.U != 4 || p.V != 9 {
		t.Errorf("Expected normalised pair, got %+v", p)
	}

	if !NewPair(1, 9).Less(NewPair(2, 3)) {
		t.Error("Expected ordering by U first")
	}
	if !NewPair(1, 2).Less(NewPair(1, 3)) {
		t.Error("Expected ordering by V on equal U")
	}
	if NewPair(1, 2).Less(NewPair(1, 2)) {
		t.Error("A pair is not less than itself")
	}
}
