package query

import (
	"fmt"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

func newTestProduct(id uint64, title, group string, ratings ...int) model.Product {
	p := model.NewProduct(id, fmt.Sprintf("A%09d", id))
	p.Title = title
	p.Fields = p.Fields.With(model.FieldTitle)
	if group != "" {
		p.Group = group
		p.Fields = p.Fields.With(model.FieldGroup)
	}
	if len(ratings) > 0 {
		p.Fields = p.Fields.With(model.FieldReviews)
		p.ReviewsTotal = len(ratings)
		p.ReviewsDownloaded = len(ratings)
		for i, r := range ratings {
			p.Reviews = append(p.Reviews,
				fmt.Sprintf("2000-7-%d  cutomer: C%d  rating: %d  votes:  1  helpful:   1", i+1, i, r))
		}
	}
	return *p
}

// testProducts:
//
//	1 Book "Alpha"  reviews 5,5,5,4,4,3
//	2 Book "Beta"
//	3 Book "Gamma"
//	4 Music "Delta"
//	5 DVD "Echo"
//	6 Book "Alpha"
//	7 no group "Foxtrot"
func testProducts() []model.Product {
	return []model.Product{
		newTestProduct(1, "Alpha", "Book", 5, 5, 5, 4, 4, 3),
		newTestProduct(2, "Beta", "Book"),
		newTestProduct(3, "Gamma", "Book"),
		newTestProduct(4, "Delta", "Music"),
		newTestProduct(5, "Echo", "DVD"),
		newTestProduct(6, "Alpha", "Book"),
		newTestProduct(7, "Foxtrot", ""),
	}
}

func snapshotOf(name string, edges ...[2]uint64) *model.Snapshot {
	s := model.NewSnapshot(name)
	for _, e := range edges {
		s.AddEdge(e[0], e[1])
	}
	return s
}

// testSnapshots links 1<->2 in every snapshot and 2<->4 in all but may.
// june is the traversal graph:
//
//	1 -> 2, 3    2 -> 1, 4, 5    3 -> 5    4 -> 2    7 -> 1
func testSnapshots() map[string]*model.Snapshot {
	return map[string]*model.Snapshot{
		model.SnapshotEarlyMarch: snapshotOf(model.SnapshotEarlyMarch,
			[2]uint64{1, 2}, [2]uint64{2, 1}, [2]uint64{2, 4}, [2]uint64{4, 2}, [2]uint64{3, 3}),
		model.SnapshotLateMarch: snapshotOf(model.SnapshotLateMarch,
			[2]uint64{1, 2}, [2]uint64{2, 1}, [2]uint64{2, 4}, [2]uint64{4, 2}),
		model.SnapshotMay: snapshotOf(model.SnapshotMay,
			[2]uint64{2, 1}, [2]uint64{1, 2}, [2]uint64{2, 4}),
		model.SnapshotJune: snapshotOf(model.SnapshotJune,
			[2]uint64{1, 3}, [2]uint64{1, 2}, [2]uint64{2, 1}, [2]uint64{2, 4}, [2]uint64{2, 5},
			[2]uint64{3, 5}, [2]uint64{4, 2}, [2]uint64{7, 1}),
	}
}

func testIndex() *ProductIndex {
	return NewProductIndex(testProducts())
}

func testGraph() *Graph {
	return NewGraph(testSnapshots()[model.SnapshotJune])
}
