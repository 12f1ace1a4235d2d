package query

import (
	"sort"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// ProductIndex looks products up by id and by exact title
type ProductIndex struct {
	products []model.Product
	byID     map[uint64]int
	byTitle  map[string][]int
}

// NewProductIndex indexes products. For a repeated id the first record wins.
func NewProductIndex(products []model.Product) *ProductIndex {
	idx := &ProductIndex{
		products: products,
		byID:     make(map[uint64]int, len(products)),
		byTitle:  make(map[string][]int),
	}
	for i := range products {
		p := &products[i]
		if _, dup := idx.byID[p.ID]; dup {
			continue
		}
		idx.byID[p.ID] = i
		if p.Fields.Has(model.FieldTitle) {
			idx.byTitle[p.Title] = append(idx.byTitle[p.Title], i)
		}
	}
	return idx
}

// Get returns the product with the given id
func (idx *ProductIndex) Get(id uint64) (*model.Product, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return nil, false
	}
	return &idx.products[i], true
}

// Group returns the group label of a product, empty when unknown
func (idx *ProductIndex) Group(id uint64) string {
	if p, ok := idx.Get(id); ok {
		return p.Group
	}
	return ""
}

// Len returns the number of indexed products
func (idx *ProductIndex) Len() int {
	return len(idx.byID)
}

// ByTitle returns the ids of the products with exactly this title, ascending
func (idx *ProductIndex) ByTitle(title string) []uint64 {
	positions := idx.byTitle[title]
	ids := make([]uint64, 0, len(positions))
	for _, i := range positions {
		ids = append(ids, idx.products[i].ID)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// ResolveTitle returns the lowest id among the products titled title
func ResolveTitle(products []model.Product, title string) (uint64, error) {
	return NewProductIndex(products).ResolveTitle(title)
}

// ResolveTitle returns the lowest id among the products titled title
func (idx *ProductIndex) ResolveTitle(title string) (uint64, error) {
	ids := idx.ByTitle(title)
	if len(ids) == 0 {
		return 0, model.ErrProductNotFound
	}
	return ids[0], nil
}
