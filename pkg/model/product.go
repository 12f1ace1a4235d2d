package model

// Field identifies one key of a product metadata block
type Field uint16

const (
	FieldID Field = 1 << iota
	FieldASIN
	FieldTitle
	FieldGroup
	FieldSalesRank
	FieldSimilar
	FieldCategories
	FieldReviews
)

var fieldNames = []struct {
	field Field
	name  string
}{
	{FieldID, "Id"},
	{FieldASIN, "ASIN"},
	{FieldTitle, "title"},
	{FieldGroup, "group"},
	{FieldSalesRank, "salesrank"},
	{FieldSimilar, "similar"},
	{FieldCategories, "categories"},
	{FieldReviews, "reviews"},
}

// String returns the key name of the field as it appears in the metadata file
func (f Field) String() string {
	for _, fn := range fieldNames {
		if fn.field == f {
			return fn.name
		}
	}
	return "unknown"
}

// FieldSet records which keys were present in a parsed block
type FieldSet uint16

// Has reports whether the field was present
func (s FieldSet) Has(f Field) bool {
	return s&FieldSet(f) != 0
}

// With returns the set with the field added
func (s FieldSet) With(f Field) FieldSet {
	return s | FieldSet(f)
}

// Missing returns the names of the fields absent from the set
func (s FieldSet) Missing() []string {
	var missing []string
	for _, fn := range fieldNames {
		if !s.Has(fn.field) {
			missing = append(missing, fn.name)
		}
	}
	return missing
}

// Complete reports whether every known field was present
func (s FieldSet) Complete() bool {
	return len(s.Missing()) == 0
}

// MaxDeclaredCount is the largest declared count kept; counts are stored as
// 32-bit integers
const MaxDeclaredCount = 1<<31 - 1

// UnrankedSalesRank is used when a product carries no sales rank
const UnrankedSalesRank int64 = -1

// Product is one parsed record of the product metadata file.
//
// The declared counts (SimilarCount, CategoriesCount, ReviewsTotal) are kept as
// read; the parsed sequences are what queries use.
type Product struct {
	ID                uint64   `json:"id"`
	ASIN              string   `json:"asin"`
	Title             string   `json:"title"`
	Group             string   `json:"group"`
	SalesRank         int64    `json:"salesrank"`
	SimilarCount      int      `json:"similar_count"`
	Similar           []string `json:"similar"`
	CategoriesCount   int      `json:"categories_count"`
	Categories        []string `json:"categories"`
	ReviewsTotal      int      `json:"reviews_total"`
	ReviewsDownloaded int      `json:"reviews_downloaded"`
	AvgRating         float64  `json:"reviews_avg_rating"`
	Reviews           []string `json:"reviews"`
	Discontinued      bool     `json:"discontinued,omitempty"`
	Fields            FieldSet `json:"-"`
}

// NewProduct creates a Product with the given ID and ASIN
func NewProduct(id uint64, asin string) *Product {
	return &Product{
		ID:        id,
		ASIN:      asin,
		SalesRank: UnrankedSalesRank,
		Fields:    FieldSet(0).With(FieldID).With(FieldASIN),
	}
}

// Ranked reports whether the product has a usable sales rank
func (p *Product) Ranked() bool {
	return p.Fields.Has(FieldSalesRank) && p.SalesRank >= 0
}

// SimilarCountMismatch reports whether the declared similar count disagrees
// with the parsed list
func (p *Product) SimilarCountMismatch() bool {
	return p.Fields.Has(FieldSimilar) && p.SimilarCount != len(p.Similar)
}

// CategoriesCountMismatch reports whether the declared categories count
// disagrees with the parsed list
func (p *Product) CategoriesCountMismatch() bool {
	return p.Fields.Has(FieldCategories) && p.CategoriesCount != len(p.Categories)
}
