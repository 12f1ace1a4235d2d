package query

import (
	"sort"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// RatingShare is one row of a rating histogram
type RatingShare struct {
	Rating     int     `json:"rating"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// RatingHistogram returns the share of each review rating of product id,
// highest rating first. The result is empty when the product is unknown or
// none of its review lines carries a rating.
func RatingHistogram(products []model.Product, id uint64) []RatingShare {
	for i := range products {
		if products[i].ID == id {
			return HistogramOf(&products[i])
		}
	}
	return []RatingShare{}
}

// HistogramOf computes the rating histogram of one product
func HistogramOf(p *model.Product) []RatingShare {
	if p == nil {
		return []RatingShare{}
	}

	counts := make(map[int]int)
	total := 0
	for _, line := range p.Reviews {
		rating, ok := model.ReviewRating(line)
		if !ok {
			continue
		}
		counts[rating]++
		total++
	}

	shares := make([]RatingShare, 0, len(counts))
	for rating, count := range counts {
		shares = append(shares, RatingShare{
			Rating:     rating,
			Count:      count,
			Percentage: float64(count) / float64(total) * 100,
		})
	}
	sort.Slice(shares, func(i, j int) bool { return shares[i].Rating > shares[j].Rating })
	return shares
}
