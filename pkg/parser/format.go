package parser

import (
	"fmt"
	"strconv"
	"strings"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// FormatBlock renders a product in the layout of the metadata file.
// Only fields recorded as present are written.
func FormatBlock(p model.Product) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Id:   %d\n", p.ID)
	if p.Fields.Has(model.FieldASIN) {
		fmt.Fprintf(&sb, "ASIN: %s\n", p.ASIN)
	}
	if p.Discontinued {
		sb.WriteString("  discontinued product\n")
	}
	if p.Fields.Has(model.FieldTitle) {
		fmt.Fprintf(&sb, "  title: %s\n", p.Title)
	}
	if p.Fields.Has(model.FieldGroup) {
		fmt.Fprintf(&sb, "  group: %s\n", p.Group)
	}
	if p.Fields.Has(model.FieldSalesRank) {
		fmt.Fprintf(&sb, "  salesrank: %d\n", p.SalesRank)
	}
	if p.Fields.Has(model.FieldSimilar) {
		fmt.Fprintf(&sb, "  similar: %d", p.SimilarCount)
		for _, id := range p.Similar {
			sb.WriteString("  ")
			sb.WriteString(id)
		}
		sb.WriteString("\n")
	}
	if p.Fields.Has(model.FieldCategories) {
		fmt.Fprintf(&sb, "  categories: %d\n", p.CategoriesCount)
		for _, c := range p.Categories {
			fmt.Fprintf(&sb, "   %s\n", c)
		}
	}
	if p.Fields.Has(model.FieldReviews) {
		fmt.Fprintf(&sb, "  reviews: total: %d  downloaded: %d  avg rating: %s\n",
			p.ReviewsTotal, p.ReviewsDownloaded, strconv.FormatFloat(p.AvgRating, 'f', -1, 64))
		for _, r := range p.Reviews {
			fmt.Fprintf(&sb, "    %s\n", r)
		}
	}

	return sb.String()
}
