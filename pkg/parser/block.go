package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"git.canoozie.net/riddling/copurchase/pkg/common"
	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// Keys recognised at the start of a trimmed line
const (
	keyID           = "Id:"
	keyASIN         = "ASIN:"
	keyTitle        = "title:"
	keyGroup        = "group:"
	keySalesRank    = "salesrank:"
	keySimilar      = "similar:"
	keyCategories   = "categories:"
	keyReviews      = "reviews:"
	lineDiscontinue = "discontinued product"
)

// maxPrealloc bounds list capacity taken from a declared count
const maxPrealloc = 256

// parseCount parses a declared count. Values above model.MaxDeclaredCount
// are clamped to it; negative or non-numeric values are rejected.
func parseCount(s string) (int, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(s, "-") {
			return model.MaxDeclaredCount, true
		}
		return 0, false
	}
	if n < 0 {
		return 0, false
	}
	if n > model.MaxDeclaredCount {
		return model.MaxDeclaredCount, true
	}
	return int(n), true
}

var reviewSummaryPattern = regexp.MustCompile(
	`total:\s*(\d+)\s+downloaded:\s*(\d+)\s+avg rating:\s*(\d+(?:\.\d*)?)`)

// section tracks which multi-line value continuation lines belong to
type section int

const (
	sectionNone section = iota
	sectionTitle
	sectionCategories
	sectionReviews
)

// ParseBlock parses one metadata block into a Product.
//
// Every key is extracted on its own, so a missing or malformed field only
// leaves that field absent (see Product.Fields). The block is rejected with
// model.ErrMissingID when it carries no usable Id line.
func ParseBlock(block string) (model.Product, error) {
	var p model.Product
	p.SalesRank = model.UnrankedSalesRank

	sec := sectionNone
	var title []string

	for _, raw := range strings.Split(block, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, keyID):
			sec = sectionNone
			value := strings.TrimSpace(line[len(keyID):])
			id, err := common.ParseUint64(value)
			if err != nil {
				return model.Product{}, fmt.Errorf("%w: %v", model.ErrMissingID, model.ErrInvalidProductID{Value: value})
			}
			p.ID = id
			p.Fields = p.Fields.With(model.FieldID)

		case strings.HasPrefix(line, keyASIN):
			sec = sectionNone
			if asin := strings.TrimSpace(line[len(keyASIN):]); asin != "" {
				p.ASIN = asin
				p.Fields = p.Fields.With(model.FieldASIN)
			}

		case strings.HasPrefix(line, keyTitle):
			sec = sectionTitle
			title = append(title[:0], strings.TrimSpace(line[len(keyTitle):]))
			p.Fields = p.Fields.With(model.FieldTitle)

		case strings.HasPrefix(line, keyGroup):
			sec = sectionNone
			p.Group = strings.TrimSpace(line[len(keyGroup):])
			p.Fields = p.Fields.With(model.FieldGroup)

		case strings.HasPrefix(line, keySalesRank):
			sec = sectionNone
			rank, err := strconv.ParseInt(strings.TrimSpace(line[len(keySalesRank):]), 10, 64)
			if err == nil {
				p.SalesRank = rank
				p.Fields = p.Fields.With(model.FieldSalesRank)
			}

		case strings.HasPrefix(line, keySimilar):
			sec = sectionNone
			fields := strings.Fields(line[len(keySimilar):])
			if len(fields) == 0 {
				continue
			}
			count, ok := parseCount(fields[0])
			if !ok {
				continue
			}
			p.SimilarCount = count
			p.Similar = append(make([]string, 0, len(fields)-1), fields[1:]...)
			p.Fields = p.Fields.With(model.FieldSimilar)

		case strings.HasPrefix(line, keyCategories):
			sec = sectionNone
			count, ok := parseCount(strings.TrimSpace(line[len(keyCategories):]))
			if !ok {
				continue
			}
			sec = sectionCategories
			p.CategoriesCount = count
			p.Categories = make([]string, 0, min(count, maxPrealloc))
			p.Fields = p.Fields.With(model.FieldCategories)

		case strings.HasPrefix(line, keyReviews):
			sec = sectionNone
			m := reviewSummaryPattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			// digits only, guaranteed by the pattern
			p.ReviewsTotal, _ = parseCount(m[1])
			p.ReviewsDownloaded, _ = parseCount(m[2])
			p.AvgRating, _ = strconv.ParseFloat(m[3], 64)
			p.Reviews = make([]string, 0, min(p.ReviewsDownloaded, maxPrealloc))
			p.Fields = p.Fields.With(model.FieldReviews)
			sec = sectionReviews

		case line == lineDiscontinue:
			sec = sectionNone
			p.Discontinued = true

		default:
			switch sec {
			case sectionTitle:
				title = append(title, line)
			case sectionCategories:
				p.Categories = append(p.Categories, line)
			case sectionReviews:
				p.Reviews = append(p.Reviews, line)
			}
		}
	}

	if !p.Fields.Has(model.FieldID) {
		return model.Product{}, model.ErrMissingID
	}

	if len(title) > 0 {
		p.Title = strings.Join(title, "\n")
	}

	return p, nil
}
