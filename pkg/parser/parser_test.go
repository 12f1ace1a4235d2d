package parser

import (
	"bufio"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

const header = `# Full information about Amazon Share the same product
Total items: 548552`

const blockOne = `Id:   1
ASIN: 0827229534
  title: Patterns of Preaching: A Sermon Sampler
  group: Book
  salesrank: 396585
  similar: 5  0804215715  156101074X  0687023955  0687074231  082721619X
  categories: 2
   |Books[283155]|Subjects[1000]|Religion & Spirituality[22]|Christianity[12290]|Clergy[12360]|Preaching[12368]
   |Books[283155]|Subjects[1000]|Religion & Spirituality[22]|Christianity[12290]|Clergy[12360]|Sermons[12370]
  reviews: total: 2  downloaded: 2  avg rating: 5
    2000-7-28  cutomer: A2JW67OY8U6HHK  rating: 5  votes:  10  helpful:   9
    2003-12-14  cutomer: A2VE83MZF98ITY  rating: 5  votes:   6  helpful:   5`

const blockDiscontinued = `Id:   0
ASIN: 0771044445
  discontinued product`

const blockTwo = `Id:   2
ASIN: 0738700797
  title: Candlemas: Feast of Flames
  group: Book
  salesrank: 168596
  similar: 2  0738700827  1567184960
  categories: 1
   |Books[283155]|Subjects[1000]|Religion & Spirituality[22]|Earth-Based Religions[12472]|Wicca[12484]
  reviews: total: 3  downloaded: 3  avg rating: 4.5
    2001-12-16  cutomer: A11NCO6YTE4BTJ  rating: 5  votes:   5  helpful:   4
    2002-1-7  cutomer:  A9CQ3PLRNIR83  rating: 4  votes:   5  helpful:   5
    2002-1-24  cutomer: A13SG9ACZ9O5IM  rating: 5  votes:   8  helpful:   8`

func TestParseBlock(t *testing.T) {
	p, err := ParseBlock(blockOne)
	if err != nil {
		t.Fatalf("ParseBlock failed: %v", err)
	}

	if p.ID != 1 || p.ASIN != "0827229534" {
		t.Errorf("Unexpected identity: %d %q", p.ID, p.ASIN)
	}
	if p.Title != "Patterns of Preaching: A Sermon Sampler" {
		t.Errorf("Unexpected title: %q", p.Title)
	}
	if p.Group != "Book" || p.SalesRank != 396585 {
		t.Errorf("Unexpected group/salesrank: %q %d", p.Group, p.SalesRank)
	}
	if p.SimilarCount != 5 || len(p.Similar) != 5 || p.Similar[4] != "082721619X" {
		t.Errorf("Unexpected similar: %d %v", p.SimilarCount, p.Similar)
	}
	if p.CategoriesCount != 2 || len(p.Categories) != 2 || !strings.HasSuffix(p.Categories[1], "Sermons[12370]") {
		t.Errorf("Unexpected categories: %v", p.Categories)
	}
	if p.ReviewsTotal != 2 || p.ReviewsDownloaded != 2 || p.AvgRating != 5 {
		t.Errorf("Unexpected review summary: %d %d %v", p.ReviewsTotal, p.ReviewsDownloaded, p.AvgRating)
	}
	if len(p.Reviews) != 2 || !strings.HasPrefix(p.Reviews[0], "2000-7-28") {
		t.Errorf("Unexpected reviews: %v", p.Reviews)
	}
	if !p.Fields.Complete() {
		t.Errorf("Expected all fields present, missing %v", p.Fields.Missing())
	}
}

func TestParseBlockClampsCounts(t *testing.T) {
	block := strings.NewReplacer(
		"similar: 5", "similar: 99999999999",
		"categories: 2", "categories: 99999999999999999999",
		"total: 2  downloaded: 2", "total: 4294967296  downloaded: 2",
	).Replace(blockOne)

	p, err := ParseBlock(block)
	if err != nil {
		t.Fatalf("ParseBlock failed: %v", err)
	}
	if p.SimilarCount != model.MaxDeclaredCount || p.CategoriesCount != model.MaxDeclaredCount || p.ReviewsTotal != model.MaxDeclaredCount {
		t.Errorf("Expected clamped counts, got %d %d %d", p.SimilarCount, p.CategoriesCount, p.ReviewsTotal)
	}
	if len(p.Similar) != 5 || len(p.Categories) != 2 || p.ReviewsDownloaded != 2 {
		t.Errorf("Unexpected lists: %d similar, %d categories, %d downloaded", len(p.Similar), len(p.Categories), p.ReviewsDownloaded)
	}

	data, err := model.SerializeProduct(&p)
	if err != nil {
		t.Fatalf("SerializeProduct failed: %v", err)
	}
	back, err := model.DeserializeProduct(data)
	if err != nil {
		t.Fatalf("DeserializeProduct failed: %v", err)
	}
	if back.SimilarCount != p.SimilarCount || back.CategoriesCount != p.CategoriesCount || back.ReviewsTotal != p.ReviewsTotal {
		t.Errorf("Counts changed in a round trip: %d %d %d", back.SimilarCount, back.CategoriesCount, back.ReviewsTotal)
	}
}

func TestParseBlockMissingID(t *testing.T) {
	tests := []struct {
		name  string
		block string
	}{
		{"header", header},
		{"no id line", "ASIN: 0827229534\n  title: Something"},
		{"bad id", "Id:   abc\nASIN: 0827229534"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBlock(tt.block)
			if !errors.Is(err, model.ErrMissingID) {
				t.Errorf("Expected ErrMissingID, got %v", err)
			}
		})
	}
}

func TestParseBlockPartialFields(t *testing.T) {
	// No similar or categories lines, and a garbled sales rank
	block := "Id:   9\nASIN: B000\n  title: Half a record\n  group: Music\n  salesrank: n/a\n" +
		"  reviews: total: 0  downloaded: 0  avg rating: 0"

	p, err := ParseBlock(block)
	if err != nil {
		t.Fatalf("ParseBlock failed: %v", err)
	}

	want := []string{"salesrank", "similar", "categories"}
	if got := p.Fields.Missing(); !reflect.DeepEqual(got, want) {
		t.Errorf("Missing() = %v, want %v", got, want)
	}
	if p.Ranked() {
		t.Error("Expected unranked product")
	}
	if p.Title != "Half a record" || p.Group != "Music" {
		t.Errorf("Present fields not kept: %q %q", p.Title, p.Group)
	}
	if p.Similar != nil || p.Categories != nil {
		t.Error("Absent lists should stay nil")
	}
	if p.Reviews == nil || len(p.Reviews) != 0 {
		t.Errorf("Expected empty non-nil reviews, got %#v", p.Reviews)
	}
}

func TestParseBlockDiscontinued(t *testing.T) {
	p, err := ParseBlock(blockDiscontinued)
	if err != nil {
		t.Fatalf("ParseBlock failed: %v", err)
	}
	if !p.Discontinued {
		t.Error("Expected discontinued product")
	}
	if p.ID != 0 || p.Group != "" || p.Fields.Has(model.FieldTitle) {
		t.Errorf("Unexpected product: %+v", p)
	}
}

func TestParseBlockMultiLineTitle(t *testing.T) {
	block := "Id:   5\nASIN: 0000000005\n  title: First line\nsecond line\n  group: Book"

	p, err := ParseBlock(block)
	if err != nil {
		t.Fatalf("ParseBlock failed: %v", err)
	}
	if p.Title != "First line\nsecond line" {
		t.Errorf("Unexpected title: %q", p.Title)
	}
	if p.Group != "Book" {
		t.Errorf("Unexpected group: %q", p.Group)
	}
}

func TestParseBlockCRLF(t *testing.T) {
	crlf := strings.ReplaceAll(blockTwo, "\n", "\r\n")

	got, err := ParseBlock(crlf)
	if err != nil {
		t.Fatalf("ParseBlock failed: %v", err)
	}
	want, err := ParseBlock(blockTwo)
	if err != nil {
		t.Fatalf("ParseBlock failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CRLF block parsed differently:\n got %+v\nwant %+v", got, want)
	}
}

func TestFormatBlockRoundTrip(t *testing.T) {
	blocks := map[string]string{
		"full":         blockOne,
		"fractional":   blockTwo,
		"discontinued": blockDiscontinued,
		"partial":      "Id:   9\nASIN: B000\n  group: Music\n  similar: 0",
		"multi title":  "Id:   5\nASIN: 0000000005\n  title: First line\nsecond line\n  group: Book",
	}

	for name, block := range blocks {
		t.Run(name, func(t *testing.T) {
			first, err := ParseBlock(block)
			if err != nil {
				t.Fatalf("ParseBlock failed: %v", err)
			}
			second, err := ParseBlock(FormatBlock(first))
			if err != nil {
				t.Fatalf("ParseBlock of formatted block failed: %v", err)
			}
			if !reflect.DeepEqual(first, second) {
				t.Errorf("Round trip changed the product:\n got %+v\nwant %+v", second, first)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"lf", header + "\n\n" + blockOne + "\n\n" + blockTwo + "\n", 3},
		{"crlf", strings.ReplaceAll(header+"\n\n"+blockOne+"\n\n"+blockTwo, "\n", "\r\n"), 3},
		{"extra blank lines", "\n\n" + blockOne + "\n\n\n\n" + blockTwo + "\n\n\n", 2},
		{"only blanks", "\n \n\n", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := bufio.NewScanner(strings.NewReader(tt.input))
			scanner.Split(Split)
			count := 0
			for scanner.Scan() {
				if strings.TrimSpace(scanner.Text()) == "" {
					t.Error("Split returned a blank block")
				}
				count++
			}
			if err := scanner.Err(); err != nil {
				t.Fatalf("Scanner error: %v", err)
			}
			if count != tt.want {
				t.Errorf("Got %d blocks, want %d", count, tt.want)
			}
		})
	}
}

func TestParserParse(t *testing.T) {
	input := strings.Join([]string{header, blockDiscontinued, blockOne, "ASIN: orphan", blockTwo}, "\n\n") + "\n"

	p := New(Config{Workers: 2, BatchSize: 2, Logger: model.NewNoOpLogger()})
	products, stats, err := p.Parse(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	ids := make([]uint64, 0, len(products))
	for _, prod := range products {
		ids = append(ids, prod.ID)
	}
	if want := []uint64{0, 1, 2}; !reflect.DeepEqual(ids, want) {
		t.Errorf("Got ids %v, want %v (input order)", ids, want)
	}

	want := Stats{Blocks: 5, Parsed: 3, Dropped: 2, Duplicates: 0}
	if stats != want {
		t.Errorf("Stats = %+v, want %+v", stats, want)
	}
}

func TestParserDuplicateIDs(t *testing.T) {
	dup := strings.Replace(blockTwo, "Candlemas: Feast of Flames", "Another title", 1)
	input := blockTwo + "\n\n" + blockOne + "\n\n" + dup

	p := New(Config{Workers: 4, Logger: model.NewNoOpLogger()})
	products, stats, err := p.Parse(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(products) != 2 || stats.Duplicates != 1 {
		t.Fatalf("Expected 2 products and 1 duplicate, got %d and %d", len(products), stats.Duplicates)
	}
	seen := make(map[uint64]bool)
	for _, prod := range products {
		if seen[prod.ID] {
			t.Errorf("Duplicate id %d in output", prod.ID)
		}
		seen[prod.ID] = true
		if prod.ID == 2 && prod.Title != "Candlemas: Feast of Flames" {
			t.Errorf("Expected first record to win, got title %q", prod.Title)
		}
	}
}

func TestParserCountsMismatches(t *testing.T) {
	similarOff := strings.Replace(blockOne, "similar: 5", "similar: 7", 1)
	bothOff := strings.Replace(strings.Replace(blockTwo, "similar: 2", "similar: 1", 1), "categories: 1", "categories: 3", 1)
	input := similarOff + "\n\n" + bothOff + "\n\n" + blockDiscontinued

	p := New(Config{Logger: model.NewNoOpLogger()})
	products, stats, err := p.Parse(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("Expected 3 products, got %d", len(products))
	}
	if stats.SimilarMismatches != 2 || stats.CategoryMismatches != 1 {
		t.Errorf("Unexpected mismatch counts: %+v", stats)
	}
	if len(products[0].Similar) != 5 || products[0].SimilarCount != 7 {
		t.Errorf("Expected the parsed list to be kept, got %d similar (declared %d)",
			len(products[0].Similar), products[0].SimilarCount)
	}
}

func TestParserBlockTooLarge(t *testing.T) {
	p := New(Config{MaxBlockSize: 64, Logger: model.NewNoOpLogger()})
	_, _, err := p.Parse(context.Background(), strings.NewReader(blockOne))
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Errorf("Expected ErrTooLong, got %v", err)
	}
}

func TestParserCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(Config{Logger: model.NewNoOpLogger()})
	_, _, err := p.Parse(ctx, strings.NewReader(blockOne))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
