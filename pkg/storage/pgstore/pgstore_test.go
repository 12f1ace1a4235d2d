package pgstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// openTestTable connects to TEST_DATABASE_URL or skips the test
func openTestTable(t *testing.T) *Table {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	name := fmt.Sprintf("products_test_%d", time.Now().UnixNano())
	table, err := Open(ctx, url, name, model.NewNoOpLogger())
	if err != nil {
		t.Fatalf("Failed to open table: %v", err)
	}
	t.Cleanup(func() {
		table.conn.Exec(context.Background(), `DROP TABLE IF EXISTS `+table.ident)
		table.Close()
	})
	return table
}

func TestTableSaveLoad(t *testing.T) {
	table := openTestTable(t)
	ctx := context.Background()

	exists, err := table.Exists(ctx)
	if err != nil || exists {
		t.Fatalf("Exists before save = %v, %v", exists, err)
	}

	book := model.NewProduct(21, "0738700797")
	book.Title = "Candlemas: Feast of Flames"
	book.Group = "Book"
	book.Similar = []string{"0738700827", "1567184960"}
	book.SimilarCount = 2
	book.Reviews = []string{"2001-12-16  cutomer: A11NCO6YTE4BTJ  rating: 5  votes:   5  helpful:   4"}
	book.ReviewsTotal = 1
	book.ReviewsDownloaded = 1
	book.AvgRating = 5
	book.Fields = book.Fields.With(model.FieldTitle).With(model.FieldGroup).
		With(model.FieldSimilar).With(model.FieldReviews)

	other := model.NewProduct(3, "B00000AU3R")

	if err := table.Save(ctx, []model.Product{*book, *other}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	exists, err = table.Exists(ctx)
	if err != nil || !exists {
		t.Fatalf("Exists after save = %v, %v", exists, err)
	}

	products, err := table.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(products) != 2 || products[0].ID != 3 || products[1].ID != 21 {
		t.Fatalf("Unexpected products: %+v", products)
	}
	if products[1].Title != book.Title || len(products[1].Similar) != 2 || products[1].Fields != book.Fields {
		t.Errorf("Product 21 not preserved: %+v", products[1])
	}

	got, err := table.Get(ctx, 21)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Reviews[0] != book.Reviews[0] {
		t.Errorf("Unexpected reviews: %v", got.Reviews)
	}

	if _, err := table.Get(ctx, 999); !errors.Is(err, model.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}

	// Save replaces the previous contents
	if err := table.Save(ctx, []model.Product{*other}); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}
	products, err = table.Load(ctx)
	if err != nil || len(products) != 1 {
		t.Errorf("Expected 1 product after replace, got %d (%v)", len(products), err)
	}
}
