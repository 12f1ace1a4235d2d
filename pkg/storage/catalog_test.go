package storage

import (
	"context"
	"errors"
	"os"
	"testing"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

func TestCatalog(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "catalog_test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	ctx := context.Background()
	catalog := NewCatalog(tempDir, model.NewNoOpLogger())

	meta, err := catalog.Table("amazon_meta")
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	again, _ := catalog.Table("amazon_meta")
	if meta != again {
		t.Error("Expected the same table instance for the same name")
	}
	if meta.Name() != "amazon_meta" {
		t.Errorf("Name() = %q", meta.Name())
	}

	if err := meta.Save(ctx, testProducts()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if exists, err := meta.Exists(ctx); err != nil || !exists {
		t.Errorf("Exists() = %v, %v; want true", exists, err)
	}

	if err := catalog.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := meta.Load(ctx); !errors.Is(err, ErrTableClosed) {
		t.Errorf("Load after Close error = %v, want ErrTableClosed", err)
	}

	reopened, _ := catalog.Table("amazon_meta")
	if reopened == meta {
		t.Error("Expected a new table instance after Close")
	}
	products, err := reopened.Load(ctx)
	if err != nil || len(products) != len(testProducts()) {
		t.Errorf("Load after reopen = %d products, %v", len(products), err)
	}
	reopened.Close()
}

func TestCatalogInvalidName(t *testing.T) {
	catalog := NewCatalog(os.TempDir(), model.NewNoOpLogger())

	for _, name := range []string{"", "../escape", ".hidden", "a/b"} {
		_, err := catalog.Table(name)
		var invalid ErrInvalidTableName
		if !errors.As(err, &invalid) {
			t.Errorf("Table(%q) error = %v, want ErrInvalidTableName", name, err)
		}
	}
}
