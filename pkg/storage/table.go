package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"git.canoozie.net/riddling/copurchase/pkg/common"
	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// ErrTableNotFound is returned when reading a table that was never saved
var ErrTableNotFound = errors.New("table not found")

// ErrTableClosed is returned when using a closed table
var ErrTableClosed = errors.New("table is closed")

// productsFile is the base name of the SSTable holding a product table
const productsFile = "products"

// Table persists the parsed product records so later runs can skip parsing
type Table interface {
	// Save replaces the table contents with products
	Save(ctx context.Context, products []model.Product) error
	// Load returns every product ordered by id
	Load(ctx context.Context) ([]model.Product, error)
	// Get returns one product, or model.ErrProductNotFound
	Get(ctx context.Context, id uint64) (model.Product, error)
	// Exists reports whether the table has been saved
	Exists(ctx context.Context) (bool, error)
	Close() error
}

// SSTableTable is a Table stored as one SSTable in <dir>/<name>/
type SSTableTable struct {
	name   string
	dir    string
	logger model.Logger

	mu     sync.RWMutex
	sst    *SSTable
	closed bool
}

// NewSSTableTable returns the table rooted at dataDir/name. Nothing is
// read until the table is used.
func NewSSTableTable(dataDir, name string, logger model.Logger) *SSTableTable {
	if logger == nil {
		logger = model.DefaultLoggerInstance
	}
	return &SSTableTable{
		name:   name,
		dir:    filepath.Join(dataDir, name),
		logger: logger,
	}
}

// Name returns the table name
func (t *SSTableTable) Name() string {
	return t.name
}

func (t *SSTableTable) sstableConfig(dir string) SSTableConfig {
	return SSTableConfig{Path: dir, Name: productsFile, Logger: t.logger}
}

// Save writes products to a fresh directory and swaps it in place of the
// current one, so readers never observe a partial table
func (t *SSTableTable) Save(ctx context.Context, products []model.Product) error {
	entries := make([]Entry, 0, len(products))
	for i := range products {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		value, err := model.SerializeProduct(&products[i])
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			Key:   []byte(common.FormatProductKey(products[i].ID)),
			Value: value,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return string(entries[i].Key) < string(entries[j].Key)
	})

	parent := filepath.Dir(t.dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	staging := filepath.Join(parent, fmt.Sprintf(".%s.tmp-%s", t.name, uuid.NewString()))

	sst, err := WriteSSTable(t.sstableConfig(staging), entries)
	if err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("saving table %s: %w", t.name, err)
	}
	// Reopened from the final location below
	sst.Close()

	version, err := newTableVersion(staging, uuid.NewString(), len(entries))
	if err == nil {
		err = version.write(staging)
	}
	if err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("saving table %s: %w", t.name, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		os.RemoveAll(staging)
		return ErrTableClosed
	}
	if t.sst != nil {
		t.sst.Close()
		t.sst = nil
	}

	backup := ""
	if _, err := os.Stat(t.dir); err == nil {
		backup = filepath.Join(parent, fmt.Sprintf(".%s.old-%s", t.name, uuid.NewString()))
		if err := os.Rename(t.dir, backup); err != nil {
			os.RemoveAll(staging)
			return fmt.Errorf("saving table %s: %w", t.name, err)
		}
	}
	if err := os.Rename(staging, t.dir); err != nil {
		if backup != "" {
			os.Rename(backup, t.dir)
		}
		os.RemoveAll(staging)
		return fmt.Errorf("saving table %s: %w", t.name, err)
	}
	if backup != "" {
		os.RemoveAll(backup)
	}

	t.logger.Info("Saved %d products to table %s (%s)", len(entries), t.name, version)
	return nil
}

// Version returns the version written by the last Save
func (t *SSTableTable) Version() (TableVersion, error) {
	v, err := readTableVersion(t.dir)
	if errors.Is(err, os.ErrNotExist) {
		return TableVersion{}, fmt.Errorf("%w: %s", ErrTableNotFound, t.name)
	}
	return v, err
}

// open returns the opened SSTable, opening it on first use
func (t *SSTableTable) open() (*SSTable, error) {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return nil, ErrTableClosed
	}
	if t.sst != nil {
		sst := t.sst
		t.mu.RUnlock()
		return sst, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrTableClosed
	}
	if t.sst != nil {
		return t.sst, nil
	}

	sst, err := OpenSSTable(t.sstableConfig(t.dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, t.name)
		}
		return nil, fmt.Errorf("opening table %s: %w", t.name, err)
	}
	t.sst = sst
	return sst, nil
}

// Load returns every product ordered by id
func (t *SSTableTable) Load(ctx context.Context) ([]model.Product, error) {
	sst, err := t.open()
	if err != nil {
		return nil, err
	}

	products := make([]model.Product, 0, sst.KeyCount())
	err = sst.Scan(func(key, value []byte) error {
		if len(products)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		p, err := model.DeserializeProduct(value)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		products = append(products, *p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading table %s: %w", t.name, err)
	}

	t.logger.Debug("Loaded %d products from table %s", len(products), t.name)
	return products, nil
}

// Get returns the product with the given id
func (t *SSTableTable) Get(ctx context.Context, id uint64) (model.Product, error) {
	if err := ctx.Err(); err != nil {
		return model.Product{}, err
	}
	sst, err := t.open()
	if err != nil {
		return model.Product{}, err
	}

	value, err := sst.Get([]byte(common.FormatProductKey(id)))
	if errors.Is(err, ErrKeyNotFoundInSSTable) {
		return model.Product{}, model.ErrProductNotFound
	}
	if err != nil {
		return model.Product{}, err
	}

	p, err := model.DeserializeProduct(value)
	if err != nil {
		return model.Product{}, err
	}
	return *p, nil
}

// Exists reports whether the table has been saved
func (t *SSTableTable) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(filepath.Join(t.dir, productsFile+dataFileSuffix))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Close releases the open SSTable, if any
func (t *SSTableTable) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	if t.sst == nil {
		return nil
	}
	err := t.sst.Close()
	t.sst = nil
	return err
}
