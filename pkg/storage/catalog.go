package storage

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]*$`)

// ErrInvalidTableName is returned for names that cannot be used as a directory
type ErrInvalidTableName struct {
	Name string
}

func (e ErrInvalidTableName) Error() string {
	return fmt.Sprintf("invalid table name: %q", e.Name)
}

// Catalog hands out the named product tables kept under one data directory
type Catalog struct {
	dataDir string
	logger  model.Logger

	mu     sync.Mutex
	tables map[string]*SSTableTable
}

// NewCatalog creates a catalog over dataDir
func NewCatalog(dataDir string, logger model.Logger) *Catalog {
	if logger == nil {
		logger = model.DefaultLoggerInstance
	}
	return &Catalog{
		dataDir: dataDir,
		logger:  logger,
		tables:  make(map[string]*SSTableTable),
	}
}

// Table returns the table with the given name. The same instance is
// returned for repeated calls until the catalog is closed.
func (c *Catalog) Table(name string) (*SSTableTable, error) {
	if !tableNamePattern.MatchString(name) {
		return nil, ErrInvalidTableName{Name: name}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.tables[name]; ok {
		return t, nil
	}
	t := NewSSTableTable(c.dataDir, name, c.logger)
	c.tables[name] = t
	return t, nil
}

// Close closes every table handed out by the catalog
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for name, t := range c.tables {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing table %s: %w", name, err))
		}
		delete(c.tables, name)
	}
	return errors.Join(errs...)
}
