// Package dataset turns the configured input files into the products and
// co-purchase snapshots the queries run on.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.canoozie.net/riddling/copurchase/pkg/edgeset"
	"git.canoozie.net/riddling/copurchase/pkg/model"
	"git.canoozie.net/riddling/copurchase/pkg/parser"
	"git.canoozie.net/riddling/copurchase/pkg/query"
	"git.canoozie.net/riddling/copurchase/pkg/storage"
)

// Opener opens an input location for reading
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// Sources names the input locations
type Sources struct {
	Metadata string            // Product metadata file
	Edges    map[string]string // Edge list per snapshot name
}

// Dataset is the loaded input of one run
type Dataset struct {
	RunID     string
	Products  []model.Product
	Index     *query.ProductIndex
	Snapshots map[string]*model.Snapshot

	FromCache  bool                     // Products were read from the product table
	ParseStats parser.Stats             // Zero when FromCache is set
	EdgeStats  map[string]edgeset.Stats // Per snapshot
}

// Snapshot returns the named snapshot
func (d *Dataset) Snapshot(name string) (*model.Snapshot, error) {
	s, ok := d.Snapshots[name]
	if !ok {
		return nil, model.ErrUnknownSnapshot{Name: name}
	}
	return s, nil
}

// Engine returns a query engine over the dataset. A positive maxDepth
// replaces the default depth of path queries that do not set one.
func (d *Dataset) Engine(logger model.Logger, maxDepth int) *query.Engine {
	executor := query.NewExecutor(d.Index, d.Snapshots, logger)
	if maxDepth > 0 {
		executor.Optimizer.DefaultMaxDepth = maxDepth
	}
	return &query.Engine{Executor: executor, Optimizer: executor.Optimizer}
}

// Loader reads a Dataset from its sources. When Table is set, parsed
// products are saved to it and later runs read them back instead of parsing,
// unless Refresh is set or the table is older than MaxAge.
type Loader struct {
	Sources Sources
	Opener  Opener
	Table   storage.Table
	Refresh bool
	MaxAge  time.Duration // Zero keeps the table forever
	Parser  *parser.Parser
	Logger  model.Logger
}

// NewLoader creates a loader with the default parser configuration
func NewLoader(sources Sources, opener Opener, table storage.Table, logger model.Logger) *Loader {
	if logger == nil {
		logger = model.DefaultLoggerInstance
	}
	cfg := parser.DefaultConfig()
	cfg.Logger = logger
	return &Loader{
		Sources: sources,
		Opener:  opener,
		Table:   table,
		Parser:  parser.New(cfg),
		Logger:  logger,
	}
}

// Load reads products and every snapshot concurrently
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	runID := uuid.NewString()
	logger := l.Logger
	if dl, ok := logger.(*model.DefaultLogger); ok {
		logger = dl.With("run", runID)
	}
	start := time.Now()

	ds := &Dataset{
		RunID:     runID,
		Snapshots: make(map[string]*model.Snapshot, len(l.Sources.Edges)),
		EdgeStats: make(map[string]edgeset.Stats, len(l.Sources.Edges)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return l.loadProducts(gctx, ds, logger)
	})

	for name, location := range l.Sources.Edges {
		name, location := name, location
		g.Go(func() error {
			snapshot, stats, err := l.loadSnapshot(gctx, name, location, logger)
			if err != nil {
				return err
			}
			mu.Lock()
			ds.Snapshots[name] = snapshot
			ds.EdgeStats[name] = stats
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds.Index = query.NewProductIndex(ds.Products)
	logger.Info("Loaded %d products and %d snapshots in %s",
		len(ds.Products), len(ds.Snapshots), time.Since(start).Round(time.Millisecond))
	return ds, nil
}

func (l *Loader) loadProducts(ctx context.Context, ds *Dataset, logger model.Logger) error {
	if l.Table != nil && !l.Refresh {
		exists, err := l.Table.Exists(ctx)
		if err != nil {
			return fmt.Errorf("checking product table: %w", err)
		}
		if exists && l.stale(logger) {
			exists = false
		}
		if exists {
			products, err := l.Table.Load(ctx)
			if err == nil {
				ds.Products = products
				ds.FromCache = true
				logger.Info("Read %d products from the product table", len(products))
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			logger.Warn("Product table unreadable, parsing metadata again: %v", err)
		}
	}

	rc, err := l.Opener.Open(ctx, l.Sources.Metadata)
	if err != nil {
		return fmt.Errorf("opening metadata: %w", err)
	}
	defer rc.Close()

	products, stats, err := l.Parser.Parse(ctx, rc)
	if err != nil {
		return fmt.Errorf("parsing metadata %s: %w", l.Sources.Metadata, err)
	}
	ds.Products = products
	ds.ParseStats = stats

	if l.Table != nil {
		if err := l.Table.Save(ctx, products); err != nil {
			return fmt.Errorf("saving product table: %w", err)
		}
	}
	return nil
}

// stale reports whether the product table was saved more than MaxAge ago.
// Tables that keep no version are never stale.
func (l *Loader) stale(logger model.Logger) bool {
	if l.MaxAge <= 0 {
		return false
	}
	versioned, ok := l.Table.(storage.Versioned)
	if !ok {
		return false
	}
	v, err := versioned.Version()
	if err != nil {
		logger.Warn("Product table has no readable version: %v", err)
		return false
	}
	if !v.IsStale(l.MaxAge) {
		return false
	}
	logger.Info("Product table saved %s ago, older than %s; parsing metadata again",
		v.Age().Round(time.Second), l.MaxAge)
	return true
}

func (l *Loader) loadSnapshot(ctx context.Context, name, location string, logger model.Logger) (*model.Snapshot, edgeset.Stats, error) {
	rc, err := l.Opener.Open(ctx, location)
	if err != nil {
		return nil, edgeset.Stats{}, fmt.Errorf("opening snapshot %s: %w", name, err)
	}
	defer rc.Close()

	snapshot, stats, err := edgeset.Load(ctx, name, rc, logger)
	if err != nil {
		return nil, edgeset.Stats{}, fmt.Errorf("loading snapshot %s: %w", name, err)
	}
	logger.Info("Snapshot %s: %d edges (%d malformed lines skipped)", name, stats.Edges, stats.Skipped)
	return snapshot, stats, nil
}
