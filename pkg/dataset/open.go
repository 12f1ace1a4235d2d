package dataset

import (
	"context"
	"fmt"

	"git.canoozie.net/riddling/copurchase/pkg/config"
	"git.canoozie.net/riddling/copurchase/pkg/model"
	"git.canoozie.net/riddling/copurchase/pkg/parser"
	"git.canoozie.net/riddling/copurchase/pkg/source"
	"git.canoozie.net/riddling/copurchase/pkg/storage"
	"git.canoozie.net/riddling/copurchase/pkg/storage/pgstore"
)

// OpenTable returns the product table selected by cfg.Cache.Backend
func OpenTable(ctx context.Context, cfg *config.Config, logger model.Logger) (storage.Table, error) {
	switch cfg.Cache.Backend {
	case config.BackendPostgres:
		table, err := pgstore.Open(ctx, cfg.DatabaseURL, cfg.Table, logger)
		if err != nil {
			return nil, err
		}
		return table, nil
	case config.BackendSSTable, "":
		table, err := storage.NewCatalog(cfg.DataDir, logger).Table(cfg.Table)
		if err != nil {
			return nil, err
		}
		return table, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

// FromConfig builds a loader for cfg. The caller closes the returned table.
func FromConfig(ctx context.Context, cfg *config.Config, logger model.Logger) (*Loader, storage.Table, error) {
	table, err := OpenTable(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	opener := source.NewOpener(source.S3Config{
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	})
	sources := Sources{Metadata: cfg.Metadata, Edges: cfg.EdgeLocations()}

	loader := NewLoader(sources, opener, table, logger)
	loader.Refresh = cfg.Cache.Refresh
	loader.MaxAge = cfg.Cache.MaxAge
	if cfg.Workers > 0 {
		pc := parser.DefaultConfig()
		pc.Workers = cfg.Workers
		pc.Logger = logger
		loader.Parser = parser.New(pc)
	}
	return loader, table, nil
}
