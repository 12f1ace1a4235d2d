package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// Config holds the settings of a Parser
type Config struct {
	Workers      int          // Number of goroutines parsing blocks
	BatchSize    int          // Number of blocks handed to the workers at once
	MaxBlockSize int          // Largest block the scanner accepts, in bytes
	Logger       model.Logger // Logger for dropped records
}

// DefaultConfig returns the default parser configuration
func DefaultConfig() Config {
	return Config{
		Workers:      runtime.GOMAXPROCS(0),
		BatchSize:    1024,
		MaxBlockSize: 64 * 1024 * 1024,
		Logger:       model.DefaultLoggerInstance,
	}
}

// Stats summarises one parse run
type Stats struct {
	Blocks     int // Blocks read from the input
	Parsed     int // Products returned
	Dropped    int // Blocks without a usable id
	Duplicates int // Blocks whose id was already seen

	SimilarMismatches  int // Products whose declared similar count disagrees with the list
	CategoryMismatches int // Products whose declared categories count disagrees with the list
}

// Parser turns a metadata stream into products
type Parser struct {
	config Config
	logger model.Logger
}

// New creates a Parser, filling unset config values with defaults
func New(config Config) *Parser {
	def := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxBlockSize <= 0 {
		config.MaxBlockSize = def.MaxBlockSize
	}
	if config.Logger == nil {
		config.Logger = def.Logger
	}
	return &Parser{config: config, logger: config.Logger}
}

// Parse reads every block of r and returns the products in input order.
// Blocks without an id are dropped, and for a repeated id the first block wins.
func (p *Parser) Parse(ctx context.Context, r io.Reader) ([]model.Product, Stats, error) {
	var stats Stats
	products := make([]model.Product, 0)
	seen := make(map[uint64]struct{})

	scanner := bufio.NewScanner(r)
	initial := 1024 * 1024
	if initial > p.config.MaxBlockSize {
		initial = p.config.MaxBlockSize
	}
	scanner.Buffer(make([]byte, 0, initial), p.config.MaxBlockSize)
	scanner.Split(Split)

	batch := make([]string, 0, p.config.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		results, err := p.parseBatch(ctx, batch)
		if err != nil {
			return err
		}
		for i, res := range results {
			if res.err != nil {
				stats.Dropped++
				p.logger.Debug("Dropping block %d: %v", stats.Blocks-len(batch)+i+1, res.err)
				continue
			}
			if _, dup := seen[res.product.ID]; dup {
				stats.Duplicates++
				p.logger.Warn("Duplicate product id %d, keeping the first record", res.product.ID)
				continue
			}
			seen[res.product.ID] = struct{}{}
			if res.product.SimilarCountMismatch() {
				stats.SimilarMismatches++
				p.logger.Debug("Product %d declares %d similar products, lists %d",
					res.product.ID, res.product.SimilarCount, len(res.product.Similar))
			}
			if res.product.CategoriesCountMismatch() {
				stats.CategoryMismatches++
				p.logger.Debug("Product %d declares %d categories, lists %d",
					res.product.ID, res.product.CategoriesCount, len(res.product.Categories))
			}
			products = append(products, res.product)
		}
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		stats.Blocks++
		batch = append(batch, scanner.Text())
		if len(batch) == p.config.BatchSize {
			if err := flush(); err != nil {
				return nil, stats, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, stats, fmt.Errorf("block %d exceeds %d bytes: %w", stats.Blocks+1, p.config.MaxBlockSize, err)
		}
		return nil, stats, fmt.Errorf("reading metadata: %w", err)
	}
	if err := flush(); err != nil {
		return nil, stats, err
	}

	stats.Parsed = len(products)
	p.logger.Info("Parsed %d products from %d blocks (%d dropped, %d duplicates)",
		stats.Parsed, stats.Blocks, stats.Dropped, stats.Duplicates)
	if stats.SimilarMismatches > 0 || stats.CategoryMismatches > 0 {
		p.logger.Info("Declared counts disagree with parsed lists: %d similar, %d categories",
			stats.SimilarMismatches, stats.CategoryMismatches)
	}
	return products, stats, nil
}

type blockResult struct {
	product model.Product
	err     error
}

// parseBatch parses the blocks concurrently, one result slot per block
func (p *Parser) parseBatch(ctx context.Context, blocks []string) ([]blockResult, error) {
	results := make([]blockResult, len(blocks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)
	for i := range blocks {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			product, err := ParseBlock(blocks[i])
			results[i] = blockResult{product: product, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
