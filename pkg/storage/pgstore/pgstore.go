// Package pgstore keeps the product table in PostgreSQL
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// Conn is the subset of a pgx pool or connection the table uses
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var columns = []string{
	"id", "asin", "title", "product_group", "salesrank",
	"similar_count", "similar", "categories_count", "categories",
	"reviews_total", "reviews_downloaded", "avg_rating", "reviews",
	"discontinued", "fields",
}

// Table is a product table stored in PostgreSQL
type Table struct {
	conn   Conn
	pool   *pgxpool.Pool
	name   string
	ident  string
	logger model.Logger
}

// Open connects to databaseURL and returns the named table. Close releases
// the connection pool.
func Open(ctx context.Context, databaseURL, name string, logger model.Logger) (*Table, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	t := New(pool, name, logger)
	t.pool = pool
	return t, nil
}

// New returns the named table on an existing connection
func New(conn Conn, name string, logger model.Logger) *Table {
	if logger == nil {
		logger = model.DefaultLoggerInstance
	}
	return &Table{
		conn:   conn,
		name:   name,
		ident:  pgx.Identifier{name}.Sanitize(),
		logger: logger,
	}
}

// Name returns the table name
func (t *Table) Name() string {
	return t.name
}

func (t *Table) createStatement() string {
	return `CREATE TABLE IF NOT EXISTS ` + t.ident + ` (
		id                 BIGINT PRIMARY KEY,
		asin               TEXT NOT NULL,
		title              TEXT NOT NULL,
		product_group      TEXT NOT NULL,
		salesrank          BIGINT NOT NULL,
		similar_count      INTEGER NOT NULL,
		similar            TEXT[],
		categories_count   INTEGER NOT NULL,
		categories         TEXT[],
		reviews_total      INTEGER NOT NULL,
		reviews_downloaded INTEGER NOT NULL,
		avg_rating         DOUBLE PRECISION NOT NULL,
		reviews            TEXT[],
		discontinued       BOOLEAN NOT NULL,
		fields             INTEGER NOT NULL
	)`
}

// Save replaces the table contents with products in one transaction
func (t *Table) Save(ctx context.Context, products []model.Product) error {
	tx, err := t.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, t.createStatement()); err != nil {
		return fmt.Errorf("creating table %s: %w", t.name, err)
	}
	if _, err := tx.Exec(ctx, `TRUNCATE `+t.ident); err != nil {
		return fmt.Errorf("truncating table %s: %w", t.name, err)
	}

	rows := make([][]any, 0, len(products))
	for i := range products {
		p := &products[i]
		rows = append(rows, []any{
			int64(p.ID), p.ASIN, p.Title, p.Group, p.SalesRank,
			int32(p.SimilarCount), p.Similar, int32(p.CategoriesCount), p.Categories,
			int32(p.ReviewsTotal), int32(p.ReviewsDownloaded), p.AvgRating, p.Reviews,
			p.Discontinued, int32(p.Fields),
		})
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{t.name}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copying products into %s: %w", t.name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	t.logger.Info("Saved %d products to table %s", copied, t.name)
	return nil
}

func (t *Table) selectStatement() string {
	return `SELECT id, asin, title, product_group, salesrank,
		similar_count, similar, categories_count, categories,
		reviews_total, reviews_downloaded, avg_rating, reviews,
		discontinued, fields
		FROM ` + t.ident
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	var id int64
	var similarCount, categoriesCount, reviewsTotal, reviewsDownloaded, fields int32

	err := row.Scan(
		&id, &p.ASIN, &p.Title, &p.Group, &p.SalesRank,
		&similarCount, &p.Similar, &categoriesCount, &p.Categories,
		&reviewsTotal, &reviewsDownloaded, &p.AvgRating, &p.Reviews,
		&p.Discontinued, &fields,
	)
	if err != nil {
		return model.Product{}, err
	}

	p.ID = uint64(id)
	p.SimilarCount = int(similarCount)
	p.CategoriesCount = int(categoriesCount)
	p.ReviewsTotal = int(reviewsTotal)
	p.ReviewsDownloaded = int(reviewsDownloaded)
	p.Fields = model.FieldSet(fields)
	return p, nil
}

// Load returns every product ordered by id
func (t *Table) Load(ctx context.Context) ([]model.Product, error) {
	rows, err := t.conn.Query(ctx, t.selectStatement()+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("loading table %s: %w", t.name, err)
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("loading table %s: %w", t.name, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading table %s: %w", t.name, err)
	}

	t.logger.Debug("Loaded %d products from table %s", len(products), t.name)
	return products, nil
}

// Get returns the product with the given id
func (t *Table) Get(ctx context.Context, id uint64) (model.Product, error) {
	p, err := scanProduct(t.conn.QueryRow(ctx, t.selectStatement()+` WHERE id = $1`, int64(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Product{}, model.ErrProductNotFound
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("reading product %d: %w", id, err)
	}
	return p, nil
}

// Exists reports whether the table exists in the current schema
func (t *Table) Exists(ctx context.Context) (bool, error) {
	var exists bool
	err := t.conn.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, t.name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", t.name, err)
	}
	return exists, nil
}

// Close releases the pool when the table opened it
func (t *Table) Close() error {
	if t.pool != nil {
		t.pool.Close()
		t.pool = nil
	}
	return nil
}
