package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aluiziolira/pricescout/models"
)

const createProductsTable = `
CREATE TABLE IF NOT EXISTS scraped_products (
	id            UUID PRIMARY KEY,
	search_id     TEXT NOT NULL,
	platform      TEXT NOT NULL,
	name          TEXT NOT NULL,
	price         NUMERIC(14,2) NOT NULL,
	currency      TEXT NOT NULL,
	seller        TEXT NOT NULL,
	rating        DOUBLE PRECISION,
	review_count  INTEGER NOT NULL DEFAULT 0,
	availability  TEXT NOT NULL,
	shipping      NUMERIC(14,2),
	url           TEXT NOT NULL DEFAULT '',
	image_url     TEXT NOT NULL DEFAULT '',
	extracted_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (search_id, platform, url, extracted_at)
)`

const insertProduct = `
INSERT INTO scraped_products
	(id, search_id, platform, name, price, currency, seller, rating, review_count,
	 availability, shipping, url, image_url, extracted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT DO NOTHING`

// PostgresWriter stores listings in the scraped_products table.
type PostgresWriter struct {
	ctx      context.Context
	pool     *pgxpool.Pool
	searchID string

	mu       sync.Mutex
	written  int
	inserted int
}

// NewPostgresWriter connects to dsn and creates the table when missing.
// Rows are tagged with searchID so one search's export can be queried back.
func NewPostgresWriter(ctx context.Context, dsn, searchID string) (*PostgresWriter, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 4 {
		cfg.MaxConns = 4
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createProductsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create scraped_products: %w", err)
	}
	return &PostgresWriter{ctx: ctx, pool: pool, searchID: searchID}, nil
}

// Write inserts listings in one batch. Rows already present are skipped but
// still count as written.
func (pw *PostgresWriter) Write(listings []models.ProductListing) error {
	b := &pgx.Batch{}
	count := queueListings(b, pw.searchID, listings)
	if count == 0 {
		return nil
	}

	br := pw.pool.SendBatch(pw.ctx, b)
	inserted := 0
	for i := 0; i < count; i++ {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return fmt.Errorf("insert listing: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	pw.record(count, inserted)
	return nil
}

func (pw *PostgresWriter) record(written, inserted int) {
	pw.mu.Lock()
	pw.written += written
	pw.inserted += inserted
	pw.mu.Unlock()
}

// Inserted reports how many rows were new to the table.
func (pw *PostgresWriter) Inserted() int {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.inserted
}

func queueListings(b *pgx.Batch, searchID string, listings []models.ProductListing) int {
	count := 0
	for _, l := range listings {
		if !l.Valid() {
			continue
		}
		b.Queue(insertProduct,
			uuid.New(), searchID, l.Platform, l.Name, l.Price, l.Currency, l.Seller,
			l.Rating, l.ReviewCount, string(l.Availability), l.Shipping, l.URL, l.ImageURL,
			l.ExtractedAt,
		)
		count++
	}
	return count
}

func (pw *PostgresWriter) Close() error {
	pw.pool.Close()
	return nil
}

// Validate fails when no listing reached the table. Re-exporting listings
// already stored, e.g. a search served from cache, is not a failure.
func (pw *PostgresWriter) Validate() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if pw.written == 0 {
		return fmt.Errorf("no listings written to scraped_products")
	}
	return nil
}
