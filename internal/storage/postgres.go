package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimezsa/leadcli/internal/models"
)

const (
	connectTimeout = 10 * time.Second

	schemaSQL = `
	CREATE TABLE IF NOT EXISTS leads (
		id BIGSERIAL PRIMARY KEY,
		business_name TEXT NOT NULL,
		category TEXT,
		email TEXT,
		phone TEXT,
		street TEXT,
		city TEXT,
		state TEXT,
		zip TEXT,
		website TEXT,
		link TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_leads_state ON leads(state);
	CREATE INDEX IF NOT EXISTS idx_leads_city ON leads(city);
	`

	insertSQL = `
	INSERT INTO leads (business_name, category, email, phone, street, city, state, zip, website, link)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (link) DO NOTHING;
	`
)

// PostgresWriter stores leads keyed by their directory link.
type PostgresWriter struct {
	pool *pgxpool.Pool
}

func NewPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresWriter{pool: pool}, nil
}

func (w *PostgresWriter) Close() {
	if w.pool != nil {
		w.pool.Close()
	}
}

func (w *PostgresWriter) EnsureSchema(ctx context.Context) error {
	if _, err := w.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// WriteBatch inserts leads and returns how many rows were new. Leads without
// a link are skipped.
func (w *PostgresWriter) WriteBatch(ctx context.Context, leads []models.Lead) (int, error) {
	batch := &pgx.Batch{}
	for _, lead := range leads {
		args, ok := leadRow(lead)
		if !ok {
			continue
		}
		batch.Queue(insertSQL, args...)
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	results := w.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("batch insert failed at row %d: %w", i, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func leadRow(lead models.Lead) ([]any, bool) {
	link := strings.TrimSpace(lead.Link)
	if link == "" {
		return nil, false
	}
	return []any{
		strings.TrimSpace(lead.BusinessName),
		lead.Category(),
		lead.Email,
		lead.Phone,
		lead.Street,
		lead.City,
		lead.State,
		lead.Zip,
		lead.Website,
		link,
	}, true
}
