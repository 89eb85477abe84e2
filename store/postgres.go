package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/use-agent/trendscraper/models"
)

// DBPool abstracts pgxpool.Pool so pgxmock can stand in for it in tests.
type DBPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS trends (
    id          TEXT PRIMARY KEY,
    trend_1     TEXT,
    trend_2     TEXT,
    trend_3     TEXT,
    trend_4     TEXT,
    trend_5     TEXT,
    captured_at TIMESTAMPTZ NOT NULL,
    ip_address  TEXT
);
CREATE INDEX IF NOT EXISTS trends_captured_at_idx ON trends (captured_at DESC);
`

const (
	pgInsert = `
        INSERT INTO trends (id, trend_1, trend_2, trend_3, trend_4, trend_5, captured_at, ip_address)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	pgSelectByID = `
        SELECT id, trend_1, trend_2, trend_3, trend_4, trend_5, captured_at, ip_address
        FROM trends WHERE id = $1`

	pgSelectLatest = `
        SELECT id, trend_1, trend_2, trend_3, trend_4, trend_5, captured_at, ip_address
        FROM trends ORDER BY captured_at DESC LIMIT $1`
)

// Postgres stores records in PostgreSQL.
type Postgres struct {
	pool DBPool
}

// OpenPostgres connects a pool, verifies it and creates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewPostgres(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool DBPool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the trends table if it does not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *Postgres) Save(ctx context.Context, r *models.TrendRecord) error {
	tag, err := s.pool.Exec(ctx, pgInsert,
		r.ID, r.Trend1, r.Trend2, r.Trend3, r.Trend4, r.Trend5,
		r.Timestamp.UTC(), r.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trend record: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("insert trend record: expected 1 row, got %d", tag.RowsAffected())
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id string) (*models.TrendRecord, error) {
	r, err := scanRecord(s.pool.QueryRow(ctx, pgSelectByID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read trend record: %w", err)
	}
	return r, nil
}

func (s *Postgres) Latest(ctx context.Context, limit int) ([]*models.TrendRecord, error) {
	rows, err := s.pool.Query(ctx, pgSelectLatest, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list trend records: %w", err)
	}
	defer rows.Close()

	out := make([]*models.TrendRecord, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trend record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list trend records: %w", err)
	}
	return out, nil
}

func (s *Postgres) Close() {
	s.pool.Close()
}

// rowScanner is satisfied by pgx.Row, pgx.Rows and *sql.Row(s).
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.TrendRecord, error) {
	var r models.TrendRecord
	if err := row.Scan(
		&r.ID, &r.Trend1, &r.Trend2, &r.Trend3, &r.Trend4, &r.Trend5,
		&r.Timestamp, &r.IPAddress,
	); err != nil {
		return nil, err
	}
	r.Timestamp = r.Timestamp.UTC()
	return &r, nil
}
