package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/use-agent/trendscraper/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS trends (
    id          TEXT PRIMARY KEY,
    trend_1     TEXT,
    trend_2     TEXT,
    trend_3     TEXT,
    trend_4     TEXT,
    trend_5     TEXT,
    captured_at INTEGER NOT NULL,
    ip_address  TEXT
);
CREATE INDEX IF NOT EXISTS trends_captured_at_idx ON trends (captured_at DESC);
`

// SQLite stores records in an embedded SQLite database. captured_at holds
// Unix microseconds.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database file at path (":memory:" for a private
// in-memory db) and creates the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// One connection: an in-memory db is per-connection, and sqlite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Save(ctx context.Context, r *models.TrendRecord) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO trends (id, trend_1, trend_2, trend_3, trend_4, trend_5, captured_at, ip_address)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, nullable(r.Trend1), nullable(r.Trend2), nullable(r.Trend3), nullable(r.Trend4), nullable(r.Trend5),
		r.Timestamp.UnixMicro(), nullable(r.IPAddress),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trend record: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*models.TrendRecord, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, trend_1, trend_2, trend_3, trend_4, trend_5, captured_at, ip_address
        FROM trends WHERE id = ?`, id)

	r, err := scanSQLiteRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read trend record: %w", err)
	}
	return r, nil
}

func (s *SQLite) Latest(ctx context.Context, limit int) ([]*models.TrendRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, trend_1, trend_2, trend_3, trend_4, trend_5, captured_at, ip_address
        FROM trends ORDER BY captured_at DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list trend records: %w", err)
	}
	defer rows.Close()

	out := make([]*models.TrendRecord, 0)
	for rows.Next() {
		r, err := scanSQLiteRecord(rows)
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

func (s *SQLite) Close() {
	_ = s.db.Close()
}

func scanSQLiteRecord(row rowScanner) (*models.TrendRecord, error) {
	var (
		r      models.TrendRecord
		micros int64
	)
	if err := row.Scan(
		&r.ID, &r.Trend1, &r.Trend2, &r.Trend3, &r.Trend4, &r.Trend5,
		&micros, &r.IPAddress,
	); err != nil {
		return nil, err
	}
	r.Timestamp = time.UnixMicro(micros).UTC()
	return &r, nil
}

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
