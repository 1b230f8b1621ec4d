package surgeguard

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const alertSchema = `
CREATE TABLE IF NOT EXISTS alerts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	address TEXT NOT NULL,
	recorded TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_recorded ON alerts (recorded);
`

// SQLiteAlertStore archives alerts in a local SQLite database.
type SQLiteAlertStore struct {
	db *sqlx.DB
}

func NewSQLiteAlertStore(path string) (*SQLiteAlertStore, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite archive: %w", err)
	}
	// sqlite allows one writer; a second pooled connection would also see a
	// different database entirely when path is ":memory:"
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(alertSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create alerts table: %w", err)
	}
	return &SQLiteAlertStore{db: db}, nil
}

func (s *SQLiteAlertStore) SaveAlert(ctx context.Context, rec AlertRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (address, recorded) VALUES (?, ?)`,
		rec.Address, rec.Recorded)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *SQLiteAlertStore) RecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []AlertRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT id, address, recorded FROM alerts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select alerts: %w", err)
	}
	return records, nil
}

func (s *SQLiteAlertStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteAlertStore) Close() error { return s.db.Close() }
