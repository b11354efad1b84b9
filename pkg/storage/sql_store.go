package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// SQLStore keeps snapshots in a relational table. It runs on postgres and on
// sqlite; queries are written with ? placeholders and rebound per driver.
type SQLStore struct {
	db *sqlx.DB
}

// OpenSQLStore connects with the named driver and prepares the schema
func OpenSQLStore(driverName, dsn string) (*SQLStore, error) {
	if driverName == "" {
		driverName = "postgres"
	}
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	store, err := NewSQLStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an existing connection and creates the table if missing
func NewSQLStore(db *sqlx.DB) (*SQLStore, error) {
	query := `
		CREATE TABLE IF NOT EXISTS onboarding_snapshots (
			session_key TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`
	if _, err := db.Exec(query); err != nil {
		return nil, fmt.Errorf("failed to create snapshots table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Load(ctx context.Context, key string) ([]byte, error) {
	var payload string
	query := s.db.Rebind("SELECT payload FROM onboarding_snapshots WHERE session_key = ?")
	err := s.db.GetContext(ctx, &payload, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return []byte(payload), nil
}

func (s *SQLStore) Save(ctx context.Context, key string, data []byte) error {
	query := s.db.Rebind(`
		INSERT INTO onboarding_snapshots (session_key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (session_key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, query, key, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
