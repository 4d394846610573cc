package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

const schema = `
CREATE TABLE IF NOT EXISTS wa_sessions (
	instance_id TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	updated_at  TIMESTAMP NOT NULL
)`

// SQLStore implements Store on database/sql. It supports the "sqlite3" and
// "postgres" drivers.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// Open connects to the database, verifies the connection and creates the
// schema. Connection failures are reported as ErrStoreUnavailable.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch driver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", ErrStoreUnavailable, err)
	}
	if driver == "sqlite3" {
		// A single writer avoids SQLITE_BUSY under concurrent upserts.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s := &SQLStore{
		db:     db,
		driver: driver,
		logger: logger.With("component", "store"),
	}
	s.logger.Info("session store ready", "driver", driver)
	return s, nil
}

// rebind rewrites ? placeholders into $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ListInstanceIDs implements Store.
func (s *SQLStore) ListInstanceIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT instance_id FROM wa_sessions ORDER BY instance_id")
	if err != nil {
		return nil, fmt.Errorf("%w: listing sessions: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertStatus implements Store.
func (s *SQLStore) UpsertStatus(ctx context.Context, instanceID string, status Status) error {
	query := s.rebind(`
		INSERT INTO wa_sessions (instance_id, status, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (instance_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, query, instanceID, string(status), time.Now().UTC()); err != nil {
		return fmt.Errorf("upserting session %s: %w", instanceID, err)
	}
	return nil
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, instanceID string) (*Record, error) {
	query := s.rebind("SELECT instance_id, status, updated_at FROM wa_sessions WHERE instance_id = ?")
	var (
		rec    Record
		status string
	)
	err := s.db.QueryRowContext(ctx, query, instanceID).Scan(&rec.InstanceID, &status, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", instanceID, err)
	}
	rec.Status = Status(status)
	return &rec, nil
}

// Delete implements Store.
func (s *SQLStore) Delete(ctx context.Context, instanceID string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM wa_sessions WHERE instance_id = ?"), instanceID); err != nil {
		return fmt.Errorf("deleting session %s: %w", instanceID, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
