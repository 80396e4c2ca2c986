package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed journal.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS connections (
		conn_id TEXT PRIMARY KEY,
		peer_addr TEXT NOT NULL,
		opened_at INTEGER NOT NULL,
		closed_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_connections_closed ON connections(closed_at);

	CREATE TABLE IF NOT EXISTS directives (
		directive_id TEXT PRIMARY KEY,
		conn_id TEXT NOT NULL,
		npc_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		stream_id TEXT,
		priority INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error_message TEXT,
		created_at INTEGER NOT NULL,
		resolved_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_directives_status ON directives(status);
	CREATE INDEX IF NOT EXISTS idx_directives_created ON directives(created_at);

	CREATE TABLE IF NOT EXISTS anomalies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conn_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		npc_id TEXT,
		directive_id TEXT,
		stream_id TEXT,
		detail TEXT,
		observed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_anomalies_observed ON anomalies(observed_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordConnection journals a new peer connection.
func (s *SQLiteStore) RecordConnection(ctx context.Context, connID, peerAddr string, at time.Time) error {
	query := `INSERT OR REPLACE INTO connections (conn_id, peer_addr, opened_at, closed_at) VALUES (?, ?, ?, NULL)`
	if _, err := s.db.ExecContext(ctx, query, connID, peerAddr, at.Unix()); err != nil {
		return fmt.Errorf("record connection: %w", err)
	}
	return nil
}

// CloseConnection marks a connection closed.
func (s *SQLiteStore) CloseConnection(ctx context.Context, connID string, at time.Time) error {
	query := `UPDATE connections SET closed_at = ? WHERE conn_id = ?`
	if _, err := s.db.ExecContext(ctx, query, at.Unix(), connID); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}

// RecordDirective journals a dispatched directive as pending.
func (s *SQLiteStore) RecordDirective(ctx context.Context, rec DirectiveRecord) error {
	query := `
		INSERT INTO directives (directive_id, conn_id, npc_id, kind, stream_id, priority, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.ConnID, rec.NpcID, rec.Kind,
		nullable(rec.StreamID), rec.Priority, StatusPending, rec.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("record directive: %w", err)
	}
	return nil
}

// ResolveDirective finalizes a directive's status.
func (s *SQLiteStore) ResolveDirective(ctx context.Context, directiveID, status, errMsg string, at time.Time) error {
	query := `
		UPDATE directives
		SET status = ?, error_message = ?, resolved_at = ?
		WHERE directive_id = ? AND status = ?`
	if _, err := s.db.ExecContext(ctx, query, status, nullable(errMsg), at.Unix(), directiveID, StatusPending); err != nil {
		return fmt.Errorf("resolve directive: %w", err)
	}
	return nil
}

// RecordAnomaly journals one protocol anomaly.
func (s *SQLiteStore) RecordAnomaly(ctx context.Context, rec AnomalyRecord) error {
	query := `
		INSERT INTO anomalies (conn_id, kind, npc_id, directive_id, stream_id, detail, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.ConnID, rec.Kind, nullable(rec.NpcID), nullable(rec.DirectiveID),
		nullable(rec.StreamID), nullable(rec.Detail), rec.At.Unix())
	if err != nil {
		return fmt.Errorf("record anomaly: %w", err)
	}
	return nil
}

// Stats aggregates journal counters.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Directives: make(map[string]int64),
		Anomalies:  make(map[string]int64),
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN closed_at IS NULL THEN 1 ELSE 0 END), 0) FROM connections`)
	if err := row.Scan(&stats.Connections, &stats.OpenConnections); err != nil {
		return nil, fmt.Errorf("scan connection stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM directives GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query directive stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan directive stats: %w", err)
		}
		stats.Directives[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate directive stats: %w", err)
	}

	anomalyRows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM anomalies GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("query anomaly stats: %w", err)
	}
	defer anomalyRows.Close()
	for anomalyRows.Next() {
		var kind string
		var count int64
		if err := anomalyRows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan anomaly stats: %w", err)
		}
		stats.Anomalies[kind] = count
	}
	if err := anomalyRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate anomaly stats: %w", err)
	}

	return stats, nil
}

// PurgeBefore deletes old journal rows. Pending directives and open
// connections are never purged regardless of age.
func (s *SQLiteStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	ts := cutoff.Unix()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM connections WHERE closed_at IS NOT NULL AND closed_at < ?`, ts)
	if err != nil {
		return total, fmt.Errorf("purge connections: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}

	res, err = s.db.ExecContext(ctx,
		`DELETE FROM directives WHERE status != ? AND resolved_at IS NOT NULL AND resolved_at < ?`, StatusPending, ts)
	if err != nil {
		return total, fmt.Errorf("purge directives: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}

	res, err = s.db.ExecContext(ctx, `DELETE FROM anomalies WHERE observed_at < ?`, ts)
	if err != nil {
		return total, fmt.Errorf("purge anomalies: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}

	return total, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
