// Package store provides the daemon's journal: connections, dispatched
// directives, and protocol anomalies, persisted for the stats surface
// and offline debugging.
package store

import (
	"context"
	"time"
)

// Directive lifecycle states in the journal.
const (
	StatusPending  = "pending"
	StatusOK       = "ok"
	StatusFailed   = "failed"
	StatusTimedOut = "timed_out"
)

// DirectiveRecord is one journaled directive dispatch.
type DirectiveRecord struct {
	ID        string
	ConnID    string
	NpcID     string
	Kind      string
	StreamID  string
	Priority  int
	CreatedAt time.Time
}

// AnomalyRecord is one journaled protocol anomaly.
type AnomalyRecord struct {
	ConnID      string
	Kind        string
	NpcID       string
	DirectiveID string
	StreamID    string
	Detail      string
	At          time.Time
}

// Stats summarizes the journal for the stats endpoint.
type Stats struct {
	Connections     int64            `json:"connections"`
	OpenConnections int64            `json:"open_connections"`
	Directives      map[string]int64 `json:"directives"`
	Anomalies       map[string]int64 `json:"anomalies"`
}

// Repository defines the journal persistence interface.
type Repository interface {
	// RecordConnection journals a new peer connection.
	RecordConnection(ctx context.Context, connID, peerAddr string, at time.Time) error

	// CloseConnection marks a connection closed.
	CloseConnection(ctx context.Context, connID string, at time.Time) error

	// RecordDirective journals a dispatched directive as pending.
	RecordDirective(ctx context.Context, rec DirectiveRecord) error

	// ResolveDirective finalizes a directive's status.
	ResolveDirective(ctx context.Context, directiveID, status, errMsg string, at time.Time) error

	// RecordAnomaly journals one protocol anomaly.
	RecordAnomaly(ctx context.Context, rec AnomalyRecord) error

	// Stats aggregates journal counters.
	Stats(ctx context.Context) (*Stats, error)

	// PurgeBefore deletes closed connections, resolved directives, and
	// anomalies older than the cutoff. Returns rows deleted.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
