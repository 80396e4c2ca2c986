// Package engine implements the directive-response correlation core:
// per-connection sessions, pending-directive tracking, workflow
// sequencing, and audio stream correlation.
package engine

import (
	"github.com/npcsociety/npcd/internal/protocol"
)

// AnomalyKind classifies session-local protocol anomalies. All of
// these are non-fatal: the anomaly is reported and the session keeps
// processing. Transport errors are terminal and handled by the
// transport layer, not here.
type AnomalyKind string

const (
	AnomalySequenceViolation AnomalyKind = "sequence_violation"
	AnomalyUnknownStream     AnomalyKind = "unknown_stream"
	AnomalyOrphanedResult    AnomalyKind = "orphaned_result"
	AnomalyTimedOutDirective AnomalyKind = "timed_out_directive"
	AnomalyIDCollision       AnomalyKind = "id_collision"
	AnomalyProtocol          AnomalyKind = "protocol_anomaly"
)

// Anomaly describes one reported protocol irregularity.
type Anomaly struct {
	Kind        AnomalyKind
	NpcID       string
	DirectiveID string
	StreamID    string
	Detail      string
}

// Observer receives session lifecycle notifications for logging and
// journaling. Implementations must not block the session's processing
// goroutine for long; journal writes should be queued or bounded.
type Observer interface {
	ConnectionOpened(connID, peerAddr string)
	ConnectionClosed(connID string)
	DirectiveDispatched(connID string, d *Directive)
	DirectiveResolved(connID string, d *Directive, result *protocol.ActionResult)
	DirectiveTimedOut(connID string, d *Directive)
	AnomalyReported(connID string, a Anomaly)
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) ConnectionOpened(string, string)                              {}
func (NopObserver) ConnectionClosed(string)                                      {}
func (NopObserver) DirectiveDispatched(string, *Directive)                       {}
func (NopObserver) DirectiveResolved(string, *Directive, *protocol.ActionResult) {}
func (NopObserver) DirectiveTimedOut(string, *Directive)                         {}
func (NopObserver) AnomalyReported(string, Anomaly)                              {}
