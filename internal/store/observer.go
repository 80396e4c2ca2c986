package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/npcsociety/npcd/internal/engine"
	"github.com/npcsociety/npcd/internal/protocol"
)

const (
	journalWriteTimeout = 5 * time.Second
	journalQueueSize    = 1024
)

// Observer journals engine notifications. Writes are queued and a
// single worker goroutine applies them in notification order, so a
// directive's pending INSERT always lands before its resolving UPDATE.
// A full queue drops the write and counts the drop; journaling must
// never stall the session goroutine.
type Observer struct {
	repo Repository

	queue   chan journalOp
	done    chan struct{}
	dropped atomic.Uint64
	closeMu sync.Mutex
	closed  bool
}

type journalOp struct {
	op string
	fn func(ctx context.Context) error
}

// NewObserver creates a journal-backed engine observer.
func NewObserver(repo Repository) *Observer {
	o := &Observer{
		repo:  repo,
		queue: make(chan journalOp, journalQueueSize),
		done:  make(chan struct{}),
	}
	go o.run()
	return o
}

// Dropped returns the number of writes lost to a full queue.
func (o *Observer) Dropped() uint64 {
	return o.dropped.Load()
}

// Close stops the worker after draining queued writes. Idempotent.
func (o *Observer) Close() error {
	o.closeMu.Lock()
	defer o.closeMu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	close(o.queue)
	<-o.done
	return nil
}

func (o *Observer) enqueue(op string, fn func(ctx context.Context) error) {
	o.closeMu.Lock()
	defer o.closeMu.Unlock()
	if o.closed {
		return
	}
	select {
	case o.queue <- journalOp{op: op, fn: fn}:
	default:
		o.dropped.Add(1)
		slog.Warn("journal queue full, write dropped", "op", op)
	}
}

func (o *Observer) run() {
	defer close(o.done)
	for j := range o.queue {
		ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
		if err := j.fn(ctx); err != nil {
			slog.Warn("journal write failed", "op", j.op, "error", err)
		}
		cancel()
	}
}

// ConnectionOpened journals a new connection.
func (o *Observer) ConnectionOpened(connID, peerAddr string) {
	now := time.Now()
	o.enqueue("record_connection", func(ctx context.Context) error {
		return o.repo.RecordConnection(ctx, connID, peerAddr, now)
	})
}

// ConnectionClosed marks the connection closed.
func (o *Observer) ConnectionClosed(connID string) {
	now := time.Now()
	o.enqueue("close_connection", func(ctx context.Context) error {
		return o.repo.CloseConnection(ctx, connID, now)
	})
}

// DirectiveDispatched journals a pending directive.
func (o *Observer) DirectiveDispatched(connID string, d *engine.Directive) {
	rec := DirectiveRecord{
		ID:        d.ID,
		ConnID:    connID,
		NpcID:     d.NpcID,
		Kind:      d.Kind,
		StreamID:  d.StreamID,
		Priority:  d.Priority,
		CreatedAt: time.Now(),
	}
	o.enqueue("record_directive", func(ctx context.Context) error {
		return o.repo.RecordDirective(ctx, rec)
	})
}

// DirectiveResolved finalizes a directive's journal status.
func (o *Observer) DirectiveResolved(_ string, d *engine.Directive, result *protocol.ActionResult) {
	status := StatusOK
	if !result.Success {
		status = StatusFailed
	}
	id, errMsg, now := d.ID, result.ErrorMessage, time.Now()
	o.enqueue("resolve_directive", func(ctx context.Context) error {
		return o.repo.ResolveDirective(ctx, id, status, errMsg, now)
	})
}

// DirectiveTimedOut marks a swept directive timed out.
func (o *Observer) DirectiveTimedOut(_ string, d *engine.Directive) {
	id, now := d.ID, time.Now()
	o.enqueue("timeout_directive", func(ctx context.Context) error {
		return o.repo.ResolveDirective(ctx, id, StatusTimedOut, "", now)
	})
}

// AnomalyReported journals one anomaly.
func (o *Observer) AnomalyReported(connID string, a engine.Anomaly) {
	rec := AnomalyRecord{
		ConnID:      connID,
		Kind:        string(a.Kind),
		NpcID:       a.NpcID,
		DirectiveID: a.DirectiveID,
		StreamID:    a.StreamID,
		Detail:      a.Detail,
		At:          time.Now(),
	}
	o.enqueue("record_anomaly", func(ctx context.Context) error {
		return o.repo.RecordAnomaly(ctx, rec)
	})
}
