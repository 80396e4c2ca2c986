package engine

import (
	"errors"
	"time"

	"github.com/npcsociety/npcd/internal/protocol"
)

// ErrIDCollision is returned by Register when a directive id is already
// pending. Ids come from a monotonic process-wide generator, so a
// collision indicates a programming error; it is fatal to that
// directive only, never to the session.
var ErrIDCollision = errors.New("directive id already pending")

// Directive is one outbound instruction awaiting its result.
type Directive struct {
	ID       string
	NpcID    string
	Priority int

	// Kind is the action variant name, or "speak" for speech directives.
	Kind string

	// StreamID links a speech directive to its audio stream, when one
	// was opened. Empty for non-speech directives and for speech sent
	// to peers without voice support.
	StreamID string
}

// pendingDirective is a tracked entry awaiting resolution.
type pendingDirective struct {
	directive *Directive
	sentAt    time.Time
}

// OutcomeKind classifies the result of a Resolve call.
type OutcomeKind int

const (
	// OutcomeMatched means the result correlated to a pending directive,
	// which has been removed from the tracker.
	OutcomeMatched OutcomeKind = iota
	// OutcomeOrphaned means no pending directive carried the result's
	// id. The tracker state is unchanged.
	OutcomeOrphaned
)

// Outcome is the correlation verdict for one ActionResult.
type Outcome struct {
	Kind      OutcomeKind
	Directive *Directive // nil when orphaned
	Result    *protocol.ActionResult
}

// Tracker records pending directives and matches incoming results to
// them by id. It is confined to a single session's processing
// goroutine and is deliberately unsynchronized.
type Tracker struct {
	pending map[string]*pendingDirective
	now     func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		pending: make(map[string]*pendingDirective),
		now:     time.Now,
	}
}

// Register inserts a pending directive. Returns ErrIDCollision if the
// id is already pending; the tracker is left unchanged in that case.
func (t *Tracker) Register(d *Directive) error {
	if _, exists := t.pending[d.ID]; exists {
		return ErrIDCollision
	}
	t.pending[d.ID] = &pendingDirective{directive: d, sentAt: t.now()}
	return nil
}

// Resolve correlates a result with its pending directive. A match
// removes the entry; an unknown id leaves the tracker untouched and
// yields an orphaned outcome.
func (t *Tracker) Resolve(result *protocol.ActionResult) Outcome {
	entry, ok := t.pending[result.DirectiveID]
	if !ok {
		return Outcome{Kind: OutcomeOrphaned, Result: result}
	}
	delete(t.pending, result.DirectiveID)
	return Outcome{Kind: OutcomeMatched, Directive: entry.directive, Result: result}
}

// Sweep evicts directives that have been pending longer than maxAge
// and returns them. Each timed-out directive is reported exactly once;
// a later result for an evicted id resolves as orphaned.
func (t *Tracker) Sweep(maxAge time.Duration) []*Directive {
	cutoff := t.now().Add(-maxAge)
	var evicted []*Directive
	for id, entry := range t.pending {
		if entry.sentAt.Before(cutoff) {
			evicted = append(evicted, entry.directive)
			delete(t.pending, id)
		}
	}
	return evicted
}

// Len returns the number of pending directives.
func (t *Tracker) Len() int {
	return len(t.pending)
}

// Clear discards all pending state. Called on connection close.
func (t *Tracker) Clear() {
	t.pending = make(map[string]*pendingDirective)
}
