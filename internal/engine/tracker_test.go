package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/npcsociety/npcd/internal/protocol"
)

func TestTrackerRegisterResolve(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	d := &Directive{ID: "dir-1", NpcID: "miner_01", Kind: "scan_blocks"}

	if err := tr.Register(d); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if tr.Len() != 1 {
		t.Fatalf("expected 1 pending, got %d", tr.Len())
	}

	outcome := tr.Resolve(&protocol.ActionResult{DirectiveID: "dir-1", NpcID: "miner_01", Success: true})
	if outcome.Kind != OutcomeMatched {
		t.Fatalf("expected matched outcome, got %v", outcome.Kind)
	}
	if outcome.Directive != d {
		t.Errorf("matched wrong directive: %+v", outcome.Directive)
	}
	if tr.Len() != 0 {
		t.Errorf("pending set not emptied, len=%d", tr.Len())
	}

	// Exactly one match per directive: a second resolve is orphaned.
	again := tr.Resolve(&protocol.ActionResult{DirectiveID: "dir-1"})
	if again.Kind != OutcomeOrphaned {
		t.Errorf("expected orphaned on re-resolve, got %v", again.Kind)
	}
}

func TestTrackerResolveUnknownIDDoesNotMutate(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	if err := tr.Register(&Directive{ID: "dir-5"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	outcome := tr.Resolve(&protocol.ActionResult{DirectiveID: "dir-never-registered"})
	if outcome.Kind != OutcomeOrphaned {
		t.Fatalf("expected orphaned outcome, got %v", outcome.Kind)
	}
	if outcome.Directive != nil {
		t.Errorf("orphaned outcome must carry no directive")
	}
	if tr.Len() != 1 {
		t.Errorf("pending set mutated by orphaned resolve, len=%d", tr.Len())
	}
}

func TestTrackerIDCollision(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	if err := tr.Register(&Directive{ID: "dir-7", Kind: "move"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	err := tr.Register(&Directive{ID: "dir-7", Kind: "break_block"})
	if !errors.Is(err, ErrIDCollision) {
		t.Fatalf("expected ErrIDCollision, got %v", err)
	}
	if tr.Len() != 1 {
		t.Errorf("collision mutated pending set, len=%d", tr.Len())
	}

	// The original entry survives the collision.
	outcome := tr.Resolve(&protocol.ActionResult{DirectiveID: "dir-7", Success: true})
	if outcome.Kind != OutcomeMatched || outcome.Directive.Kind != "move" {
		t.Errorf("collision evicted the original entry: %+v", outcome)
	}
}

func TestTrackerSweepEvictsOldDirectives(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	now := time.Now()
	tr.now = func() time.Time { return now }

	if err := tr.Register(&Directive{ID: "dir-old"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tr.now = func() time.Time { return now.Add(45 * time.Second) }
	if err := tr.Register(&Directive{ID: "dir-fresh"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	evicted := tr.Sweep(30 * time.Second)
	if len(evicted) != 1 || evicted[0].ID != "dir-old" {
		t.Fatalf("expected [dir-old] evicted, got %+v", evicted)
	}
	if tr.Len() != 1 {
		t.Errorf("expected 1 pending after sweep, got %d", tr.Len())
	}

	// A timed-out directive is reported exactly once.
	if again := tr.Sweep(30 * time.Second); len(again) != 0 {
		t.Errorf("second sweep re-evicted: %+v", again)
	}

	// A late result for the evicted id resolves as orphaned.
	outcome := tr.Resolve(&protocol.ActionResult{DirectiveID: "dir-old", Success: true})
	if outcome.Kind != OutcomeOrphaned {
		t.Errorf("expected orphaned after eviction, got %v", outcome.Kind)
	}
}

func TestTrackerClear(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	for _, id := range []string{"dir-1", "dir-2", "dir-3"} {
		if err := tr.Register(&Directive{ID: id}); err != nil {
			t.Fatalf("Register(%s) failed: %v", id, err)
		}
	}

	tr.Clear()
	if tr.Len() != 0 {
		t.Errorf("Clear left %d pending", tr.Len())
	}
	if outcome := tr.Resolve(&protocol.ActionResult{DirectiveID: "dir-2"}); outcome.Kind != OutcomeOrphaned {
		t.Errorf("expected orphaned after clear, got %v", outcome.Kind)
	}
}
