package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/npcsociety/npcd/internal/engine"
	"github.com/npcsociety/npcd/internal/protocol"
)

// orderRepo records the order journal operations are applied in. The
// first directive insert is delayed so an unordered observer would let
// the resolve overtake it.
type orderRepo struct {
	mu          sync.Mutex
	ops         []string
	recordDelay time.Duration
}

func (r *orderRepo) append(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *orderRepo) applied() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ops...)
}

func (r *orderRepo) RecordConnection(ctx context.Context, connID, peerAddr string, at time.Time) error {
	r.append("open:" + connID)
	return nil
}

func (r *orderRepo) CloseConnection(ctx context.Context, connID string, at time.Time) error {
	r.append("close:" + connID)
	return nil
}

func (r *orderRepo) RecordDirective(ctx context.Context, rec DirectiveRecord) error {
	time.Sleep(r.recordDelay)
	r.append("record:" + rec.ID)
	return nil
}

func (r *orderRepo) ResolveDirective(ctx context.Context, directiveID, status, errMsg string, at time.Time) error {
	r.append("resolve:" + directiveID + ":" + status)
	return nil
}

func (r *orderRepo) RecordAnomaly(ctx context.Context, rec AnomalyRecord) error {
	r.append("anomaly:" + rec.Kind)
	return nil
}

func (r *orderRepo) Stats(ctx context.Context) (*Stats, error) { return &Stats{}, nil }

func (r *orderRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (r *orderRepo) Ping(ctx context.Context) error { return nil }

func (r *orderRepo) Close() error { return nil }

func TestObserverPreservesWriteOrder(t *testing.T) {
	repo := &orderRepo{recordDelay: 50 * time.Millisecond}
	obs := NewObserver(repo)

	d := &engine.Directive{ID: "dir-1", NpcID: "npc-1", Kind: "move"}
	obs.DirectiveDispatched("conn-1", d)
	obs.DirectiveResolved("conn-1", d, &protocol.ActionResult{DirectiveID: "dir-1", Success: true})

	if err := obs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	want := []string{"record:dir-1", "resolve:dir-1:ok"}
	got := repo.applied()
	if len(got) != len(want) {
		t.Fatalf("applied ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("applied ops = %v, want %v", got, want)
		}
	}
}

func TestObserverTimeoutAfterDispatch(t *testing.T) {
	repo := &orderRepo{recordDelay: 20 * time.Millisecond}
	obs := NewObserver(repo)

	d := &engine.Directive{ID: "dir-2", NpcID: "npc-1", Kind: "break_block"}
	obs.DirectiveDispatched("conn-1", d)
	obs.DirectiveTimedOut("conn-1", d)

	if err := obs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := repo.applied()
	if len(got) != 2 || got[0] != "record:dir-2" || got[1] != "resolve:dir-2:timed_out" {
		t.Fatalf("applied ops = %v, want [record:dir-2 resolve:dir-2:timed_out]", got)
	}
}

func TestObserverCloseIdempotent(t *testing.T) {
	obs := NewObserver(&orderRepo{})
	if err := obs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := obs.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if obs.Dropped() != 0 {
		t.Errorf("Dropped = %d, want 0", obs.Dropped())
	}
}
