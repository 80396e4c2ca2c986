package policy

import (
	"context"
	"testing"

	"github.com/npcsociety/npcd/internal/protocol"
)

func TestGreeterRepliesToChat(t *testing.T) {
	t.Parallel()

	g := NewGreeter()
	intents := g.OnChat(context.Background(), &protocol.ChatObservation{
		NpcID:      "miner_01",
		PlayerName: "Steve",
		Message:    "Hey miner, can you find some diamonds?",
	})

	if len(intents) != 1 || intents[0].Speak == nil {
		t.Fatalf("expected one speak intent, got %+v", intents)
	}
	if intents[0].NpcID != "miner_01" {
		t.Errorf("speak targets wrong npc: %q", intents[0].NpcID)
	}
	if intents[0].Speak.Text != "Hello, Steve! Nice to meet you." {
		t.Errorf("unexpected reply text: %q", intents[0].Speak.Text)
	}
	if intents[0].Speak.Emotion != "friendly" {
		t.Errorf("unexpected emotion: %q", intents[0].Speak.Emotion)
	}
}

func TestMinerMovesOnInterval(t *testing.T) {
	t.Parallel()

	m := NewMiner()
	npc := &protocol.NpcSnapshot{
		NpcID:    "miner_01",
		Position: &protocol.Position{World: "world", X: 100.5, Y: 64, Z: -200.5},
	}

	// Off-interval ticks stay quiet.
	if intents := m.OnWorldTick(context.Background(), &protocol.WorldTick{ServerTick: 49, Npcs: []*protocol.NpcSnapshot{npc}}); len(intents) != 0 {
		t.Errorf("tick 49 produced intents: %+v", intents)
	}

	intents := m.OnWorldTick(context.Background(), &protocol.WorldTick{ServerTick: 50, Npcs: []*protocol.NpcSnapshot{npc}})
	if len(intents) != 1 || intents[0].Move == nil {
		t.Fatalf("expected one move intent at tick 50, got %+v", intents)
	}
	target := intents[0].Move.Target
	if target.X != 105.5 || target.Y != 64 || target.Z != -200.5 {
		t.Errorf("unexpected move target: %+v", target)
	}

	// No NPCs, nothing to move.
	if intents := m.OnWorldTick(context.Background(), &protocol.WorldTick{ServerTick: 100}); len(intents) != 0 {
		t.Errorf("empty snapshot produced intents: %+v", intents)
	}
}

func TestMinerScansWhenIdle(t *testing.T) {
	t.Parallel()

	m := NewMiner()
	intents := m.OnEvent(context.Background(), &protocol.EventObservation{
		NpcID:     "miner_01",
		EventType: "npc_idle",
	})
	if len(intents) != 1 || intents[0].ScanBlocks == nil {
		t.Fatalf("expected one scan intent, got %+v", intents)
	}
	if intents[0].ScanBlocks.Radius != 16 {
		t.Errorf("unexpected scan radius: %d", intents[0].ScanBlocks.Radius)
	}

	if intents := m.OnEvent(context.Background(), &protocol.EventObservation{EventType: "explosion"}); len(intents) != 0 {
		t.Errorf("non-idle event produced intents: %+v", intents)
	}
}

func TestCompositeOrdersIntents(t *testing.T) {
	t.Parallel()

	c := NewComposite(NewGreeter(), NewMiner())
	intents := c.OnChat(context.Background(), &protocol.ChatObservation{
		NpcID:      "miner_01",
		PlayerName: "Steve",
		Message:    "hi",
	})
	// Greeter speaks, miner stays quiet.
	if len(intents) != 1 || intents[0].Speak == nil {
		t.Fatalf("expected greeter's speak only, got %+v", intents)
	}
}

func TestHistoryRing(t *testing.T) {
	t.Parallel()

	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Add(Observation{NpcID: "miner_01", Kind: "chat", Detail: string(rune('a' + i))})
	}

	if h.Len() != 3 {
		t.Fatalf("expected capped length 3, got %d", h.Len())
	}
	recent := h.Recent(2)
	if len(recent) != 2 || recent[0].Detail != "e" || recent[1].Detail != "d" {
		t.Errorf("unexpected recent order: %+v", recent)
	}
	// Asking for more than stored returns what exists.
	if got := h.Recent(10); len(got) != 3 {
		t.Errorf("Recent(10) returned %d entries", len(got))
	}
}
