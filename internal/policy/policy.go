// Package policy provides reference decision strategies for the daemon.
//
// A policy turns observations into directive intents; the engine owns
// id assignment, tracking, and sequencing. The implementations here
// reproduce the reference daemon's observable behavior and serve as
// starting points for real deployments, which plug in their own
// engine.Policy.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/npcsociety/npcd/internal/engine"
	"github.com/npcsociety/npcd/internal/protocol"
)

// Greeter replies to chat heard near an NPC with a friendly speak
// directive, as the reference daemon does.
type Greeter struct {
	history *History
}

// NewGreeter creates a greeter with a bounded observation history.
func NewGreeter() *Greeter {
	return &Greeter{history: NewHistory(0)}
}

func (g *Greeter) OnWorldTick(context.Context, *protocol.WorldTick) []engine.Intent {
	return nil
}

func (g *Greeter) OnChat(_ context.Context, obs *protocol.ChatObservation) []engine.Intent {
	g.history.Add(Observation{
		At:     time.Now(),
		NpcID:  obs.NpcID,
		Kind:   "chat",
		Detail: obs.PlayerName + ": " + obs.Message,
	})

	return []engine.Intent{{
		NpcID:    obs.NpcID,
		Priority: 1,
		Speak: &engine.SpeakIntent{
			Text:       fmt.Sprintf("Hello, %s! Nice to meet you.", obs.PlayerName),
			Emotion:    "friendly",
			DurationMs: 3000,
		},
	}}
}

func (g *Greeter) OnEvent(_ context.Context, obs *protocol.EventObservation) []engine.Intent {
	g.history.Add(Observation{
		At:     time.Now(),
		NpcID:  obs.NpcID,
		Kind:   obs.EventType,
		Detail: obs.Detail,
	})
	return nil
}

func (g *Greeter) OnResult(context.Context, engine.Outcome) []engine.Intent {
	return nil
}

// Miner drives a wandering miner: a move directive every interval
// ticks for the first NPC in the snapshot, and a block scan whenever
// an NPC reports itself idle. The scan-break-deposit continuation is
// the engine's job, not the policy's.
type Miner struct {
	// MoveInterval is the tick modulus for periodic movement.
	MoveInterval int64
	// ScanBlockTypes are the ore types an idle miner scans for.
	ScanBlockTypes []string
	// ScanRadius bounds the scan volume.
	ScanRadius int
}

// NewMiner creates a miner policy with the reference defaults.
func NewMiner() *Miner {
	return &Miner{
		MoveInterval:   50,
		ScanBlockTypes: []string{"minecraft:diamond_ore", "minecraft:deepslate_diamond_ore"},
		ScanRadius:     16,
	}
}

func (m *Miner) OnWorldTick(_ context.Context, tick *protocol.WorldTick) []engine.Intent {
	if m.MoveInterval <= 0 || tick.ServerTick%m.MoveInterval != 0 || len(tick.Npcs) == 0 {
		return nil
	}
	npc := tick.Npcs[0]
	target := &protocol.Position{World: "world", Y: 64}
	if npc.Position != nil {
		target = &protocol.Position{
			World: npc.Position.World,
			X:     npc.Position.X + 5,
			Y:     npc.Position.Y,
			Z:     npc.Position.Z,
		}
	}
	return []engine.Intent{{
		NpcID:    npc.NpcID,
		Priority: 1,
		Move:     &protocol.MoveAction{Target: target, Speed: 0.5, Pathfind: true},
	}}
}

func (m *Miner) OnChat(context.Context, *protocol.ChatObservation) []engine.Intent {
	return nil
}

func (m *Miner) OnEvent(_ context.Context, obs *protocol.EventObservation) []engine.Intent {
	if obs.EventType != "npc_idle" {
		return nil
	}
	return []engine.Intent{{
		NpcID:    obs.NpcID,
		Priority: 1,
		ScanBlocks: &protocol.ScanBlocksAction{
			BlockTypes: m.ScanBlockTypes,
			Radius:     m.ScanRadius,
		},
	}}
}

func (m *Miner) OnResult(_ context.Context, outcome engine.Outcome) []engine.Intent {
	// The reference behavior never retries failed directives. Surface
	// the failure and leave re-issuing to operators or future policy.
	if outcome.Kind == engine.OutcomeMatched && !outcome.Result.Success {
		slog.Debug("miner observed failed directive",
			"directive_id", outcome.Result.DirectiveID,
			"npc_id", outcome.Result.NpcID,
			"error", outcome.Result.ErrorMessage)
	}
	return nil
}

// Composite fans each hook out to several policies in order and
// concatenates their intents.
type Composite struct {
	policies []engine.Policy
}

// NewComposite combines policies; earlier policies' intents dispatch first.
func NewComposite(policies ...engine.Policy) *Composite {
	return &Composite{policies: policies}
}

func (c *Composite) OnWorldTick(ctx context.Context, tick *protocol.WorldTick) []engine.Intent {
	var out []engine.Intent
	for _, p := range c.policies {
		out = append(out, p.OnWorldTick(ctx, tick)...)
	}
	return out
}

func (c *Composite) OnChat(ctx context.Context, obs *protocol.ChatObservation) []engine.Intent {
	var out []engine.Intent
	for _, p := range c.policies {
		out = append(out, p.OnChat(ctx, obs)...)
	}
	return out
}

func (c *Composite) OnEvent(ctx context.Context, obs *protocol.EventObservation) []engine.Intent {
	var out []engine.Intent
	for _, p := range c.policies {
		out = append(out, p.OnEvent(ctx, obs)...)
	}
	return out
}

func (c *Composite) OnResult(ctx context.Context, outcome engine.Outcome) []engine.Intent {
	var out []engine.Intent
	for _, p := range c.policies {
		out = append(out, p.OnResult(ctx, outcome)...)
	}
	return out
}
