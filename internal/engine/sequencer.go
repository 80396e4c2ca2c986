package engine

import (
	"github.com/npcsociety/npcd/internal/protocol"
)

// SpeakIntent asks the session to dispatch NPC speech. The session
// assigns the directive id and, when the peer has voice support, opens
// the correlated audio stream.
type SpeakIntent struct {
	Text       string
	Emotion    string
	DurationMs int
	VoiceID    string
	Volume     float32
}

// Intent is a directive a policy or the sequencer wants dispatched.
// Exactly one payload field is set. Intents carry no id; the session
// assigns one at dispatch so that every emitted directive has been
// registered with the tracker first.
type Intent struct {
	NpcID    string
	Priority int

	Move           *protocol.MoveAction
	BreakBlock     *protocol.BreakBlockAction
	ScanBlocks     *protocol.ScanBlocksAction
	DepositToChest *protocol.DepositToChestAction
	Speak          *SpeakIntent
}

// Kind returns the intent's payload variant name.
func (in *Intent) Kind() string {
	switch {
	case in.Move != nil:
		return protocol.ActionMove.String()
	case in.BreakBlock != nil:
		return protocol.ActionBreakBlock.String()
	case in.ScanBlocks != nil:
		return protocol.ActionScanBlocks.String()
	case in.DepositToChest != nil:
		return protocol.ActionDepositToChest.String()
	case in.Speak != nil:
		return "speak"
	default:
		return "unknown"
	}
}

// Sequencer chains multi-step workflows by reacting to successful
// matched results. It never retries failures and never reacts to
// orphaned or timed-out directives; those are surfaced to the policy
// and the observer instead.
type Sequencer struct{}

// NewSequencer creates a sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Continue returns the follow-up intents for a matched, successful
// result. The mining chain: a scan with at least one match emits
// exactly one break for the first match (peer-determined order, first
// match wins); a break that dropped items emits one deposit. Move and
// deposit results are terminal for this chain.
func (s *Sequencer) Continue(d *Directive, result *protocol.ActionResult) []Intent {
	if !result.Success {
		return nil
	}

	switch result.Result() {
	case protocol.ResultScanBlocks:
		matches := result.ScanBlocksResult.Matches
		if len(matches) == 0 || matches[0].Position == nil {
			return nil
		}
		return []Intent{{
			NpcID:    d.NpcID,
			Priority: d.Priority,
			BreakBlock: &protocol.BreakBlockAction{
				Position: matches[0].Position,
			},
		}}
	case protocol.ResultBreakBlock:
		dropped := result.BreakBlockResult.DroppedItems
		if len(dropped) == 0 {
			return nil
		}
		return []Intent{{
			NpcID:    d.NpcID,
			Priority: d.Priority,
			DepositToChest: &protocol.DepositToChestAction{
				Items: dropped,
			},
		}}
	default:
		return nil
	}
}
