package protocol

import (
	"strings"
	"testing"
)

func TestClientMessageVariant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  ClientMessage
		want ClientVariant
	}{
		{"hello", ClientMessage{Hello: &Hello{PluginVersion: "1.1.0"}}, ClientHello},
		{"world tick", ClientMessage{WorldTick: &WorldTick{ServerTick: 7}}, ClientWorldTick},
		{"chat", ClientMessage{ChatObservation: &ChatObservation{NpcID: "miner_01"}}, ClientChatObservation},
		{"event", ClientMessage{EventObservation: &EventObservation{EventType: "explosion"}}, ClientEventObservation},
		{"voice", ClientMessage{VoicePcmFrame: &VoicePcmFrame{Sequence: 3}}, ClientVoicePcmFrame},
		{"result", ClientMessage{ActionResult: &ActionResult{DirectiveID: "dir-1"}}, ClientActionResult},
		{"empty", ClientMessage{}, ClientEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Variant(); got != tt.want {
				t.Errorf("Variant() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeClientAbsentCorrelationFields(t *testing.T) {
	t.Parallel()

	// A v1.0 peer sends no correlation fields at all; the result must
	// decode as uncorrelated, not error.
	frame := []byte(`{"action_result":{"directive_id":"","npc_id":"miner_01","success":true}}`)

	msg, err := DecodeClient(frame)
	if err != nil {
		t.Fatalf("DecodeClient failed: %v", err)
	}
	if msg.Variant() != ClientActionResult {
		t.Fatalf("expected action result variant, got %v", msg.Variant())
	}
	if msg.ActionResult.DirectiveID != "" {
		t.Errorf("expected empty directive id, got %q", msg.ActionResult.DirectiveID)
	}
	if msg.ActionResult.Result() != ResultNone {
		t.Errorf("expected no result payload, got %v", msg.ActionResult.Result())
	}
}

func TestDecodeClientMalformed(t *testing.T) {
	t.Parallel()

	if _, err := DecodeClient([]byte("{not json")); err == nil {
		t.Fatal("expected decode error for malformed frame")
	}
}

func TestActionDirectiveClassification(t *testing.T) {
	t.Parallel()

	d := &ActionDirective{
		DirectiveID: "dir-9",
		NpcID:       "miner_01",
		ScanBlocks:  &ScanBlocksAction{BlockTypes: []string{"minecraft:diamond_ore"}, Radius: 16},
	}
	if d.Action() != ActionScanBlocks {
		t.Errorf("Action() = %v, want %v", d.Action(), ActionScanBlocks)
	}

	empty := &ActionDirective{DirectiveID: "dir-10"}
	if empty.Action() != ActionUnknown {
		t.Errorf("Action() = %v, want %v", empty.Action(), ActionUnknown)
	}
}

func TestEncodeServerOmitsUnsetCorrelation(t *testing.T) {
	t.Parallel()

	data, err := EncodeServer(&ServerMessage{
		SpeakDirective: &SpeakDirective{NpcID: "miner_01", Text: "Hello"},
	})
	if err != nil {
		t.Fatalf("EncodeServer failed: %v", err)
	}
	// Older peers must not see empty correlation fields; omitempty keeps
	// the frame additive-compatible.
	if strings.Contains(string(data), `"stream_id"`) || strings.Contains(string(data), `"directive_id"`) {
		t.Errorf("expected correlation fields omitted, got %s", data)
	}
}
