package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/npcsociety/npcd/internal/ident"
	"github.com/npcsociety/npcd/internal/protocol"
)

// Policy decides what the daemon does with observations. It is a
// pluggable strategy: given world state and session history it returns
// zero or more intents to dispatch. Implementations are invoked from a
// single goroutine per session and must not block.
type Policy interface {
	OnWorldTick(ctx context.Context, tick *protocol.WorldTick) []Intent
	OnChat(ctx context.Context, obs *protocol.ChatObservation) []Intent
	OnEvent(ctx context.Context, obs *protocol.EventObservation) []Intent

	// OnResult sees every matched outcome after the sequencer has run:
	// terminal successes and all failures. The engine never retries a
	// failed directive; re-issuing is the policy's call.
	OnResult(ctx context.Context, outcome Outcome) []Intent
}

// Synthesizer produces ordered PCM chunks for a line of NPC speech.
// Treated as an opaque external producer; codec and TTS details live
// behind this interface.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([][]byte, error)
}

// AudioSink consumes inbound voice frames. Inbound voice is not
// directive-correlated; frames pass straight through to the sink.
type AudioSink interface {
	ConsumeFrame(ctx context.Context, frame *protocol.VoicePcmFrame)
}

// Transcriber records conversational traffic for offline review.
type Transcriber interface {
	RecordChat(connID string, obs *protocol.ChatObservation)
	RecordSpeak(connID string, d *protocol.SpeakDirective)
}

// SessionDeps bundles the collaborators a session needs. Gen is
// required; the rest may be nil and default to no-ops.
type SessionDeps struct {
	Gen        *ident.Generator
	Policy     Policy
	Synth      Synthesizer
	Sink       AudioSink
	Transcript Transcriber
	Observer   Observer
}

// Session owns the correlation state for one peer connection: the
// pending directive set, the open audio streams, and the last seen
// world tick. All methods must be called from a single goroutine; the
// transport layer funnels inbound messages and sweep ticks through one
// ordered loop to keep that discipline.
type Session struct {
	id   string
	peer string

	tracker    *Tracker
	correlator *Correlator
	sequencer  *Sequencer
	gen        *ident.Generator
	policy     Policy
	synth      Synthesizer
	sink       AudioSink
	transcript Transcriber
	observer   Observer

	voiceAvailable bool
	lastTick       int64
	helloSeen      bool
	closed         bool
}

// NewSession initializes empty pending-directive and audio-stream sets
// for one connection.
func NewSession(connID, peerAddr string, deps SessionDeps) *Session {
	obs := deps.Observer
	if obs == nil {
		obs = NopObserver{}
	}
	s := &Session{
		id:         connID,
		peer:       peerAddr,
		tracker:    NewTracker(),
		correlator: NewCorrelator(deps.Gen),
		sequencer:  NewSequencer(),
		gen:        deps.Gen,
		policy:     deps.Policy,
		synth:      deps.Synth,
		sink:       deps.Sink,
		transcript: deps.Transcript,
		observer:   obs,
	}
	obs.ConnectionOpened(connID, peerAddr)
	return s
}

// ID returns the connection id this session is bound to.
func (s *Session) ID() string {
	return s.id
}

// PendingDirectives returns the number of unresolved directives.
func (s *Session) PendingDirectives() int {
	return s.tracker.Len()
}

// OpenStreams returns the number of open audio streams.
func (s *Session) OpenStreams() int {
	return s.correlator.Len()
}

// HandleMessage classifies one inbound message and returns the
// outbound messages to send, in order. Every directive in the returned
// slice has already been registered with the tracker, so a result
// arriving for it immediately after send can never look orphaned.
func (s *Session) HandleMessage(ctx context.Context, msg *protocol.ClientMessage) []*protocol.ServerMessage {
	if s.closed {
		return nil
	}

	switch msg.Variant() {
	case protocol.ClientHello:
		s.handleHello(msg.Hello)
		return nil
	case protocol.ClientWorldTick:
		return s.handleWorldTick(ctx, msg.WorldTick)
	case protocol.ClientChatObservation:
		return s.handleChat(ctx, msg.ChatObservation)
	case protocol.ClientEventObservation:
		return s.handleEvent(ctx, msg.EventObservation)
	case protocol.ClientVoicePcmFrame:
		s.handleVoiceFrame(ctx, msg.VoicePcmFrame)
		return nil
	case protocol.ClientActionResult:
		return s.handleResult(ctx, msg.ActionResult)
	default:
		// Empty envelope: a protocol anomaly, not a session error.
		s.reportAnomaly(Anomaly{Kind: AnomalyProtocol, Detail: "empty client message"})
		return nil
	}
}

func (s *Session) handleHello(hello *protocol.Hello) {
	s.helloSeen = true
	s.voiceAvailable = hello.VoiceAvailable
	slog.Info("peer handshake",
		"conn_id", s.id,
		"plugin_version", hello.PluginVersion,
		"protocol_version", hello.ProtocolVersion,
		"server_id", hello.ServerID,
		"minecraft_version", hello.MinecraftVersion,
		"voice_available", hello.VoiceAvailable,
		"daemon_mode", hello.DaemonMode)
}

func (s *Session) handleWorldTick(ctx context.Context, tick *protocol.WorldTick) []*protocol.ServerMessage {
	s.lastTick = tick.ServerTick
	if s.policy == nil {
		return nil
	}
	return s.dispatch(ctx, s.policy.OnWorldTick(ctx, tick))
}

func (s *Session) handleChat(ctx context.Context, obs *protocol.ChatObservation) []*protocol.ServerMessage {
	if s.transcript != nil {
		s.transcript.RecordChat(s.id, obs)
	}
	if s.policy == nil {
		return nil
	}
	return s.dispatch(ctx, s.policy.OnChat(ctx, obs))
}

func (s *Session) handleEvent(ctx context.Context, obs *protocol.EventObservation) []*protocol.ServerMessage {
	if s.policy == nil {
		return nil
	}
	return s.dispatch(ctx, s.policy.OnEvent(ctx, obs))
}

func (s *Session) handleVoiceFrame(ctx context.Context, frame *protocol.VoicePcmFrame) {
	if s.sink != nil {
		s.sink.ConsumeFrame(ctx, frame)
	}
}

func (s *Session) handleResult(ctx context.Context, result *protocol.ActionResult) []*protocol.ServerMessage {
	outcome := s.tracker.Resolve(result)
	if outcome.Kind == OutcomeOrphaned {
		// The peer may have retried, or the entry was evicted by a
		// sweep or connection churn. Never fatal.
		s.reportAnomaly(Anomaly{
			Kind:        AnomalyOrphanedResult,
			NpcID:       result.NpcID,
			DirectiveID: result.DirectiveID,
		})
		return nil
	}

	s.observer.DirectiveResolved(s.id, outcome.Directive, result)
	if !result.Success {
		slog.Warn("directive failed",
			"conn_id", s.id,
			"directive_id", result.DirectiveID,
			"npc_id", result.NpcID,
			"error", result.ErrorMessage)
	}

	out := s.dispatch(ctx, s.sequencer.Continue(outcome.Directive, result))
	if s.policy != nil {
		out = append(out, s.dispatch(ctx, s.policy.OnResult(ctx, outcome))...)
	}
	return out
}

// Sweep evicts directives pending longer than maxAge. Driven by the
// transport loop's ticker on the session goroutine, so it never races
// message handling. Timed-out directives are reported once and produce
// no workflow continuation.
func (s *Session) Sweep(maxAge time.Duration) {
	if s.closed {
		return
	}
	for _, d := range s.tracker.Sweep(maxAge) {
		s.observer.DirectiveTimedOut(s.id, d)
		s.reportAnomaly(Anomaly{
			Kind:        AnomalyTimedOutDirective,
			NpcID:       d.NpcID,
			DirectiveID: d.ID,
			Detail:      "no result within " + maxAge.String(),
		})
	}
}

// Close discards all pending directive and audio stream state. Queued
// but unsent directives are lost; the peer resynchronizes via a future
// WorldTick. Idempotent.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	dropped := s.tracker.Len()
	streams := s.correlator.Len()
	s.tracker.Clear()
	s.correlator.Clear()
	s.observer.ConnectionClosed(s.id)
	if dropped > 0 || streams > 0 {
		slog.Info("session closed with outstanding state",
			"conn_id", s.id,
			"pending_directives", dropped,
			"open_streams", streams)
	}
}

// dispatch assigns ids to intents, registers each with the tracker,
// and builds the outbound messages. Registration always precedes
// emission. Speech intents additionally open an audio stream and, when
// the peer has voice support, append the synthesized chunk sequence
// validated through the correlator.
func (s *Session) dispatch(ctx context.Context, intents []Intent) []*protocol.ServerMessage {
	if len(intents) == 0 {
		return nil
	}

	out := make([]*protocol.ServerMessage, 0, len(intents))
	for i := range intents {
		intent := &intents[i]
		if intent.Speak != nil {
			out = append(out, s.dispatchSpeak(ctx, intent)...)
			continue
		}
		if msg := s.dispatchAction(intent); msg != nil {
			out = append(out, msg)
		}
	}
	return out
}

func (s *Session) dispatchAction(intent *Intent) *protocol.ServerMessage {
	id := s.gen.NextID(ident.KindDirective)
	d := &Directive{
		ID:       id,
		NpcID:    intent.NpcID,
		Priority: intent.Priority,
		Kind:     intent.Kind(),
	}
	if err := s.tracker.Register(d); err != nil {
		s.reportAnomaly(Anomaly{
			Kind:        AnomalyIDCollision,
			NpcID:       intent.NpcID,
			DirectiveID: id,
			Detail:      err.Error(),
		})
		return nil
	}
	s.observer.DirectiveDispatched(s.id, d)

	return &protocol.ServerMessage{
		ActionDirective: &protocol.ActionDirective{
			DirectiveID:    id,
			NpcID:          intent.NpcID,
			Priority:       intent.Priority,
			Move:           intent.Move,
			BreakBlock:     intent.BreakBlock,
			ScanBlocks:     intent.ScanBlocks,
			DepositToChest: intent.DepositToChest,
		},
	}
}

// dispatchSpeak emits the SpeakDirective first and its audio chunks
// after it; the transport preserves this relative order, so the peer
// always learns the stream id before the first chunk arrives.
func (s *Session) dispatchSpeak(ctx context.Context, intent *Intent) []*protocol.ServerMessage {
	id := s.gen.NextID(ident.KindDirective)
	d := &Directive{
		ID:       id,
		NpcID:    intent.NpcID,
		Priority: intent.Priority,
		Kind:     intent.Kind(),
	}

	speak := &protocol.SpeakDirective{
		NpcID:       intent.NpcID,
		Text:        intent.Speak.Text,
		Emotion:     intent.Speak.Emotion,
		DurationMs:  intent.Speak.DurationMs,
		DirectiveID: id,
		VoiceID:     intent.Speak.VoiceID,
		Volume:      intent.Speak.Volume,
	}

	if err := s.tracker.Register(d); err != nil {
		s.reportAnomaly(Anomaly{
			Kind:        AnomalyIDCollision,
			NpcID:       intent.NpcID,
			DirectiveID: id,
			Detail:      err.Error(),
		})
		return nil
	}

	// Open the stream only once registration has succeeded, so a
	// collision leaves no stream behind.
	synthesize := s.voiceAvailable && s.synth != nil
	if synthesize {
		d.StreamID = s.correlator.Open(id)
		speak.StreamID = d.StreamID
	}
	s.observer.DirectiveDispatched(s.id, d)
	if s.transcript != nil {
		s.transcript.RecordSpeak(s.id, speak)
	}

	out := []*protocol.ServerMessage{{SpeakDirective: speak}}
	if synthesize {
		out = append(out, s.synthesizeChunks(ctx, d, intent)...)
	}
	return out
}

// synthesizeChunks runs the synthesizer and validates every produced
// chunk through the correlator before it is emitted, so outbound audio
// can never violate the ordering invariant the peer relies on.
func (s *Session) synthesizeChunks(ctx context.Context, d *Directive, intent *Intent) []*protocol.ServerMessage {
	chunks, err := s.synth.Synthesize(ctx, intent.Speak.Text, intent.Speak.VoiceID)
	if err != nil {
		slog.Warn("speech synthesis failed",
			"conn_id", s.id,
			"directive_id", d.ID,
			"stream_id", d.StreamID,
			"error", err)
		// Terminate the stream cleanly with an empty final chunk.
		chunks = nil
	}
	if len(chunks) == 0 {
		chunks = [][]byte{{}}
	}

	out := make([]*protocol.ServerMessage, 0, len(chunks))
	for i, pcm := range chunks {
		seq := int64(i)
		final := i == len(chunks)-1
		switch outcome := s.correlator.AcceptChunk(d.StreamID, seq, final); outcome {
		case ChunkAccepted, StreamComplete:
		case SequenceViolation:
			s.reportAnomaly(Anomaly{
				Kind:        AnomalySequenceViolation,
				NpcID:       d.NpcID,
				DirectiveID: d.ID,
				StreamID:    d.StreamID,
			})
			return out
		case UnknownStream:
			s.reportAnomaly(Anomaly{
				Kind:        AnomalyUnknownStream,
				NpcID:       d.NpcID,
				DirectiveID: d.ID,
				StreamID:    d.StreamID,
			})
			return out
		}
		out = append(out, &protocol.ServerMessage{
			AudioChunk: &protocol.AudioChunk{
				NpcID:       d.NpcID,
				StreamID:    d.StreamID,
				PcmData:     pcm,
				Sequence:    seq,
				IsFinal:     final,
				DirectiveID: d.ID,
			},
		})
	}
	return out
}

func (s *Session) reportAnomaly(a Anomaly) {
	slog.Warn("protocol anomaly",
		"conn_id", s.id,
		"kind", string(a.Kind),
		"npc_id", a.NpcID,
		"directive_id", a.DirectiveID,
		"stream_id", a.StreamID,
		"detail", a.Detail)
	s.observer.AnomalyReported(s.id, a)
}
