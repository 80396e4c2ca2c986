// Package speech provides the audio collaborators: outbound speech
// synthesis and the inbound voice frame sink. Both are opaque
// bytestream endpoints to the correlation core; real deployments swap
// in TTS and ASR implementations behind the same interfaces.
package speech

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/npcsociety/npcd/internal/protocol"
)

// frameBytes is 10 ms of 48 kHz 16-bit mono PCM, the frame size the
// voice mod expects.
const frameBytes = 960

// Silence emits zeroed PCM frames sized to the text, standing in for a
// real TTS engine exactly as the reference daemon's dummy audio does.
type Silence struct {
	// FramesPerWord controls how many frames each word of text yields.
	FramesPerWord int
}

// NewSilence creates the reference synthesizer.
func NewSilence() *Silence {
	return &Silence{FramesPerWord: 2}
}

// Synthesize returns one or more zeroed frames; at least one frame is
// always produced so every stream terminates with a final chunk.
func (s *Silence) Synthesize(_ context.Context, text, _ string) ([][]byte, error) {
	words := len(strings.Fields(text))
	frames := words * s.FramesPerWord
	if frames <= 0 {
		frames = 1
	}
	chunks := make([][]byte, frames)
	for i := range chunks {
		chunks[i] = make([]byte, frameBytes)
	}
	return chunks, nil
}

// CountingSink counts inbound voice traffic for the stats surface.
// Inbound voice is uncorrelated; in production this is where ASR
// buffering begins.
type CountingSink struct {
	frames atomic.Uint64
	bytes  atomic.Uint64
}

// NewCountingSink creates an empty sink.
func NewCountingSink() *CountingSink {
	return &CountingSink{}
}

// ConsumeFrame records one frame.
func (c *CountingSink) ConsumeFrame(_ context.Context, frame *protocol.VoicePcmFrame) {
	c.frames.Add(1)
	c.bytes.Add(uint64(len(frame.PcmData)))
	slog.Debug("voice frame received",
		"npc_id", frame.NpcID,
		"player_uuid", frame.PlayerUUID,
		"bytes", len(frame.PcmData),
		"seq", frame.Sequence)
}

// Frames returns the number of frames consumed.
func (c *CountingSink) Frames() uint64 {
	return c.frames.Load()
}

// Bytes returns the total PCM bytes consumed.
func (c *CountingSink) Bytes() uint64 {
	return c.bytes.Load()
}
