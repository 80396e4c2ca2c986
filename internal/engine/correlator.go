package engine

import (
	"github.com/npcsociety/npcd/internal/ident"
)

// ChunkOutcome is the verdict for one audio chunk offered to a stream.
type ChunkOutcome int

const (
	// ChunkAccepted means the chunk carried the expected sequence number
	// and the stream remains open.
	ChunkAccepted ChunkOutcome = iota
	// StreamComplete means the chunk was accepted and carried the final
	// marker; the stream is now closed.
	StreamComplete
	// SequenceViolation means the chunk's sequence number did not match
	// the expected next value. The stream state is unchanged.
	SequenceViolation
	// UnknownStream means the stream was never opened or is already
	// closed. This is reported, not silently dropped, so peer bugs
	// surface in production.
	UnknownStream
)

func (o ChunkOutcome) String() string {
	switch o {
	case ChunkAccepted:
		return "chunk_accepted"
	case StreamComplete:
		return "stream_complete"
	case SequenceViolation:
		return "sequence_violation"
	case UnknownStream:
		return "unknown_stream"
	default:
		return "invalid"
	}
}

// audioStream tracks sequencing state for one speech directive's audio.
type audioStream struct {
	directiveID     string
	expectedNextSeq int64
}

// Correlator validates that audio chunks for each speech directive
// arrive in exact order and terminate exactly once. Like the Tracker,
// it is confined to a single session's goroutine.
type Correlator struct {
	streams map[string]*audioStream
	gen     *ident.Generator
}

// NewCorrelator creates a correlator allocating stream ids from gen.
func NewCorrelator(gen *ident.Generator) *Correlator {
	return &Correlator{
		streams: make(map[string]*audioStream),
		gen:     gen,
	}
}

// Open registers a new audio stream for a speech directive and returns
// its stream id. The first chunk must carry sequence 0.
func (c *Correlator) Open(directiveID string) string {
	streamID := c.gen.NextID(ident.KindStream)
	c.streams[streamID] = &audioStream{directiveID: directiveID}
	return streamID
}

// DirectiveFor returns the directive id an open stream belongs to.
func (c *Correlator) DirectiveFor(streamID string) (string, bool) {
	s, ok := c.streams[streamID]
	if !ok {
		return "", false
	}
	return s.directiveID, true
}

// AcceptChunk validates one chunk against the stream's expected
// sequence. Closed streams never reopen: once the final chunk has been
// accepted the stream is forgotten, and later chunks for its id are
// UnknownStream. A failed validation leaves the stream state exactly
// as if the chunk had never been offered.
func (c *Correlator) AcceptChunk(streamID string, sequence int64, isFinal bool) ChunkOutcome {
	s, ok := c.streams[streamID]
	if !ok {
		return UnknownStream
	}
	if sequence != s.expectedNextSeq {
		return SequenceViolation
	}
	if isFinal {
		delete(c.streams, streamID)
		return StreamComplete
	}
	s.expectedNextSeq++
	return ChunkAccepted
}

// Len returns the number of open streams.
func (c *Correlator) Len() int {
	return len(c.streams)
}

// Clear discards all open streams. Called on connection close.
func (c *Correlator) Clear() {
	c.streams = make(map[string]*audioStream)
}
