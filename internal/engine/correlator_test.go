package engine

import (
	"testing"

	"github.com/npcsociety/npcd/internal/ident"
)

func TestCorrelatorChunkOrdering(t *testing.T) {
	t.Parallel()

	c := NewCorrelator(ident.NewGenerator())
	sid := c.Open("dir-1")
	if sid == "" {
		t.Fatal("Open returned empty stream id")
	}

	if got := c.AcceptChunk(sid, 0, false); got != ChunkAccepted {
		t.Fatalf("seq 0: got %v, want %v", got, ChunkAccepted)
	}

	// Skipping a sequence number is a violation and leaves the stream
	// exactly as it was.
	if got := c.AcceptChunk(sid, 2, false); got != SequenceViolation {
		t.Fatalf("seq 2 after 0: got %v, want %v", got, SequenceViolation)
	}
	if got := c.AcceptChunk(sid, 1, false); got != ChunkAccepted {
		t.Fatalf("seq 1 after violation: got %v, want %v", got, ChunkAccepted)
	}

	if got := c.AcceptChunk(sid, 2, true); got != StreamComplete {
		t.Fatalf("final chunk: got %v, want %v", got, StreamComplete)
	}
}

func TestCorrelatorClosedStreamNeverReopens(t *testing.T) {
	t.Parallel()

	c := NewCorrelator(ident.NewGenerator())
	sid := c.Open("dir-1")

	if got := c.AcceptChunk(sid, 0, true); got != StreamComplete {
		t.Fatalf("immediate final: got %v, want %v", got, StreamComplete)
	}

	// A chunk for a closed stream is reported, not silently dropped.
	if got := c.AcceptChunk(sid, 1, false); got != UnknownStream {
		t.Errorf("chunk after close: got %v, want %v", got, UnknownStream)
	}
	if got := c.AcceptChunk(sid, 0, true); got != UnknownStream {
		t.Errorf("replayed final after close: got %v, want %v", got, UnknownStream)
	}
}

func TestCorrelatorUnknownStream(t *testing.T) {
	t.Parallel()

	c := NewCorrelator(ident.NewGenerator())
	if got := c.AcceptChunk("strm-never-opened", 0, false); got != UnknownStream {
		t.Errorf("got %v, want %v", got, UnknownStream)
	}
}

func TestCorrelatorIndependentStreams(t *testing.T) {
	t.Parallel()

	c := NewCorrelator(ident.NewGenerator())
	a := c.Open("dir-1")
	b := c.Open("dir-2")
	if a == b {
		t.Fatalf("stream ids collide: %q", a)
	}

	if dir, ok := c.DirectiveFor(a); !ok || dir != "dir-1" {
		t.Errorf("DirectiveFor(%q) = %q, %v", a, dir, ok)
	}

	if got := c.AcceptChunk(a, 0, false); got != ChunkAccepted {
		t.Fatalf("stream a seq 0: got %v", got)
	}
	// Stream b still expects 0 regardless of a's progress.
	if got := c.AcceptChunk(b, 0, false); got != ChunkAccepted {
		t.Fatalf("stream b seq 0: got %v", got)
	}
	if got := c.AcceptChunk(b, 1, true); got != StreamComplete {
		t.Fatalf("stream b final: got %v", got)
	}
	// Closing b does not disturb a.
	if got := c.AcceptChunk(a, 1, false); got != ChunkAccepted {
		t.Errorf("stream a seq 1 after b closed: got %v", got)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 open stream, got %d", c.Len())
	}
}

func TestCorrelatorClear(t *testing.T) {
	t.Parallel()

	c := NewCorrelator(ident.NewGenerator())
	sid := c.Open("dir-1")
	c.Clear()
	if got := c.AcceptChunk(sid, 0, false); got != UnknownStream {
		t.Errorf("chunk after clear: got %v, want %v", got, UnknownStream)
	}
}
