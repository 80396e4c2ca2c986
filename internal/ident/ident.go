// Package ident provides process-wide correlation identifier generation.
package ident

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Kind selects the identifier namespace prefix.
type Kind string

const (
	// KindDirective prefixes action and speak directive identifiers.
	KindDirective Kind = "dir"
	// KindStream prefixes audio stream identifiers.
	KindStream Kind = "strm"
)

// Generator produces process-unique, monotonically increasing
// correlation identifiers. All kinds share one counter, so identifiers
// are unique across the directive and stream id spaces even when
// sessions allocate concurrently. The counter only grows; 64 bits make
// exhaustion unreachable in practice.
type Generator struct {
	counter atomic.Uint64
}

// NewGenerator creates a generator starting at zero.
func NewGenerator() *Generator {
	return &Generator{}
}

// NextID returns the next identifier for the given kind, e.g. "dir-42".
func (g *Generator) NextID(kind Kind) string {
	n := g.counter.Add(1)
	return string(kind) + "-" + strconv.FormatUint(n, 10)
}

// NewConnectionID returns a random identifier for one peer connection.
// Connection ids are not correlation ids; they only need uniqueness.
func NewConnectionID() string {
	return uuid.NewString()
}
