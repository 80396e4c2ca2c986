package policy

import (
	"sync"
	"time"
)

// Observation is one remembered world event.
type Observation struct {
	At     time.Time
	NpcID  string
	Kind   string
	Detail string
}

// History is a fixed-size ring of recent observations. Prevents
// unbounded memory growth on chatty connections; when full, the oldest
// entry is overwritten.
type History struct {
	entries []Observation
	size    int
	head    int // write position
	full    bool
	mu      sync.RWMutex
}

// NewHistory creates a history ring with the given capacity.
// Default capacity is 256 entries.
func NewHistory(size int) *History {
	if size <= 0 {
		size = 256
	}
	return &History{
		entries: make([]Observation, size),
		size:    size,
	}
}

// Add records an observation, overwriting the oldest when full.
func (h *History) Add(obs Observation) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.head] = obs
	h.head = (h.head + 1) % h.size
	if h.head == 0 {
		h.full = true
	}
}

// Recent returns up to n observations, newest first.
func (h *History) Recent(n int) []Observation {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := h.len()
	if n > count {
		n = count
	}
	out := make([]Observation, 0, n)
	for i := 0; i < n; i++ {
		idx := (h.head - 1 - i + h.size) % h.size
		out = append(out, h.entries[idx])
	}
	return out
}

// Len returns the number of stored observations.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.len()
}

func (h *History) len() int {
	if h.full {
		return h.size
	}
	return h.head
}
