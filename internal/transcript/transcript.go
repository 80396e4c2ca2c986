// Package transcript records NPC conversations as NDJSON for offline
// review: chat heard near NPCs and the speech the daemon sent back.
package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/npcsociety/npcd/internal/protocol"
)

// Config controls transcript logging.
type Config struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Event is one NDJSON transcript line.
type Event struct {
	Timestamp string `json:"ts"`
	ConnID    string `json:"conn_id"`
	NpcID     string `json:"npc_id"`
	Direction string `json:"direction"` // "heard" or "spoke"
	Speaker   string `json:"speaker,omitempty"`
	Text      string `json:"text"`
	Emotion   string `json:"emotion,omitempty"`
}

// Logger writes transcript events asynchronously: events are queued
// and a single writer goroutine appends them to per-connection files
// (and optionally one global file). A full queue drops the event and
// counts the drop; conversation logging must never stall the session.
type Logger struct {
	cfg     Config
	queue   chan Event
	done    chan struct{}
	dropped atomic.Uint64
	closeMu sync.Mutex
	closed  bool
}

// New creates a transcript logger. When disabled, all methods are
// cheap no-ops.
func New(cfg Config) (*Logger, error) {
	if !cfg.Enabled && !cfg.GlobalEnabled {
		return &Logger{cfg: cfg}, nil
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Enabled {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("create transcript directory: %w", err)
		}
	}
	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0755); err != nil {
			return nil, fmt.Errorf("create global transcript directory: %w", err)
		}
	}

	l := &Logger{
		cfg:   cfg,
		queue: make(chan Event, cfg.QueueSize),
		done:  make(chan struct{}),
	}
	go l.run()
	return l, nil
}

// RecordChat queues a heard chat observation.
func (l *Logger) RecordChat(connID string, obs *protocol.ChatObservation) {
	l.enqueue(Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ConnID:    connID,
		NpcID:     obs.NpcID,
		Direction: "heard",
		Speaker:   obs.PlayerName,
		Text:      obs.Message,
	})
}

// RecordSpeak queues an outbound speak directive.
func (l *Logger) RecordSpeak(connID string, d *protocol.SpeakDirective) {
	l.enqueue(Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ConnID:    connID,
		NpcID:     d.NpcID,
		Direction: "spoke",
		Text:      d.Text,
		Emotion:   d.Emotion,
	})
}

// Dropped returns the number of events lost to a full queue.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close stops the writer after draining queued events. Idempotent.
func (l *Logger) Close() error {
	l.closeMu.Lock()
	defer l.closeMu.Unlock()
	if l.closed || l.queue == nil {
		l.closed = true
		return nil
	}
	l.closed = true
	close(l.queue)
	<-l.done
	return nil
}

func (l *Logger) enqueue(ev Event) {
	if l.queue == nil {
		return
	}
	l.closeMu.Lock()
	defer l.closeMu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- ev:
	default:
		l.dropped.Add(1)
	}
}

func (l *Logger) run() {
	defer close(l.done)
	for ev := range l.queue {
		l.write(ev)
	}
}

func (l *Logger) write(ev Event) {
	line, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("transcript marshal failed", "error", err)
		return
	}
	line = append(line, '\n')

	if l.cfg.Enabled {
		path := filepath.Join(l.cfg.Dir, ev.ConnID+".ndjson")
		if err := appendFile(path, line); err != nil {
			slog.Warn("transcript write failed", "path", path, "error", err)
		}
	}
	if l.cfg.GlobalEnabled {
		if err := appendFile(l.cfg.GlobalPath, line); err != nil {
			slog.Warn("global transcript write failed", "path", l.cfg.GlobalPath, "error", err)
		}
	}
}

func appendFile(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(line)
	return err
}
