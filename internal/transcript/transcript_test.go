package transcript

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/npcsociety/npcd/internal/protocol"
)

func TestLoggerWritesPerConnectionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(Config{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 16,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.RecordChat("conn-1", &protocol.ChatObservation{
		NpcID:      "miner_01",
		PlayerName: "Steve",
		Message:    "Hey miner, can you find some diamonds?",
	})
	logger.RecordSpeak("conn-1", &protocol.SpeakDirective{
		NpcID:   "miner_01",
		Text:    "Hello, Steve! Nice to meet you.",
		Emotion: "friendly",
	})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	path := filepath.Join(dir, "conn-1.ndjson")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("transcript not written: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 transcript lines, got %d", len(lines))
	}

	var heard, spoke Event
	if err := json.Unmarshal([]byte(lines[0]), &heard); err != nil {
		t.Fatalf("unmarshal heard line: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &spoke); err != nil {
		t.Fatalf("unmarshal spoke line: %v", err)
	}
	if heard.Direction != "heard" || heard.Speaker != "Steve" {
		t.Errorf("unexpected heard event: %+v", heard)
	}
	if spoke.Direction != "spoke" || spoke.Emotion != "friendly" {
		t.Errorf("unexpected spoke event: %+v", spoke)
	}
}

func TestLoggerGlobalFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	global := filepath.Join(dir, "all.ndjson")
	logger, err := New(Config{
		GlobalEnabled: true,
		GlobalPath:    global,
		QueueSize:     16,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.RecordChat("conn-1", &protocol.ChatObservation{NpcID: "a", Message: "one"})
	logger.RecordChat("conn-2", &protocol.ChatObservation{NpcID: "b", Message: "two"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(global)
	if err != nil {
		t.Fatalf("global transcript not written: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Errorf("expected 2 global lines, got %d", got)
	}
}

func TestLoggerDisabledIsNoop(t *testing.T) {
	t.Parallel()

	logger, err := New(Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.RecordChat("conn-1", &protocol.ChatObservation{Message: "hi"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if logger.Dropped() != 0 {
		t.Errorf("disabled logger counted drops: %d", logger.Dropped())
	}
}

func TestLoggerCloseDrains(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(Config{Enabled: true, Dir: dir, QueueSize: 64})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for i := 0; i < 20; i++ {
		logger.RecordChat("conn-1", &protocol.ChatObservation{NpcID: "n", Message: "m"})
	}
	start := time.Now()
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("Close took too long to drain")
	}

	data, err := os.ReadFile(filepath.Join(dir, "conn-1.ndjson"))
	if err != nil {
		t.Fatalf("transcript missing after close: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 20 {
		t.Errorf("expected 20 drained lines, got %d", got)
	}
}
