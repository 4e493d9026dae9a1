package logging

import (
	"encoding/json"
	"sync"
	"time"
)

// DefaultBufferSize is how many recent log entries are retained
const DefaultBufferSize = 1000

// Entry is one retained log line
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// RingBuffer keeps the most recent log entries in memory.
// It is an io.Writer fed with zerolog's JSON lines.
type RingBuffer struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// NewRingBuffer creates a buffer holding up to size entries
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &RingBuffer{entries: make([]Entry, size)}
}

// Write parses one JSON log line and stores it
func (b *RingBuffer) Write(p []byte) (int, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		raw = map[string]any{"message": string(p)}
	}

	entry := Entry{Timestamp: time.Now().Format(time.RFC3339)}
	if ts, ok := raw["time"].(string); ok {
		entry.Timestamp = ts
	}
	if lvl, ok := raw["level"].(string); ok {
		entry.Level = lvl
	}
	if msg, ok := raw["message"].(string); ok {
		entry.Message = msg
	}
	delete(raw, "time")
	delete(raw, "level")
	delete(raw, "message")
	if len(raw) > 0 {
		entry.Fields = raw
	}

	b.mu.Lock()
	b.entries[b.next] = entry
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
	b.mu.Unlock()

	return len(p), nil
}

// Entries returns retained entries, oldest first
func (b *RingBuffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		out := make([]Entry, b.next)
		copy(out, b.entries[:b.next])
		return out
	}

	out := make([]Entry, 0, len(b.entries))
	out = append(out, b.entries[b.next:]...)
	out = append(out, b.entries[:b.next]...)
	return out
}
