package logger

import (
	"encoding/json"
	"sync"
)

// recentWindow is how many entries the dashboard can fetch on connect.
// Chat traffic is low-volume, so a few hundred lines cover a session.
const recentWindow = 500

// Broadcaster pushes a typed payload to connected dashboard clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{})
}

// LogEntry is one structured log line as shown in the dashboard log
// view. Component names the subsystem (chat, search, approval, ...);
// Requester and Service are promoted out of the field bag because the
// view filters on them.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Requester string         `json:"requester,omitempty"`
	Service   string         `json:"service,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// LogBroadcaster sits in the zerolog writer chain: it keeps a window
// of recent entries and mirrors each one to the websocket hub.
type LogBroadcaster struct {
	mu     sync.RWMutex
	hub    Broadcaster
	recent *ring
}

// NewLogBroadcaster creates a log stream buffering up to window
// entries (<= 0 uses recentWindow). The hub may be nil until SetHub.
func NewLogBroadcaster(hub Broadcaster, window int) *LogBroadcaster {
	if window <= 0 {
		window = recentWindow
	}
	return &LogBroadcaster{
		hub:    hub,
		recent: newRing(window),
	}
}

// SetHub connects the stream to the hub once it exists. Entries logged
// before that are only buffered.
func (b *LogBroadcaster) SetHub(hub Broadcaster) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hub = hub
}

// Write implements io.Writer for zerolog. Lines that do not decode as
// JSON entries are dropped from the stream but never fail the logger.
func (b *LogBroadcaster) Write(p []byte) (int, error) {
	entry, ok := decodeEntry(p)
	if !ok {
		return len(p), nil
	}

	b.recent.push(entry)

	b.mu.RLock()
	hub := b.hub
	b.mu.RUnlock()

	if hub != nil {
		hub.Broadcast("log:entry", entry)
	}
	return len(p), nil
}

// GetRecentLogs returns the buffered window, oldest entry first.
func (b *LogBroadcaster) GetRecentLogs() []LogEntry {
	return b.recent.snapshot()
}

// decodeEntry maps a zerolog JSON line onto a LogEntry, promoting the
// well-known keys and leaving the rest in Fields.
func decodeEntry(data []byte) (LogEntry, bool) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return LogEntry{}, false
	}

	take := func(key string) string {
		s, _ := raw[key].(string)
		delete(raw, key)
		return s
	}

	entry := LogEntry{
		Timestamp: take("time"),
		Level:     take("level"),
		Component: take("component"),
		Requester: take("requester"),
		Service:   take("service"),
		Message:   take("message"),
	}
	if len(raw) > 0 {
		entry.Fields = raw
	}
	return entry, true
}
