package utils

import (
	"sync"
	"time"
)

type JoinEvent struct {
	UserID      string
	DisplayName string
	At          time.Time
}

// JoinWindow keeps the joins observed during the last window. Entries
// strictly older than the window are evicted lazily on each Add.
type JoinWindow struct {
	mu      sync.Mutex
	window  time.Duration
	entries []JoinEvent
}

func NewJoinWindow(window time.Duration) *JoinWindow {
	return &JoinWindow{window: window}
}

func (w *JoinWindow) SetWindow(window time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.window = window
}

// Add records a join and returns a snapshot of the in-window entries,
// the new join included. A zero window keeps only joins with the exact
// same timestamp.
func (w *JoinWindow) Add(event JoinEvent) []JoinEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := event.At.Add(-w.window)
	idx := 0
	for _, entry := range w.entries {
		if !entry.At.Before(cutoff) {
			break
		}
		idx++
	}
	w.entries = w.entries[idx:]
	w.entries = append(w.entries, event)

	snapshot := make([]JoinEvent, len(w.entries))
	copy(snapshot, w.entries)
	return snapshot
}
