// Package botlog keeps the bounded in-memory log the panel reads back,
// mirrored to the process logger and forwarded to the panel through a
// pluggable notifier.
package botlog

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	LevelInfo    = "info"
	LevelWarn    = "warn"
	LevelError   = "error"
	LevelSuccess = "success"
	LevelDiscord = "discord"
)

const DefaultCapacity = 1000

type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

type Ring struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
	logger   *zap.Logger
	notify   func(Entry)
}

func New(capacity int, logger *zap.Logger) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{capacity: capacity, logger: logger}
}

// SetNotifier installs the panel forwarder. The notifier runs on its
// own goroutine; a slow panel never blocks a handler.
func (r *Ring) SetNotifier(notify func(Entry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify = notify
}

func (r *Ring) Log(level, message string) {
	entry := Entry{
		ID:        "log_" + uuid.NewString(),
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	}
	r.Append(entry)

	switch level {
	case LevelError:
		r.logger.Error(message)
	case LevelWarn:
		r.logger.Warn(message)
	default:
		r.logger.Info(message, zap.String("level", level))
	}
}

// Append inserts an already-built entry, newest first. Also the path
// for entries pushed by the panel itself.
func (r *Ring) Append(entry Entry) {
	r.mu.Lock()
	r.entries = append([]Entry{entry}, r.entries...)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[:r.capacity]
	}
	notify := r.notify
	r.mu.Unlock()

	if notify != nil {
		go notify(entry)
	}
}

// Recent returns one page of entries, newest first, optionally
// filtered by level, plus the total count after filtering.
func (r *Ring) Recent(level string, limit, offset int) ([]Entry, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	filtered := r.entries
	if level != "" {
		filtered = make([]Entry, 0, len(r.entries))
		for _, entry := range r.entries {
			if entry.Level == level {
				filtered = append(filtered, entry)
			}
		}
	}

	total := len(filtered)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Entry{}, total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}

	page := make([]Entry, end-offset)
	copy(page, filtered[offset:end])
	return page, total
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
