package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Store owns the two persisted records: the server configuration and
// the ticket collection. Each is read wholesale and written wholesale;
// the mutex serializes every read-modify-write so concurrent handlers
// cannot lose an update at the record level.
type Store struct {
	mu          sync.Mutex
	configPath  string
	ticketsPath string
	logger      *zap.Logger
}

func New(configPath, ticketsPath string, logger *zap.Logger) *Store {
	return &Store{
		configPath:  configPath,
		ticketsPath: ticketsPath,
		logger:      logger,
	}
}

// Ping reports whether the config record's directory is usable. Used
// by the health endpoint.
func (s *Store) Ping() error {
	dir := filepath.Dir(s.configPath)
	_, err := os.Stat(dir)
	return err
}

func (s *Store) readJSON(path string, out any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("corrupt record, using defaults", zap.String("path", path), zap.Error(err))
		return false
	}
	return true
}

// writeJSON persists via temp file plus rename so a crash mid-write
// cannot leave a truncated record. Failures are logged, never fatal.
func (s *Store) writeJSON(path string, value any) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		s.logger.Error("marshal record", zap.String("path", path), zap.Error(err))
		return
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.Error("write record", zap.String("path", path), zap.Error(err))
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		s.logger.Error("rename record", zap.String("path", path), zap.Error(err))
	}
}
