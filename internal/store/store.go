// Package store persists order records as a single JSON document keyed by
// order id. It is the durable history behind the in-memory pending registry:
// live waits do not survive a restart, completed/timeout status does.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/danglehoang/vietqr-gateway/internal/models"
	"go.uber.org/zap"
)

// FileStore reads and writes the orders file. All writes are serialized
// through an internal mutex and go through Update's read-modify-write, so two
// interleaved handlers cannot lose each other's update. The file itself is
// replaced via temp-file rename, never rewritten in place.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load returns all persisted orders. A missing or unreadable file is treated
// as empty history, never as an error: the gateway must come up cleanly on
// first run and after a corrupted write.
func (s *FileStore) Load() map[string]models.OrderRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) loadLocked() map[string]models.OrderRecord {
	orders := make(map[string]models.OrderRecord)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("orders file unreadable, starting from empty history",
				zap.String("path", s.path), zap.Error(err))
		}
		return orders
	}
	if err := json.Unmarshal(data, &orders); err != nil {
		s.logger.Warn("orders file corrupt, starting from empty history",
			zap.String("path", s.path), zap.Error(err))
		return make(map[string]models.OrderRecord)
	}
	return orders
}

// Save overwrites the full durable record set atomically from the reader's
// perspective: the document is written to a temp file in the same directory
// and renamed over the live one.
func (s *FileStore) Save(orders map[string]models.OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(orders)
}

func (s *FileStore) saveLocked(orders map[string]models.OrderRecord) error {
	data, err := json.MarshalIndent(orders, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Update applies fn to the current record set and persists the result under
// one lock acquisition. Handlers racing around their own load/save windows
// was a lost-update hazard; routing every write through here removes it.
func (s *FileStore) Update(fn func(orders map[string]models.OrderRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := s.loadLocked()
	fn(orders)
	return s.saveLocked(orders)
}
