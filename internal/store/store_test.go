package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danglehoang/vietqr-gateway/internal/models"
	"github.com/danglehoang/vietqr-gateway/pkg"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.json")
	return NewFileStore(path, zap.NewNop())
}

func TestLoad_MissingFileIsEmptyHistory(t *testing.T) {
	s := newTestStore(t)
	assert.Empty(t, s.Load())
}

func TestLoad_CorruptFileIsEmptyHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	assert.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewFileStore(path, zap.NewNop())
	assert.Empty(t, s.Load())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	orders := map[string]models.OrderRecord{
		"ORD1": {OrderID: "ORD1", Status: pkg.OrderStatusPending, Price: 5000, Timestamp: ts},
	}
	assert.NoError(t, s.Save(orders))

	loaded := s.Load()
	assert.Len(t, loaded, 1)
	assert.Equal(t, orders["ORD1"], loaded["ORD1"])
}

func TestUpdate_ReadModifyWriteVisible(t *testing.T) {
	s := newTestStore(t)

	assert.NoError(t, s.Update(func(orders map[string]models.OrderRecord) {
		orders["ORD1"] = models.OrderRecord{OrderID: "ORD1", Status: pkg.OrderStatusPending, Price: 5000}
	}))
	assert.NoError(t, s.Update(func(orders map[string]models.OrderRecord) {
		rec := orders["ORD1"]
		rec.Status = pkg.OrderStatusTimeout
		orders["ORD1"] = rec
	}))

	loaded := s.Load()
	assert.Equal(t, pkg.OrderStatusTimeout, loaded["ORD1"].Status)
}

func TestUpdate_ConcurrentWritersLoseNothing(t *testing.T) {
	s := newTestStore(t)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('A' + n))
			_ = s.Update(func(orders map[string]models.OrderRecord) {
				orders[id] = models.OrderRecord{OrderID: id, Status: pkg.OrderStatusPending, Price: int64(n + 1)}
			})
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Load(), writers)
}
