package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// MemoryStore is an in-memory Store. It is safe for concurrent use; data is
// lost when the process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]*models.TransactionRecord
	messages map[string]string // message key -> record ID
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]*models.TransactionRecord),
		messages: make(map[string]string),
	}
}

func messageKey(rec models.TransactionRecord) string {
	return rec.Sender + "\x00" + rec.Body + "\x00" + strconv.FormatInt(rec.TimestampMillis, 10)
}

// Insert implements Store.
func (s *MemoryStore) Insert(ctx context.Context, rec models.TransactionRecord) (bool, error) {
	if rec.ID == "" {
		return false, fmt.Errorf("record ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := messageKey(rec)
	if _, dup := s.messages[key]; dup {
		return false, nil
	}
	if _, dup := s.records[rec.ID]; dup {
		return false, nil
	}
	// Copy to avoid external modifications
	recCopy := rec
	s.records[rec.ID] = &recCopy
	s.messages[key] = rec.ID
	return true, nil
}

// MarkExcluded implements Store. Unknown IDs are ignored.
func (s *MemoryStore) MarkExcluded(ctx context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if rec, ok := s.records[id]; ok {
			rec.Excluded = true
		}
	}
	return nil
}

// Range implements Store.
func (s *MemoryStore) Range(ctx context.Context, from, to int64) ([]models.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.TransactionRecord
	for _, rec := range s.records {
		if rec.TimestampMillis < from || (to > 0 && rec.TimestampMillis > to) {
			continue
		}
		result = append(result, *rec)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TimestampMillis != result[j].TimestampMillis {
			return result[i].TimestampMillis < result[j].TimestampMillis
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (models.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return models.TransactionRecord{}, ErrNotFound
	}
	return *rec, nil
}
