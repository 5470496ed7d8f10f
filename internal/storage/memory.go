package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]Record
	maxBytes int
	now      func() time.Time
}

// NewMemoryStore returns an empty store. maxBytes <= 0 disables the quota.
func NewMemoryStore(maxBytes int) *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]Record),
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// Get returns the record stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Value = append([]byte(nil), rec.Value...)
	return rec, nil
}

// Put stores value under key, replacing any previous value.
func (s *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	if err := checkQuota(key, value, s.maxBytes); err != nil {
		return err
	}

	s.mu.Lock()
	s.records[key] = Record{
		Key:       key,
		Value:     append([]byte(nil), value...),
		Timestamp: s.now().UTC(),
	}
	s.mu.Unlock()
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}
