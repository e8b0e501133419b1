package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

// MemoryStore is an in-memory RecordStore for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.CallRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]model.CallRecord),
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, rec model.CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.CallID] = rec
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, callID string) (model.CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[callID]
	if !ok {
		return model.CallRecord{}, fmt.Errorf("call record %s: %w", callID, model.ErrNotFound)
	}
	return rec, nil
}

func (s *MemoryStore) List(ctx context.Context, limit, offset int) ([]model.CallRecord, int, error) {
	all, _ := s.All(ctx)
	return page(all, limit, offset), len(all), nil
}

func (s *MemoryStore) All(ctx context.Context) ([]model.CallRecord, error) {
	s.mu.RLock()
	out := make([]model.CallRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
