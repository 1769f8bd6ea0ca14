package store

import (
	"context"
	"sort"
	"sync"

	"transferdesk/internal/tracking"
	"transferdesk/pkg/sentinel"
)

// InMemoryRecordStore keeps tracked records in process. The status
// comparison inside Put happens under the store lock, so two writers racing
// from the same prior status cannot both win.
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string]tracking.Record
}

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{records: make(map[string]tracking.Record)}
}

func (s *InMemoryRecordStore) Create(_ context.Context, record tracking.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}
	s.records[record.ID] = record
	return nil
}

func (s *InMemoryRecordStore) Get(_ context.Context, id string) (tracking.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return tracking.Record{}, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *InMemoryRecordStore) List(_ context.Context) ([]tracking.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]tracking.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Restore overwrites the stored record unconditionally. It exists for the
// transactional boundary's compensation path and must not be used as a
// mutation shortcut.
func (s *InMemoryRecordStore) Restore(_ context.Context, record tracking.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
}

// Remove deletes the record. Compensation path only.
func (s *InMemoryRecordStore) Remove(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

func (s *InMemoryRecordStore) Put(_ context.Context, record tracking.Record, expectedPrior tracking.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[record.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Status != expectedPrior {
		return sentinel.ErrConflict
	}
	s.records[record.ID] = record
	return nil
}
