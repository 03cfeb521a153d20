package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"fintrust/internal/consent/models"
	"fintrust/pkg/platform/sentinel"
)

// InMemoryStore keeps consent records per subject in insertion order.
type InMemoryStore struct {
	mu       sync.RWMutex
	consents map[string][]*models.Record
	byID     map[string]*models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		consents: make(map[string][]*models.Record),
		byID:     make(map[string]*models.Record),
	}
}

func (s *InMemoryStore) Save(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[record.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := *record
	s.consents[record.SubjectID] = append(s.consents[record.SubjectID], &stored)
	s.byID[record.ID] = &stored
	return nil
}

// ListBySubject returns copies of the subject's records, most recently granted first.
func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID string) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.consents[subjectID]
	out := make([]*models.Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		c := *records[i]
		out = append(out, &c)
	}
	slices.SortStableFunc(out, func(a, b *models.Record) int {
		return b.GrantedAt.Compare(a.GrantedAt)
	})
	return out, nil
}

// Revoke sets revoked_at on a record that is not already revoked.
func (s *InMemoryStore) Revoke(_ context.Context, id string, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.byID[id]
	if !ok || record.RevokedAt != nil {
		return sentinel.ErrNotFound
	}
	record.RevokedAt = &revokedAt
	return nil
}
