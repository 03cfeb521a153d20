// Package store persists score records.
package store

import (
	"context"
	"sync"

	"fintrust/internal/scoring/models"
	"fintrust/pkg/platform/sentinel"
)

// InMemoryStore indexes scores by application. Save enforces one score per
// application the way the unique constraint does in PostgreSQL.
type InMemoryStore struct {
	mu            sync.RWMutex
	byApplication map[string]*models.ScoreRecord
	bySubject     map[string][]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byApplication: make(map[string]*models.ScoreRecord),
		bySubject:     make(map[string][]string),
	}
}

func (s *InMemoryStore) Save(_ context.Context, record *models.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byApplication[record.ApplicationID]; exists {
		return sentinel.ErrConflict
	}
	stored := *record
	s.byApplication[record.ApplicationID] = &stored
	s.bySubject[record.SubjectID] = append(s.bySubject[record.SubjectID], record.ApplicationID)
	return nil
}

func (s *InMemoryStore) FindByApplication(_ context.Context, applicationID string) (*models.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.byApplication[applicationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *record
	return &out, nil
}

func (s *InMemoryStore) FindByApplications(_ context.Context, applicationIDs []string) (map[string]*models.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.ScoreRecord, len(applicationIDs))
	for _, id := range applicationIDs {
		if record, ok := s.byApplication[id]; ok {
			r := *record
			out[id] = &r
		}
	}
	return out, nil
}

// ListBySubject returns the subject's scores in insertion order.
func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID string) ([]*models.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.bySubject[subjectID]
	out := make([]*models.ScoreRecord, 0, len(ids))
	for _, id := range ids {
		r := *s.byApplication[id]
		out = append(out, &r)
	}
	return out, nil
}
