// Package store persists loan applications.
package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"fintrust/internal/application/models"
	"fintrust/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*models.Application
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[string]*models.Application)}
}

func (s *InMemoryStore) Save(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[app.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := *app
	s.byID[app.ID] = &stored
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *app
	return &out, nil
}

// ListBySubject returns the subject's applications, newest first.
func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID string) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Application
	for _, app := range s.byID {
		if app.SubjectID == subjectID {
			a := *app
			out = append(out, &a)
		}
	}
	slices.SortFunc(out, func(a, b *models.Application) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return out, nil
}
