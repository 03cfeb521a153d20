package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrust/internal/application/models"
	"fintrust/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewInMemoryStore()

	for i, id := range []string{"a1", "a2", "a3"} {
		require.NoError(t, s.Save(ctx, &models.Application{
			ID:         id,
			SubjectID:  "subject-1",
			LoanAmount: 1000,
			Purpose:    "car",
			Status:     models.StatusPending,
			CreatedAt:  t0.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.Save(ctx, &models.Application{ID: "b1", SubjectID: "subject-2", CreatedAt: t0}))

	assert.ErrorIs(t, s.Save(ctx, &models.Application{ID: "a1"}), sentinel.ErrConflict)

	list, err := s.ListBySubject(ctx, "subject-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a3", list[0].ID)
	assert.Equal(t, "a1", list[2].ID)

	got, err := s.FindByID(ctx, "a2")
	require.NoError(t, err)
	assert.Equal(t, "subject-1", got.SubjectID)

	_, err = s.FindByID(ctx, "zz")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
