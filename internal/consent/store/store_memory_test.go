package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrust/internal/consent/models"
	"fintrust/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	s := NewInMemoryStore()
	require.NoError(t, s.Save(ctx, &models.Record{ID: "a", SubjectID: "subj", Agreed: true, GrantedAt: base}))
	require.NoError(t, s.Save(ctx, &models.Record{ID: "b", SubjectID: "subj", Agreed: true, GrantedAt: base.Add(time.Hour)}))
	require.NoError(t, s.Save(ctx, &models.Record{ID: "c", SubjectID: "other", Agreed: true, GrantedAt: base}))

	t.Run("lists newest first per subject", func(t *testing.T) {
		records, err := s.ListBySubject(ctx, "subj")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "b", records[0].ID)
		assert.Equal(t, "a", records[1].ID)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		records, err := s.ListBySubject(ctx, "subj")
		require.NoError(t, err)
		records[0].Agreed = false

		again, err := s.ListBySubject(ctx, "subj")
		require.NoError(t, err)
		assert.True(t, again[0].Agreed)
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		assert.ErrorIs(t, s.Save(ctx, &models.Record{ID: "a", SubjectID: "subj"}), sentinel.ErrConflict)
	})

	t.Run("revoke once", func(t *testing.T) {
		at := base.Add(2 * time.Hour)
		require.NoError(t, s.Revoke(ctx, "b", at))
		assert.ErrorIs(t, s.Revoke(ctx, "b", at), sentinel.ErrNotFound)
		assert.ErrorIs(t, s.Revoke(ctx, "missing", at), sentinel.ErrNotFound)

		records, err := s.ListBySubject(ctx, "subj")
		require.NoError(t, err)
		require.NotNil(t, records[0].RevokedAt)
		assert.Equal(t, at, *records[0].RevokedAt)
	})
}
