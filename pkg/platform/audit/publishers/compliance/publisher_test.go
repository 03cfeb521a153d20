package compliance

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "fintrust/pkg/platform/audit"
	"fintrust/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("disk full")
}

func (failingStore) ListBySubject(context.Context, string) ([]audit.Event, error) {
	return nil, nil
}

func grantEvent() audit.Event {
	return audit.Event{
		SubjectID: "subj-1",
		Resource:  "consent-1",
		Action:    string(audit.EventConsentGranted),
		Purpose:   "LOAN",
	}
}

func TestEmit(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps and persists in the compliance category", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		m := NewMetrics(prometheus.NewRegistry())
		pub := New(store, WithMetrics(m))

		require.NoError(t, pub.Emit(ctx, grantEvent()))

		events, err := store.ListBySubject(ctx, "subj-1")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, audit.CategoryCompliance, events[0].Category)
		assert.NotEmpty(t, events[0].ID)
		assert.False(t, events[0].Timestamp.IsZero())
		assert.InDelta(t, 1, testutil.ToFloat64(m.eventsEmitted), 0)
	})

	t.Run("keeps a caller supplied id", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		event := grantEvent()
		event.ID = "evt-7"
		require.NoError(t, New(store).Emit(ctx, event))

		events, _ := store.ListBySubject(ctx, "subj-1")
		require.Len(t, events, 1)
		assert.Equal(t, "evt-7", events[0].ID)
	})

	t.Run("fails closed when the store fails", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		pub := New(failingStore{}, WithMetrics(m))

		err := pub.Emit(ctx, grantEvent())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.InDelta(t, 1, testutil.ToFloat64(m.persistFailures), 0)
	})

	t.Run("rejects untraceable events", func(t *testing.T) {
		pub := New(memory.NewInMemoryStore())
		for name, mutate := range map[string]func(*audit.Event){
			"subject":  func(e *audit.Event) { e.SubjectID = "" },
			"action":   func(e *audit.Event) { e.Action = "" },
			"resource": func(e *audit.Event) { e.Resource = "" },
		} {
			event := grantEvent()
			mutate(&event)
			assert.ErrorIs(t, pub.Emit(ctx, event), ErrIncompleteEvent, name)
		}
	})
}
