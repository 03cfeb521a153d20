package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrust/internal/consent/store"
	dErrors "fintrust/pkg/domain-errors"
)

func TestStripedTx(t *testing.T) {
	t.Run("cancelled context never runs fn", func(t *testing.T) {
		tx := NewShardedTx(store.NewInMemoryStore())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ran := false
		err := tx.RunInTx(ctx, "subject-1", func(context.Context, Store) error {
			ran = true
			return nil
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
		assert.False(t, ran)
	})

	t.Run("adds a deadline when the caller has none", func(t *testing.T) {
		tx := NewShardedTx(store.NewInMemoryStore())
		err := tx.RunInTx(context.Background(), "subject-1", func(ctx context.Context, _ Store) error {
			deadline, ok := ctx.Deadline()
			assert.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(txTimeout), deadline, time.Second)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("same subject is serialized", func(t *testing.T) {
		tx := NewShardedTx(store.NewInMemoryStore())
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			inside  int
			maxSeen int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = tx.RunInTx(context.Background(), "subject-1", func(context.Context, Store) error {
					mu.Lock()
					inside++
					maxSeen = max(maxSeen, inside)
					mu.Unlock()
					time.Sleep(time.Millisecond)
					mu.Lock()
					inside--
					mu.Unlock()
					return nil
				})
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, maxSeen)
	})
}
