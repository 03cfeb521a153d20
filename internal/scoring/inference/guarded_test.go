package inference

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "fintrust/pkg/domain-errors"
	"fintrust/pkg/platform/circuit"
)

type flakyRuntime struct {
	err   error
	calls int
}

func (f *flakyRuntime) Version() string { return "flaky" }

func (f *flakyRuntime) Run(context.Context, Feeds) (Outputs, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return Outputs{"probabilities": {Values: []float32{0.2, 0.8}}}, nil
}

func TestGuardedRuntime(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	newGuard := func(rt Runtime) *GuardedRuntime {
		breaker := circuit.New("classifier",
			circuit.WithFailureThreshold(2),
			circuit.WithSuccessThreshold(1),
			circuit.WithCooldown(time.Minute),
			circuit.WithClock(func() time.Time { return now }),
		)
		return NewGuardedRuntime(rt, breaker, logger)
	}

	t.Run("open breaker short-circuits to model not ready", func(t *testing.T) {
		rt := &flakyRuntime{err: errors.New("connection refused")}
		guard := newGuard(rt)

		for range 2 {
			_, err := guard.Run(context.Background(), Feeds{})
			require.Error(t, err)
		}
		_, err := guard.Run(context.Background(), Feeds{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeModelNotReady))
		assert.Equal(t, 2, rt.calls, "no call reaches the runtime while open")
	})

	t.Run("probe after cooldown closes on success", func(t *testing.T) {
		rt := &flakyRuntime{err: errors.New("connection refused")}
		guard := newGuard(rt)
		for range 2 {
			_, _ = guard.Run(context.Background(), Feeds{})
		}

		rt.err = nil
		now = now.Add(2 * time.Minute)
		out, err := guard.Run(context.Background(), Feeds{})
		require.NoError(t, err)
		assert.Equal(t, []float32{0.2, 0.8}, out["probabilities"].Values)
		assert.False(t, guard.breaker.IsOpen())
	})

	t.Run("cancelled callers do not trip the breaker", func(t *testing.T) {
		rt := &flakyRuntime{err: context.Canceled}
		guard := newGuard(rt)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		for range 3 {
			_, _ = guard.Run(ctx, Feeds{})
		}
		assert.False(t, guard.breaker.IsOpen())
		assert.Equal(t, 3, rt.calls)
	})

	t.Run("slow calls do not trip the breaker", func(t *testing.T) {
		rt := &flakyRuntime{err: dErrors.New(dErrors.CodeTimeout, "model service timed out")}
		guard := newGuard(rt)

		for range 3 {
			_, err := guard.Run(context.Background(), Feeds{})
			assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
		}
		assert.False(t, guard.breaker.IsOpen())
		assert.Equal(t, 3, rt.calls)
	})

	t.Run("version passes through", func(t *testing.T) {
		assert.Equal(t, "flaky", newGuard(&flakyRuntime{}).Version())
	})
}
