package inference

import (
	"context"
	"log/slog"

	dErrors "fintrust/pkg/domain-errors"
	"fintrust/pkg/platform/circuit"
)

// GuardedRuntime stops calling a failing runtime until its breaker lets a
// probe through. Rejected calls fail with CodeModelNotReady so scoring takes
// the fallback path without waiting on the runtime's timeout.
type GuardedRuntime struct {
	runtime Runtime
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuardedRuntime(runtime Runtime, breaker *circuit.Breaker, logger *slog.Logger) *GuardedRuntime {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuardedRuntime{runtime: runtime, breaker: breaker, logger: logger}
}

func (g *GuardedRuntime) Version() string {
	return g.runtime.Version()
}

func (g *GuardedRuntime) Run(ctx context.Context, feeds Feeds) (Outputs, error) {
	if !g.breaker.Allow() {
		return nil, dErrors.New(dErrors.CodeModelNotReady, "classifier circuit is open")
	}

	out, err := g.runtime.Run(ctx, feeds)
	if err != nil {
		// A caller that gave up, or a call that was merely slow, says nothing
		// about the runtime's health.
		if ctx.Err() != nil || dErrors.HasCode(err, dErrors.CodeTimeout) {
			return nil, err
		}
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "classifier circuit opened", "breaker", g.breaker.Name(), "error", err)
		}
		return nil, err
	}

	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "classifier circuit closed", "breaker", g.breaker.Name())
	}
	return out, nil
}
