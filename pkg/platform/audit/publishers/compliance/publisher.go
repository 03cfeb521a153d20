// Package compliance publishes audit events that must be on record before the
// action they describe is acknowledged. Emit writes synchronously and a
// failed write is returned to the caller, which fails its own operation.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "fintrust/pkg/platform/audit"
)

// ErrIncompleteEvent rejects events that could not be traced back to a
// subject and the record they concern.
var ErrIncompleteEvent = errors.New("compliance event is incomplete")

type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit stamps an id and timestamp when missing, forces the compliance
// category and appends the event. The id lets teed stores deduplicate.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	switch {
	case event.SubjectID == "":
		return fmt.Errorf("%w: missing subject", ErrIncompleteEvent)
	case event.Action == "":
		return fmt.Errorf("%w: missing action", ErrIncompleteEvent)
	case event.Resource == "":
		return fmt.Errorf("%w: missing resource for %s", ErrIncompleteEvent, event.Action)
	}

	start := time.Now()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = start
	}
	event.Category = audit.CategoryCompliance

	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.IncPersistFailures()
		p.logger.ErrorContext(ctx, "compliance audit write failed",
			"action", event.Action,
			"subject_id", event.SubjectID,
			"resource", event.Resource,
			"error", err,
		)
		return fmt.Errorf("persist compliance event %s: %w", event.Action, err)
	}

	p.metrics.ObservePersistDuration(time.Since(start).Seconds())
	p.metrics.IncEventsEmitted()
	return nil
}
