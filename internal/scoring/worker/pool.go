package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrust/internal/scoring/models"
	dErrors "fintrust/pkg/domain-errors"
	"fintrust/pkg/requestcontext"
)

const retryDelay = 250 * time.Millisecond

// Scorer runs the scoring pipeline for one application.
type Scorer interface {
	Score(ctx context.Context, req models.Request) (*models.ScoreRecord, error)
}

// Loader resolves a queued application id into a scoring request.
type Loader interface {
	LoadScoringRequest(ctx context.Context, applicationID string) (*models.Request, error)
}

// Pool runs a fixed number of workers over a Queue.
type Pool struct {
	queue   Queue
	loader  Loader
	scorer  Scorer
	workers int
	logger  *slog.Logger
}

func NewPool(queue Queue, loader Loader, scorer Scorer, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{queue: queue, loader: loader, scorer: scorer, workers: workers, logger: logger}
}

// Run blocks until ctx is cancelled or the queue is closed and drained.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range p.workers {
		g.Go(func() error {
			return p.loop(ctx, i)
		})
	}
	return g.Wait()
}

func (p *Pool) loop(ctx context.Context, worker int) error {
	for {
		id, err := p.queue.Dequeue(ctx)
		switch {
		case err == nil:
			p.process(ctx, id)
		case errors.Is(err, ErrQueueClosed), ctx.Err() != nil:
			return nil
		default:
			p.logger.WarnContext(ctx, "scoring queue read failed", "worker", worker, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryDelay):
			}
		}
	}
}

func (p *Pool) process(ctx context.Context, applicationID string) {
	ctx = requestcontext.WithTime(ctx, time.Now())

	req, err := p.loader.LoadScoringRequest(ctx, applicationID)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to load application for scoring",
			"application_id", applicationID,
			"error", err,
		)
		return
	}

	if _, err := p.scorer.Score(ctx, *req); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			p.logger.InfoContext(ctx, "application already scored", "application_id", applicationID)
			return
		}
		p.logger.ErrorContext(ctx, "scoring failed",
			"application_id", applicationID,
			"error", err,
		)
	}
}
