// Package service hosts the scoring orchestrator: derive, infer with fallback,
// classify, persist once per application.
package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fintrust/internal/scoring/features"
	"fintrust/internal/scoring/inference"
	"fintrust/internal/scoring/metrics"
	"fintrust/internal/scoring/models"
	"fintrust/internal/scoring/ports"
	"fintrust/internal/scoring/risk"
	dErrors "fintrust/pkg/domain-errors"
	"fintrust/pkg/platform/audit"
	"fintrust/pkg/platform/sentinel"
	"fintrust/pkg/requestcontext"
)

const tracerName = "fintrust/scoring"

// Orchestrator scores applications. It is safe for concurrent use; the
// inferrer is shared and read-only.
type Orchestrator struct {
	store    ports.ScoreStore
	inferrer ports.Inferrer
	locker   ports.Locker
	auditor  ports.AuditPort
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

type Option func(*Orchestrator)

// WithLocker replaces the in-process application lock.
func WithLocker(l ports.Locker) Option {
	return func(o *Orchestrator) {
		o.locker = l
	}
}

func WithAuditor(a ports.AuditPort) Option {
	return func(o *Orchestrator) {
		o.auditor = a
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// New builds an orchestrator. inferrer carries the startup model load result;
// an adapter without a runtime sends every application down the fallback path.
func New(store ports.ScoreStore, inferrer ports.Inferrer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		inferrer: inferrer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.locker == nil {
		o.locker = NewLocalLocker()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	return o
}

// Score runs the pipeline for one application and persists the result.
// Inference failures become a fallback record; a second attempt for the same
// application is rejected with CodeConflict.
func (o *Orchestrator) Score(ctx context.Context, req models.Request) (*models.ScoreRecord, error) {
	if req.ApplicationID == "" || req.SubjectID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "application id and subject id are required")
	}
	start := time.Now()

	if err := o.ensureUnscored(ctx, req.ApplicationID); err != nil {
		return nil, err
	}

	release, err := o.locker.Acquire(ctx, req.ApplicationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrLocked) {
			return nil, dErrors.New(dErrors.CodeConflict, "application is already being scored")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to lock application")
	}
	defer release()

	vector, err := o.derive(ctx, req)
	if err != nil {
		return nil, err
	}

	record := &models.ScoreRecord{
		ID:            uuid.NewString(),
		ApplicationID: req.ApplicationID,
		SubjectID:     req.SubjectID,
		Breakdown:     vector,
		ModelVersion:  o.inferrer.ModelVersion(),
		ScoredAt:      requestcontext.Now(ctx),
	}

	result, inferErr := o.infer(ctx, vector)
	if inferErr != nil && ctx.Err() != nil {
		// The caller gave up; the application stays unscored so a later job can score it.
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "scoring interrupted before inference finished")
	}
	if inferErr != nil {
		o.logger.WarnContext(ctx, "inference failed, recording fallback score",
			"application_id", req.ApplicationID,
			"error", inferErr,
			"request_id", requestcontext.RequestID(ctx),
		)
		record.Probability = models.FallbackProbability
		record.Creditworthy = false
		record.RiskTier = models.FallbackTier
		record.Outcome = models.OutcomeFallback
	} else {
		record.Probability = result.Probability
		record.Creditworthy = result.Creditworthy
		record.RiskTier = risk.Classify(result.Probability)
		record.Outcome = models.OutcomeScored
	}

	if err := o.persist(ctx, record); err != nil {
		return nil, err
	}

	o.metrics.IncOutcome(string(record.Outcome), string(record.RiskTier))
	o.metrics.ObserveScoring(time.Since(start))
	o.logger.InfoContext(ctx, "application scored",
		"application_id", record.ApplicationID,
		"subject_id", record.SubjectID,
		"probability", record.Probability,
		"risk_tier", record.RiskTier,
		"creditworthy", record.Creditworthy,
		"model_version", record.ModelVersion,
		"fallback", record.Fallback(),
		"request_id", requestcontext.RequestID(ctx),
	)
	o.emit(ctx, record)

	return record, nil
}

func (o *Orchestrator) ensureUnscored(ctx context.Context, applicationID string) error {
	_, err := o.store.FindByApplication(ctx, applicationID)
	switch {
	case err == nil:
		return dErrors.New(dErrors.CodeConflict, "application already scored")
	case errors.Is(err, sentinel.ErrNotFound):
		return nil
	default:
		return dErrors.Wrap(err, dErrors.CodeStorage, "failed to check existing score")
	}
}

func (o *Orchestrator) derive(ctx context.Context, req models.Request) (features.Vector, error) {
	_, span := o.tracer.Start(ctx, "scoring.derive",
		trace.WithAttributes(attribute.String("application_id", req.ApplicationID)))
	defer span.End()

	vector, err := features.Derive(req.Input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "derive failed")
		return features.Vector{}, err
	}
	return vector, nil
}

func (o *Orchestrator) infer(ctx context.Context, vector features.Vector) (inference.Result, error) {
	ctx, span := o.tracer.Start(ctx, "scoring.infer",
		trace.WithAttributes(attribute.String("model_version", o.inferrer.ModelVersion())))
	defer span.End()

	start := time.Now()
	result, err := o.inferrer.Infer(ctx, vector)
	o.metrics.ObserveInference(time.Since(start), err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inference failed")
		return inference.Result{}, err
	}
	span.SetAttributes(attribute.Float64("probability", result.Probability))
	return result, nil
}

func (o *Orchestrator) persist(ctx context.Context, record *models.ScoreRecord) error {
	ctx, span := o.tracer.Start(ctx, "scoring.persist",
		trace.WithAttributes(
			attribute.String("application_id", record.ApplicationID),
			attribute.String("outcome", string(record.Outcome)),
		))
	defer span.End()

	err := o.store.Save(ctx, record)
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "persist failed")
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeConflict, "application already scored")
	}
	return dErrors.Wrap(err, dErrors.CodeStorage, "failed to save score")
}

// emit is best-effort: scoring has already committed.
func (o *Orchestrator) emit(ctx context.Context, record *models.ScoreRecord) {
	if o.auditor == nil {
		return
	}
	action := audit.EventApplicationScored
	if record.Fallback() {
		action = audit.EventApplicationScoreFallback
	}
	err := o.auditor.Emit(ctx, audit.Event{
		ID:        uuid.NewString(),
		SubjectID: record.SubjectID,
		Resource:  record.ApplicationID,
		Action:    string(action),
		Decision:  string(record.RiskTier),
		RequestID: requestcontext.RequestID(ctx),
		Attributes: map[string]string{
			"score_id":      record.ID,
			"probability":   strconv.FormatFloat(record.Probability, 'f', -1, 64),
			"creditworthy":  strconv.FormatBool(record.Creditworthy),
			"model_version": record.ModelVersion,
			"outcome":       string(record.Outcome),
		},
	})
	if err != nil {
		o.logger.WarnContext(ctx, "failed to emit scoring audit event",
			"application_id", record.ApplicationID,
			"error", err,
		)
	}
}

// Get returns the score for an application owned by subjectID.
func (o *Orchestrator) Get(ctx context.Context, subjectID, applicationID string) (*models.ScoreRecord, error) {
	record, err := o.store.FindByApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "score not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load score")
	}
	if record.SubjectID != subjectID {
		return nil, dErrors.New(dErrors.CodeNotFound, "score not found")
	}
	return record, nil
}

// List returns the subject's scores, newest first.
func (o *Orchestrator) List(ctx context.Context, subjectID string) ([]*models.ScoreRecord, error) {
	records, err := o.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list scores")
	}
	sortNewestFirst(records)
	return records, nil
}

// ListForApplications returns the subject's scores for the given applications,
// newest first. Applications without a score are skipped.
func (o *Orchestrator) ListForApplications(ctx context.Context, subjectID string, applicationIDs []string) ([]*models.ScoreRecord, error) {
	found, err := o.store.FindByApplications(ctx, applicationIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load scores")
	}
	records := make([]*models.ScoreRecord, 0, len(found))
	for _, r := range found {
		if r.SubjectID == subjectID {
			records = append(records, r)
		}
	}
	sortNewestFirst(records)
	return records, nil
}

func sortNewestFirst(records []*models.ScoreRecord) {
	slices.SortStableFunc(records, func(a, b *models.ScoreRecord) int {
		return b.ScoredAt.Compare(a.ScoredAt)
	})
}
