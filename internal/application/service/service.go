// Package service accepts loan applications and hands them to scoring
// without waiting for a score.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"fintrust/internal/application/models"
	"fintrust/internal/scoring/features"
	scoringmetrics "fintrust/internal/scoring/metrics"
	scoring "fintrust/internal/scoring/models"
	dErrors "fintrust/pkg/domain-errors"
	"fintrust/pkg/platform/audit"
	"fintrust/pkg/platform/sentinel"
	"fintrust/pkg/requestcontext"
)

// Store persists applications. FindByID returns sentinel.ErrNotFound.
type Store interface {
	Save(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	ListBySubject(ctx context.Context, subjectID string) ([]*models.Application, error)
}

// Queue accepts scoring jobs without blocking.
type Queue interface {
	Enqueue(ctx context.Context, applicationID string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store   Store
	queue   Queue
	auditor AuditPublisher
	metrics *scoringmetrics.Metrics
	logger  *slog.Logger
}

type Option func(*Service)

func WithQueue(q Queue) Option {
	return func(s *Service) {
		s.queue = q
	}
}

func WithAuditor(a AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithMetrics(m *scoringmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates and stores a PENDING application, then queues it for
// scoring. Queueing and auditing failures are logged, never returned.
func (s *Service) Submit(ctx context.Context, subjectID string, req models.SubmitRequest) (*models.Application, error) {
	if subjectID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	app, err := s.build(ctx, subjectID, req)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to save application")
	}

	s.enqueue(ctx, app.ID)
	s.emitSubmitted(ctx, app)

	s.logger.InfoContext(ctx, "application submitted",
		"application_id", app.ID,
		"subject_id", subjectID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return app, nil
}

func (s *Service) build(ctx context.Context, subjectID string, req models.SubmitRequest) (*models.Application, error) {
	if req.LoanAmount == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "loan_amount is required")
	}
	purpose := strings.TrimSpace(req.Purpose)
	if purpose == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "purpose is required")
	}
	if utf8.RuneCountInString(purpose) > models.MaxPurposeLength {
		return nil, dErrors.New(dErrors.CodeValidation, "purpose must be at most 500 characters")
	}

	now := requestcontext.Now(ctx)
	app := &models.Application{
		ID:         uuid.NewString(),
		SubjectID:  subjectID,
		LoanAmount: *req.LoanAmount,
		Purpose:    purpose,
		Age:        req.Age,
		Gender:     req.Gender,
		Income:     req.Income,
		Livelihood: req.Livelihood,
		Status:     models.StatusPending,
		ConsentID:  requestcontext.ConsentID(ctx),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Anything derivation would reject is rejected here, before persistence.
	if _, err := features.Derive(app.FeatureInput()); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *Service) enqueue(ctx context.Context, applicationID string) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(ctx, applicationID); err != nil {
		s.metrics.IncEnqueueFailure()
		s.logger.WarnContext(ctx, "failed to enqueue application for scoring",
			"application_id", applicationID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) emitSubmitted(ctx context.Context, app *models.Application) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		ID:        uuid.NewString(),
		SubjectID: app.SubjectID,
		Resource:  app.ID,
		Action:    string(audit.EventApplicationSubmitted),
		Purpose:   "LOAN",
		RequestID: requestcontext.RequestID(ctx),
		Attributes: map[string]string{
			"loan_amount": strconv.FormatFloat(app.LoanAmount, 'f', -1, 64),
			"consent_id":  app.ConsentID,
		},
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit application audit event",
			"application_id", app.ID,
			"error", err,
		)
	}
}

// Get returns an application owned by subjectID.
func (s *Service) Get(ctx context.Context, subjectID, id string) (*models.Application, error) {
	app, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load application")
	}
	if app.SubjectID != subjectID {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	return app, nil
}

// List returns the subject's applications, newest first.
func (s *Service) List(ctx context.Context, subjectID string) ([]*models.Application, error) {
	apps, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list applications")
	}
	return apps, nil
}

// LoadScoringRequest resolves a queued application id for the scoring worker.
func (s *Service) LoadScoringRequest(ctx context.Context, applicationID string) (*scoring.Request, error) {
	app, err := s.store.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return app.ScoringRequest(), nil
}
