package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrust/internal/consent/models"
	dErrors "fintrust/pkg/domain-errors"
	audit "fintrust/pkg/platform/audit"
	"fintrust/pkg/platform/sentinel"
	"fintrust/pkg/requestcontext"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// Store is the append-only consent ledger persistence port.
type Store interface {
	Save(ctx context.Context, record *models.Record) error
	// ListBySubject returns every record for the subject, most recently granted first.
	ListBySubject(ctx context.Context, subjectID string) ([]*models.Record, error)
	// Revoke sets revoked_at on an unrevoked record; sentinel.ErrNotFound otherwise.
	Revoke(ctx context.Context, id string, revokedAt time.Time) error
}

// AuditPublisher records compliance events. A failed emit fails the mutation.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Forwarder receives compliance events once the mutation that produced them
// has committed. Failures are logged; the committed audit row is the record.
type Forwarder interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service persists consent decisions and answers purpose-scoped validity
// checks. It keeps orchestration out of handlers and domain logic thin.
type Service struct {
	store     Store
	tx        ConsentStoreTx
	auditor   AuditPublisher
	forwarder Forwarder
	metrics   *Metrics
	logger    *slog.Logger
}

type Option func(*Service)

// WithTx replaces the default in-process transaction boundary.
func WithTx(tx ConsentStoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithAuditor(auditor AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// WithForwarder streams committed compliance events to an outside sink.
func WithForwarder(f Forwarder) Option {
	return func(s *Service) {
		s.forwarder = f
	}
}

func WithMetrics(m *Metrics) Option {
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
	if s.tx == nil {
		s.tx = NewShardedTx(store)
	}
	return s
}

// Grant always appends a new record; prior records are never touched.
func (s *Service) Grant(ctx context.Context, grant models.Grant) (*models.Record, error) {
	if grant.SubjectID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "subject is required")
	}
	purpose, err := models.ParsePurpose(string(grant.Purpose))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid consent purpose")
	}

	now := requestcontext.Now(ctx)
	record := &models.Record{
		ID:            uuid.NewString(),
		SubjectID:     grant.SubjectID,
		Purpose:       purpose,
		Agreed:        grant.Agreed,
		GrantedAt:     now,
		ExpiresAt:     now.Add(models.ExpiryWindow),
		OriginAddress: grant.OriginAddress,
		ClientAgent:   grant.ClientAgent,
	}

	action := audit.EventConsentGranted
	decision := "agreed"
	if !grant.Agreed {
		action = audit.EventConsentDeclined
		decision = "declined"
	}

	event := audit.Event{
		ID:        uuid.NewString(),
		SubjectID: record.SubjectID,
		Resource:  record.ID,
		Action:    string(action),
		Purpose:   string(record.Purpose),
		Decision:  decision,
		Timestamp: now,
		RequestID: requestcontext.RequestID(ctx),
		Attributes: map[string]string{
			"origin_address": record.OriginAddress,
			"client_device":  DescribeAgent(record.ClientAgent),
			"expires_at":     record.ExpiresAt.Format(time.RFC3339),
		},
	}
	err = s.tx.RunInTx(ctx, grant.SubjectID, func(txCtx context.Context, store Store) error {
		if err := store.Save(txCtx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeStorage, "failed to record consent")
		}
		return s.emit(txCtx, event)
	})
	if err != nil {
		return nil, err
	}
	s.forward(ctx, event)

	s.metrics.IncGrant(record.Purpose, record.Agreed)
	s.logger.InfoContext(ctx, "consent recorded",
		"consent_id", record.ID,
		"subject_id", record.SubjectID,
		"purpose", record.Purpose,
		"agreed", record.Agreed,
		"request_id", requestcontext.RequestID(ctx),
	)
	return record, nil
}

// Revoke marks the most recent agreed, unrevoked record for the purpose.
// Returns CodeConsentNotFound when nothing matches; nothing is written then.
func (s *Service) Revoke(ctx context.Context, subjectID string, purpose models.Purpose) (*models.Record, error) {
	now := requestcontext.Now(ctx)
	var (
		revoked *models.Record
		event   audit.Event
	)

	err := s.tx.RunInTx(ctx, subjectID, func(txCtx context.Context, store Store) error {
		records, err := store.ListBySubject(txCtx, subjectID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeStorage, "failed to load consent")
		}
		for _, r := range records {
			if r.Purpose == purpose && r.Agreed && r.RevokedAt == nil {
				revoked = r
				break
			}
		}
		if revoked == nil {
			return dErrors.New(dErrors.CodeConsentNotFound, "no active consent to revoke")
		}
		if err := store.Revoke(txCtx, revoked.ID, now); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeConsentNotFound, "no active consent to revoke")
			}
			return dErrors.Wrap(err, dErrors.CodeStorage, "failed to revoke consent")
		}
		revoked.RevokedAt = &now
		event = audit.Event{
			ID:        uuid.NewString(),
			SubjectID: subjectID,
			Resource:  revoked.ID,
			Action:    string(audit.EventConsentRevoked),
			Purpose:   string(purpose),
			Decision:  "revoked",
			Timestamp: now,
			RequestID: requestcontext.RequestID(ctx),
		}
		return s.emit(txCtx, event)
	})
	if err != nil {
		return nil, err
	}
	s.forward(ctx, event)

	s.metrics.IncRevocation(purpose)
	s.logger.InfoContext(ctx, "consent revoked",
		"consent_id", revoked.ID,
		"subject_id", subjectID,
		"purpose", purpose,
		"request_id", requestcontext.RequestID(ctx),
	)
	return revoked, nil
}

// IsValid evaluates the validity invariant against the most recent record for the purpose.
func (s *Service) IsValid(ctx context.Context, subjectID string, purpose models.Purpose) (bool, error) {
	latest, err := s.latest(ctx, subjectID, purpose)
	if err != nil {
		return false, err
	}
	valid := latest.IsValid(requestcontext.Now(ctx))
	s.metrics.IncCheck(purpose, valid)
	return valid, nil
}

// Require returns the authorizing record, or CodeMissingConsent.
func (s *Service) Require(ctx context.Context, subjectID string, purpose models.Purpose) (*models.Record, error) {
	latest, err := s.latest(ctx, subjectID, purpose)
	if err != nil {
		return nil, err
	}
	valid := latest.IsValid(requestcontext.Now(ctx))
	s.metrics.IncCheck(purpose, valid)
	if !valid {
		return nil, dErrors.New(dErrors.CodeMissingConsent, "consent required for "+string(purpose))
	}
	return latest, nil
}

// Status summarizes the latest record for a purpose.
func (s *Service) Status(ctx context.Context, subjectID string, purpose models.Purpose) (*models.StatusView, error) {
	latest, err := s.latest(ctx, subjectID, purpose)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	view := &models.StatusView{
		HasValidConsent: latest.IsValid(now),
		Purpose:         purpose,
	}
	if latest != nil {
		view.Latest = &models.LatestRecord{
			ID:        latest.ID,
			Agreed:    latest.Agreed,
			GrantedAt: latest.GrantedAt,
			ExpiresAt: latest.ExpiresAt,
			IsExpired: latest.IsExpired(now),
			IsRevoked: latest.RevokedAt != nil,
		}
	}
	return view, nil
}

// History lists records most recent first with their derived status. An empty
// purpose includes every purpose. Limit defaults to 10 and is capped at 100.
func (s *Service) History(ctx context.Context, subjectID string, purpose models.Purpose, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	records, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load consent history")
	}

	now := requestcontext.Now(ctx)
	entries := make([]models.HistoryEntry, 0, min(limit, len(records)))
	for _, r := range records {
		if purpose != "" && r.Purpose != purpose {
			continue
		}
		entries = append(entries, models.HistoryEntry{Record: r, Status: r.Status(now)})
		if len(entries) == limit {
			break
		}
	}
	return entries, nil
}

func (s *Service) latest(ctx context.Context, subjectID string, purpose models.Purpose) (*models.Record, error) {
	records, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load consent")
	}
	var matching []*models.Record
	for _, r := range records {
		if r.Purpose == purpose {
			matching = append(matching, r)
		}
	}
	return models.Latest(matching), nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditor == nil {
		return nil
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit consent change")
	}
	return nil
}

func (s *Service) forward(ctx context.Context, event audit.Event) {
	if s.forwarder == nil {
		return
	}
	if err := s.forwarder.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to forward consent audit event",
			"action", event.Action,
			"event_id", event.ID,
			"error", err,
			"request_id", event.RequestID,
		)
	}
}
