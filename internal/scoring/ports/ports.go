// Package ports defines the collaborators the scoring orchestrator depends on.
package ports

import (
	"context"

	"fintrust/internal/scoring/features"
	"fintrust/internal/scoring/inference"
	"fintrust/internal/scoring/models"
	"fintrust/pkg/platform/audit"
)

// ScoreStore persists score records. Save returns sentinel.ErrConflict when the
// application already has a score; lookups return sentinel.ErrNotFound.
type ScoreStore interface {
	Save(ctx context.Context, record *models.ScoreRecord) error
	FindByApplication(ctx context.Context, applicationID string) (*models.ScoreRecord, error)
	FindByApplications(ctx context.Context, applicationIDs []string) (map[string]*models.ScoreRecord, error)
	ListBySubject(ctx context.Context, subjectID string) ([]*models.ScoreRecord, error)
}

// Inferrer runs the classifier over a feature vector.
type Inferrer interface {
	Infer(ctx context.Context, vector features.Vector) (inference.Result, error)
	ModelVersion() string
}

// Locker guards an application while it is being scored. Acquire returns
// sentinel.ErrLocked when another run holds the key.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// AuditPort defines the interface for emitting audit events.
type AuditPort interface {
	Emit(ctx context.Context, event audit.Event) error
}
