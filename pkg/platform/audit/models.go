package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// Examples: consent changes, credit decisions.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational visibility.
	// Examples: application submission, consent checks.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Category  EventCategory
	Timestamp time.Time
	SubjectID string
	// Resource is the identifier the action applied to (consent id, application id).
	Resource  string
	Action    string
	Purpose   string
	Decision  string
	Reason    string
	RequestID string
	// Attributes carries action-specific fields needed to replay the event
	// (probability, risk tier, model version).
	Attributes map[string]string
}

type AuditEvent string

const (
	// Consent events
	EventConsentGranted  AuditEvent = "consent_granted"
	EventConsentDeclined AuditEvent = "consent_declined"
	EventConsentRevoked  AuditEvent = "consent_revoked"
	EventConsentChecked  AuditEvent = "consent_checked"

	// Application events
	EventApplicationSubmitted AuditEvent = "application_submitted"

	// Scoring events
	EventApplicationScored        AuditEvent = "application_scored"
	EventApplicationScoreFallback AuditEvent = "application_score_fallback"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventConsentGranted:           CategoryCompliance,
	EventConsentDeclined:          CategoryCompliance,
	EventConsentRevoked:           CategoryCompliance,
	EventApplicationScored:        CategoryCompliance,
	EventApplicationScoreFallback: CategoryCompliance,

	EventConsentChecked:       CategoryOperations,
	EventApplicationSubmitted: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subjectID string) ([]Event, error)
}

// Tee appends every event to each store in order and stops at the first
// failure. The first store answers ListBySubject.
type Tee []Store

func (t Tee) Append(ctx context.Context, event Event) error {
	for _, s := range t {
		if err := s.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (t Tee) ListBySubject(ctx context.Context, subjectID string) ([]Event, error) {
	if len(t) == 0 {
		return nil, nil
	}
	return t[0].ListBySubject(ctx, subjectID)
}
