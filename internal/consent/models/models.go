package models

import (
	"fmt"
	"strings"
	"time"
)

// ExpiryWindow is the fixed lifetime of a consent grant.
const ExpiryWindow = 24 * time.Hour

// Purpose labels why data is processed. Purpose binding allows selective
// revocation without affecting other flows.
type Purpose string

const (
	PurposeLoan           Purpose = "LOAN"
	PurposeCreditCheck    Purpose = "CREDIT_CHECK"
	PurposeDataProcessing Purpose = "DATA_PROCESSING"
)

// ParsePurpose normalizes a purpose label. Empty input means LOAN.
func ParsePurpose(s string) (Purpose, error) {
	switch p := Purpose(strings.ToUpper(strings.TrimSpace(s))); p {
	case "":
		return PurposeLoan, nil
	case PurposeLoan, PurposeCreditCheck, PurposeDataProcessing:
		return p, nil
	default:
		return "", fmt.Errorf("unknown consent purpose %q", s)
	}
}

// Status is the derived display status of a record.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusDeclined Status = "DECLINED"
	StatusExpired  Status = "EXPIRED"
	StatusRevoked  Status = "REVOKED"
)

// Record captures one consent decision. Records are append-only; revocation
// only ever sets RevokedAt.
type Record struct {
	ID            string     `json:"id"`
	SubjectID     string     `json:"subject_id"`
	Purpose       Purpose    `json:"purpose"`
	Agreed        bool       `json:"agreed"`
	GrantedAt     time.Time  `json:"granted_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	OriginAddress string     `json:"origin_address"`
	ClientAgent   string     `json:"client_agent,omitempty"`
}

// IsValid reports whether the record authorizes processing at now.
func (r *Record) IsValid(now time.Time) bool {
	if r == nil || !r.Agreed || r.RevokedAt != nil {
		return false
	}
	return !now.Before(r.GrantedAt) && now.Before(r.ExpiresAt)
}

// IsExpired reports whether the fixed window has elapsed.
func (r *Record) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Status derives the display status. Revocation outranks expiry.
func (r *Record) Status(now time.Time) Status {
	switch {
	case r.RevokedAt != nil:
		return StatusRevoked
	case r.IsExpired(now):
		return StatusExpired
	case r.Agreed:
		return StatusActive
	default:
		return StatusDeclined
	}
}

// Latest returns the most recently granted record, or nil.
func Latest(records []*Record) *Record {
	var latest *Record
	for _, r := range records {
		if latest == nil || r.GrantedAt.After(latest.GrantedAt) {
			latest = r
		}
	}
	return latest
}

// HistoryEntry pairs a record with its status at the time of the query.
type HistoryEntry struct {
	*Record
	Status Status `json:"status"`
}

// StatusView answers "may we process data for this purpose right now".
type StatusView struct {
	HasValidConsent bool          `json:"has_valid_consent"`
	Purpose         Purpose       `json:"purpose"`
	Latest          *LatestRecord `json:"latest"`
}

type LatestRecord struct {
	ID        string    `json:"id"`
	Agreed    bool      `json:"agreed"`
	GrantedAt time.Time `json:"granted_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IsExpired bool      `json:"is_expired"`
	IsRevoked bool      `json:"is_revoked"`
}

// GrantRequest is the decoded body of a grant call.
type GrantRequest struct {
	Agreed        *bool  `json:"agreed"`
	Purpose       string `json:"purpose"`
	OriginAddress string `json:"origin_address"`
	ClientAgent   string `json:"client_agent"`
}

// Normalize trims the free-text fields.
func (r *GrantRequest) Normalize() {
	r.Purpose = strings.TrimSpace(r.Purpose)
	r.OriginAddress = strings.TrimSpace(r.OriginAddress)
	r.ClientAgent = strings.TrimSpace(r.ClientAgent)
}

type RevokeRequest struct {
	Purpose string `json:"purpose"`
}

func (r *RevokeRequest) Normalize() {
	r.Purpose = strings.TrimSpace(r.Purpose)
}

type RevokeResponse struct {
	ID        string    `json:"id"`
	Purpose   Purpose   `json:"purpose"`
	RevokedAt time.Time `json:"revoked_at"`
}

// Grant is the service-level grant command.
type Grant struct {
	SubjectID     string
	Purpose       Purpose
	Agreed        bool
	OriginAddress string
	ClientAgent   string
}
