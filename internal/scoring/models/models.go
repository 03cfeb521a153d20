package models

import (
	"time"

	"fintrust/internal/scoring/features"
	"fintrust/internal/scoring/risk"
)

// Outcome is the terminal state of a scoring run.
type Outcome string

const (
	OutcomeScored   Outcome = "SCORED"
	OutcomeFallback Outcome = "SCORING_FAILED_FALLBACK"
)

// Conservative score recorded when inference fails.
const (
	FallbackProbability = 0.5
	FallbackTier        = risk.TierHigh
)

// ScoreRecord is the immutable result of scoring one application.
type ScoreRecord struct {
	ID            string          `json:"id"`
	ApplicationID string          `json:"application_id"`
	SubjectID     string          `json:"subject_id"`
	Probability   float64         `json:"probability"`
	Creditworthy  bool            `json:"creditworthy"`
	RiskTier      risk.Tier       `json:"risk_tier"`
	Breakdown     features.Vector `json:"breakdown"`
	ModelVersion  string          `json:"model_version"`
	Outcome       Outcome         `json:"outcome"`
	ScoredAt      time.Time       `json:"scored_at"`
}

// Fallback reports whether the record holds the conservative fallback score.
func (r *ScoreRecord) Fallback() bool {
	return r.Outcome == OutcomeFallback
}

// Request carries one application and the applicant's profile into scoring.
type Request struct {
	ApplicationID string
	SubjectID     string
	Input         features.Input
}
