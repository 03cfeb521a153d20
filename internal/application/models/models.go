package models

import (
	"time"

	"fintrust/internal/scoring/features"
	scoring "fintrust/internal/scoring/models"
)

// MaxPurposeLength bounds the free-text loan purpose.
const MaxPurposeLength = 500

// Status is set to PENDING on submission. Later transitions belong to officer review.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusApproved    Status = "APPROVED"
	StatusRejected    Status = "REJECTED"
)

// Application is a loan request together with the profile facts supplied at
// submission. Optional facts stay nil when the applicant left them out.
type Application struct {
	ID         string    `json:"id"`
	SubjectID  string    `json:"subject_id"`
	LoanAmount float64   `json:"loan_amount"`
	Purpose    string    `json:"purpose"`
	Age        *int      `json:"age,omitempty"`
	Gender     *string   `json:"gender,omitempty"`
	Income     *float64  `json:"income,omitempty"`
	Livelihood *string   `json:"livelihood,omitempty"`
	Status     Status    `json:"status"`
	ConsentID  string    `json:"consent_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FeatureInput is the derivation input for this application.
func (a *Application) FeatureInput() features.Input {
	return features.Input{
		LoanAmount: a.LoanAmount,
		Purpose:    a.Purpose,
		Age:        a.Age,
		Gender:     a.Gender,
		Income:     a.Income,
		Livelihood: a.Livelihood,
	}
}

// ScoringRequest hands the application to the scoring orchestrator.
func (a *Application) ScoringRequest() *scoring.Request {
	return &scoring.Request{
		ApplicationID: a.ID,
		SubjectID:     a.SubjectID,
		Input:         a.FeatureInput(),
	}
}

// SubmitRequest is the POST /applications body.
type SubmitRequest struct {
	LoanAmount *float64 `json:"loan_amount"`
	Purpose    string   `json:"purpose"`
	Age        *int     `json:"age,omitempty"`
	Gender     *string  `json:"gender,omitempty"`
	Income     *float64 `json:"income,omitempty"`
	Livelihood *string  `json:"livelihood,omitempty"`
}
