// Package gate blocks requests that lack valid consent for a purpose before
// they reach the protected handler.
package gate

import (
	"context"
	"log/slog"
	"net/http"

	"fintrust/internal/consent/models"
	dErrors "fintrust/pkg/domain-errors"
	"fintrust/pkg/platform/httputil"
	"fintrust/pkg/requestcontext"
)

// Checker resolves the record authorizing a subject for a purpose.
type Checker interface {
	Require(ctx context.Context, subjectID string, purpose models.Purpose) (*models.Record, error)
}

type consentRequiredResponse struct {
	Error            string         `json:"error"`
	ErrorDescription string         `json:"error_description"`
	Purpose          models.Purpose `json:"purpose"`
}

// Require admits the request only when the subject holds valid consent for purpose.
// The authorizing consent id is placed on the request context.
func Require(checker Checker, purpose models.Purpose, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			subjectID := requestcontext.SubjectID(ctx)
			if subjectID == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}

			record, err := checker.Require(ctx, subjectID, purpose)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeMissingConsent) {
					logger.InfoContext(ctx, "request blocked without consent",
						"subject_id", subjectID,
						"purpose", purpose,
						"request_id", requestcontext.RequestID(ctx),
					)
					httputil.WriteJSON(w, http.StatusForbidden, consentRequiredResponse{
						Error:            string(dErrors.CodeMissingConsent),
						ErrorDescription: "valid consent is required before this request can be processed",
						Purpose:          purpose,
					})
					return
				}
				logger.ErrorContext(ctx, "consent check failed",
					"subject_id", subjectID,
					"purpose", purpose,
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithConsentID(ctx, record.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
