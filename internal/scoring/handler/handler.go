// Package handler serves score retrieval for the authenticated subject.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fintrust/internal/scoring/models"
	dErrors "fintrust/pkg/domain-errors"
	"fintrust/pkg/platform/httputil"
	platformstrings "fintrust/pkg/platform/strings"
	"fintrust/pkg/requestcontext"
)

const maxBatchIDs = 100

// Service defines the read side of the scoring orchestrator.
type Service interface {
	Get(ctx context.Context, subjectID, applicationID string) (*models.ScoreRecord, error)
	List(ctx context.Context, subjectID string) ([]*models.ScoreRecord, error)
	ListForApplications(ctx context.Context, subjectID string, applicationIDs []string) ([]*models.ScoreRecord, error)
}

type Handler struct {
	logger *slog.Logger
	scores Service
}

func New(scores Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, scores: scores}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/applications/{id}/score", h.handleGetScore)
	r.Get("/scores", h.handleListScores)
}

func (h *Handler) handleGetScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := requestcontext.SubjectID(ctx)
	if subjectID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	record, err := h.scores.Get(ctx, subjectID, chi.URLParam(r, "id"))
	if err != nil {
		h.logFailure(ctx, "failed to load score", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// handleListScores returns the subject's scores newest first. An optional
// application_ids query (comma separated) narrows the result.
func (h *Handler) handleListScores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := requestcontext.SubjectID(ctx)
	if subjectID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var (
		records []*models.ScoreRecord
		err     error
	)
	if ids := platformstrings.SplitList(r.URL.Query().Get("application_ids")); len(ids) > 0 {
		if len(ids) > maxBatchIDs {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "too many application ids"))
			return
		}
		records, err = h.scores.ListForApplications(ctx, subjectID, ids)
	} else {
		records, err = h.scores.List(ctx, subjectID)
	}
	if err != nil {
		h.logFailure(ctx, "failed to list scores", err)
		httputil.WriteError(w, err)
		return
	}
	if records == nil {
		records = []*models.ScoreRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"scores": records})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
