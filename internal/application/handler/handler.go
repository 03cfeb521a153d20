package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fintrust/internal/application/models"
	dErrors "fintrust/pkg/domain-errors"
	"fintrust/pkg/platform/httputil"
	"fintrust/pkg/requestcontext"
)

// Service defines the application operations the handler needs.
type Service interface {
	Submit(ctx context.Context, subjectID string, req models.SubmitRequest) (*models.Application, error)
	Get(ctx context.Context, subjectID, id string) (*models.Application, error)
	List(ctx context.Context, subjectID string) ([]*models.Application, error)
}

type Handler struct {
	logger       *slog.Logger
	applications Service
}

func New(applications Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, applications: applications}
}

// Register mounts the routes. submitGuards wrap only the submission route,
// which is where the consent gate belongs.
func (h *Handler) Register(r chi.Router, submitGuards ...func(http.Handler) http.Handler) {
	r.With(submitGuards...).Post("/applications", h.handleSubmit)
	r.Get("/applications", h.handleList)
	r.Get("/applications/{id}", h.handleGet)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, ok := h.requireSubject(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[models.SubmitRequest](w, r, h.logger)
	if !ok {
		return
	}

	app, err := h.applications.Submit(ctx, subjectID, *req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeStorage) {
			h.logger.ErrorContext(ctx, "failed to submit application",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, app)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, ok := h.requireSubject(w, r)
	if !ok {
		return
	}
	apps, err := h.applications.List(ctx, subjectID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list applications",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if apps == nil {
		apps = []*models.Application{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, ok := h.requireSubject(w, r)
	if !ok {
		return
	}
	app, err := h.applications.Get(ctx, subjectID, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) requireSubject(w http.ResponseWriter, r *http.Request) (string, bool) {
	subjectID := requestcontext.SubjectID(r.Context())
	if subjectID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return subjectID, true
}
