package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	consentModel "fintrust/internal/consent/models"
	dErrors "fintrust/pkg/domain-errors"
	"fintrust/pkg/platform/httputil"
	"fintrust/pkg/requestcontext"
)

// Service defines the interface for consent operations.
type Service interface {
	Grant(ctx context.Context, grant consentModel.Grant) (*consentModel.Record, error)
	Revoke(ctx context.Context, subjectID string, purpose consentModel.Purpose) (*consentModel.Record, error)
	Status(ctx context.Context, subjectID string, purpose consentModel.Purpose) (*consentModel.StatusView, error)
	History(ctx context.Context, subjectID string, purpose consentModel.Purpose, limit int) ([]consentModel.HistoryEntry, error)
}

// Handler handles consent ledger endpoints. Routes expect an authenticated subject.
type Handler struct {
	logger  *slog.Logger
	consent Service
}

// New creates a new consent Handler.
func New(consent Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		consent: consent,
	}
}

// Register registers the consent routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consent", h.handleGrantConsent)
	r.Get("/consent/status", h.handleGetStatus)
	r.Post("/consent/revoke", h.handleRevokeConsent)
	r.Get("/consent/history", h.handleGetHistory)
}

func (h *Handler) handleGrantConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	subjectID, ok := h.requireSubject(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeJSON[consentModel.GrantRequest](w, r, h.logger)
	if !ok {
		return
	}
	req.Normalize()
	if req.Agreed == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "agreed is required"))
		return
	}
	purpose, err := consentModel.ParsePurpose(req.Purpose)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid consent purpose"))
		return
	}

	origin := req.OriginAddress
	if origin == "" {
		origin = requestcontext.ClientIP(ctx)
	}
	agent := req.ClientAgent
	if agent == "" {
		agent = requestcontext.UserAgent(ctx)
	}

	record, err := h.consent.Grant(ctx, consentModel.Grant{
		SubjectID:     subjectID,
		Purpose:       purpose,
		Agreed:        *req.Agreed,
		OriginAddress: origin,
		ClientAgent:   agent,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to grant consent",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, ok := h.requireSubject(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeJSON[consentModel.RevokeRequest](w, r, h.logger)
	if !ok {
		return
	}
	req.Normalize()
	purpose, err := consentModel.ParsePurpose(req.Purpose)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid consent purpose"))
		return
	}

	record, err := h.consent.Revoke(ctx, subjectID, purpose)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeConsentNotFound) {
			h.logger.ErrorContext(ctx, "failed to revoke consent",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, consentModel.RevokeResponse{
		ID:        record.ID,
		Purpose:   record.Purpose,
		RevokedAt: *record.RevokedAt,
	})
}

func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, ok := h.requireSubject(w, r)
	if !ok {
		return
	}
	purpose, err := consentModel.ParsePurpose(r.URL.Query().Get("purpose"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid consent purpose"))
		return
	}

	view, err := h.consent.Status(ctx, subjectID, purpose)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load consent status",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, ok := h.requireSubject(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	var purpose consentModel.Purpose
	if raw := r.URL.Query().Get("purpose"); raw != "" {
		p, err := consentModel.ParsePurpose(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid consent purpose"))
			return
		}
		purpose = p
	}

	entries, err := h.consent.History(ctx, subjectID, purpose, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load consent history",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"consents": entries})
}

func (h *Handler) requireSubject(w http.ResponseWriter, r *http.Request) (string, bool) {
	subjectID := requestcontext.SubjectID(r.Context())
	if subjectID == "" {
		// This should never happen if RequireAuth middleware is configured correctly
		h.logger.ErrorContext(r.Context(), "subject missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return subjectID, true
}
