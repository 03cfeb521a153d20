// Package httpapi assembles the public HTTP surface: the shared middleware
// chain, health and metrics endpoints, and the authenticated domain routes.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apphandler "fintrust/internal/application/handler"
	"fintrust/internal/consent/gate"
	consenthandler "fintrust/internal/consent/handler"
	consentmodels "fintrust/internal/consent/models"
	"fintrust/internal/platform/metrics"
	scorehandler "fintrust/internal/scoring/handler"
	"fintrust/pkg/platform/httputil"
	authmw "fintrust/pkg/platform/middleware/auth"
	"fintrust/pkg/platform/middleware/metadata"
	"fintrust/pkg/platform/middleware/request"
	"fintrust/pkg/platform/middleware/requesttime"
)

// Deps are the collaborators the router mounts. Metrics may be nil.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Registry
	TokenValidator authmw.TokenValidator
	ConsentChecker gate.Checker
	Consent        *consenthandler.Handler
	Applications   *apphandler.Handler
	Scores         *scorehandler.Handler
	// ModelReady reports whether the classifier loaded at startup.
	ModelReady func() bool
}

type healthResponse struct {
	Status     string `json:"status"`
	ModelReady bool   `json:"model_ready"`
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(request.Logger(d.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if d.Metrics != nil {
		r.Use(request.Latency(d.Metrics))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		ready := d.ModelReady != nil && d.ModelReady()
		// A missing model degrades scoring to fallback; the service stays up.
		httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", ModelReady: ready})
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.TokenValidator, d.Logger))
		d.Consent.Register(r)
		d.Applications.Register(r, gate.Require(d.ConsentChecker, consentmodels.PurposeLoan, d.Logger))
		d.Scores.Register(r)
	})

	return r
}
