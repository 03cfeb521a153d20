package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"fintrust/internal/consent/handler/mocks"
	consentModel "fintrust/internal/consent/models"
	dErrors "fintrust/pkg/domain-errors"
	"fintrust/pkg/requestcontext"
	"fintrust/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/consent-mocks.go -package=mocks Service
type ConsentHandlerSuite struct {
	suite.Suite
	router  chi.Router
	service *mocks.MockService
}

func TestConsentHandlerSuite(t *testing.T) {
	suite.Run(t, new(ConsentHandlerSuite))
}

func (s *ConsentHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.service, logger).Register(s.router)
}

func (s *ConsentHandlerSuite) authed(req *http.Request) *http.Request {
	ctx := requestcontext.WithSubjectID(req.Context(), "subject-1")
	ctx = requestcontext.WithClientMetadata(ctx, "198.51.100.4", "curl/8.0")
	return req.WithContext(ctx)
}

func (s *ConsentHandlerSuite) TestGrantConsent() {
	grantTime := time.Date(2025, 12, 3, 10, 0, 0, 0, time.UTC)

	s.service.EXPECT().Grant(gomock.Any(), consentModel.Grant{
		SubjectID:     "subject-1",
		Purpose:       consentModel.PurposeLoan,
		Agreed:        true,
		OriginAddress: "198.51.100.4",
		ClientAgent:   "curl/8.0",
	}).Return(&consentModel.Record{
		ID:        "consent_abc",
		SubjectID: "subject-1",
		Purpose:   consentModel.PurposeLoan,
		Agreed:    true,
		GrantedAt: grantTime,
		ExpiresAt: grantTime.Add(consentModel.ExpiryWindow),
	}, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent", map[string]any{"agreed": true})
	rr := testutil.DoRequest(s.router, s.authed(req))

	s.Equal(http.StatusCreated, rr.Code)
	var resp map[string]any
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp))
	s.Equal("consent_abc", resp["id"])
	s.Equal("LOAN", resp["purpose"])
	s.Equal("2025-12-04T10:00:00Z", resp["expires_at"])
}

func (s *ConsentHandlerSuite) TestGrantConsentRequiresAgreed() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent", map[string]any{"purpose": "LOAN"})
	rr := testutil.DoRequest(s.router, s.authed(req))
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *ConsentHandlerSuite) TestGrantConsentRejectsUnknownPurpose() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent", map[string]any{"agreed": true, "purpose": "MARKETING"})
	rr := testutil.DoRequest(s.router, s.authed(req))
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *ConsentHandlerSuite) TestUnauthenticated() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent", map[string]any{"agreed": true})
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *ConsentHandlerSuite) TestRevokeConsent() {
	revokedAt := time.Date(2025, 12, 3, 11, 0, 0, 0, time.UTC)
	s.service.EXPECT().Revoke(gomock.Any(), "subject-1", consentModel.PurposeCreditCheck).
		Return(&consentModel.Record{ID: "consent_abc", Purpose: consentModel.PurposeCreditCheck, RevokedAt: &revokedAt}, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent/revoke", map[string]any{"purpose": "credit_check"})
	rr := testutil.DoRequest(s.router, s.authed(req))

	s.Equal(http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[consentModel.RevokeResponse](s.T(), rr)
	s.Equal(revokedAt, resp.RevokedAt)
}

func (s *ConsentHandlerSuite) TestRevokeConsentNotFound() {
	s.service.EXPECT().Revoke(gomock.Any(), "subject-1", consentModel.PurposeLoan).
		Return(nil, dErrors.New(dErrors.CodeConsentNotFound, "no active consent to revoke"))

	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/consent/revoke", `{}`)
	rr := testutil.DoRequest(s.router, s.authed(req))

	s.Equal(http.StatusNotFound, rr.Code)
	s.Contains(rr.Body.String(), "consent_not_found")
}

func (s *ConsentHandlerSuite) TestStatus() {
	s.service.EXPECT().Status(gomock.Any(), "subject-1", consentModel.PurposeLoan).
		Return(&consentModel.StatusView{HasValidConsent: true, Purpose: consentModel.PurposeLoan}, nil)

	rr := testutil.DoRequest(s.router, s.authed(httptest.NewRequest(http.MethodGet, "/consent/status", nil)))

	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"has_valid_consent":true`)
}

func (s *ConsentHandlerSuite) TestHistory() {
	s.service.EXPECT().History(gomock.Any(), "subject-1", consentModel.Purpose(""), 5).
		Return([]consentModel.HistoryEntry{{
			Record: &consentModel.Record{ID: "c-1", Purpose: consentModel.PurposeLoan},
			Status: consentModel.StatusRevoked,
		}}, nil)

	rr := testutil.DoRequest(s.router, s.authed(httptest.NewRequest(http.MethodGet, "/consent/history?limit=5", nil)))

	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"status":"REVOKED"`)
	s.Contains(rr.Body.String(), `"id":"c-1"`)
}

func (s *ConsentHandlerSuite) TestHistoryRejectsBadLimit() {
	rr := testutil.DoRequest(s.router, s.authed(httptest.NewRequest(http.MethodGet, "/consent/history?limit=-2", nil)))
	s.Equal(http.StatusBadRequest, rr.Code)
}

func TestStorageFailureDoesNotLeakDetails(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	svc.EXPECT().Status(gomock.Any(), "subject-1", consentModel.PurposeLoan).
		Return(nil, dErrors.Wrap(context.DeadlineExceeded, dErrors.CodeStorage, "failed to load consent"))

	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)

	req := httptest.NewRequest(http.MethodGet, "/consent/status", nil)
	req = testutil.WithSubject(req, "subject-1")
	rr := testutil.DoRequest(r, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "deadline")
}
