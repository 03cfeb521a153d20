package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"fintrust/internal/scoring/handler/mocks"
	"fintrust/internal/scoring/models"
	"fintrust/internal/scoring/risk"
	dErrors "fintrust/pkg/domain-errors"
	"fintrust/pkg/requestcontext"
	"fintrust/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/score-mocks.go -package=mocks Service
type ScoreHandlerSuite struct {
	suite.Suite
	router  chi.Router
	service *mocks.MockService
}

func TestScoreHandlerSuite(t *testing.T) {
	suite.Run(t, new(ScoreHandlerSuite))
}

func (s *ScoreHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *ScoreHandlerSuite) authed(req *http.Request) *http.Request {
	return req.WithContext(requestcontext.WithSubjectID(req.Context(), "subject-1"))
}

func sampleScore(appID string) *models.ScoreRecord {
	return &models.ScoreRecord{
		ID:            "score-" + appID,
		ApplicationID: appID,
		SubjectID:     "subject-1",
		Probability:   0.62,
		Creditworthy:  true,
		RiskTier:      risk.TierMedium,
		ModelVersion:  "1.0.0",
		Outcome:       models.OutcomeScored,
		ScoredAt:      time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *ScoreHandlerSuite) TestGetScore() {
	s.service.EXPECT().Get(gomock.Any(), "subject-1", "app-1").Return(sampleScore("app-1"), nil)

	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/applications/app-1/score")))

	s.Equal(http.StatusOK, rr.Code)
	body := *testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	s.Equal("MEDIUM", body["risk_tier"])
	s.Equal("SCORED", body["outcome"])
	s.InDelta(0.62, body["probability"], 1e-9)
}

func (s *ScoreHandlerSuite) TestGetScoreNotYetScored() {
	s.service.EXPECT().Get(gomock.Any(), "subject-1", "app-2").
		Return(nil, dErrors.New(dErrors.CodeNotFound, "score not found"))

	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/applications/app-2/score")))
	s.Equal(http.StatusNotFound, rr.Code)
}

func (s *ScoreHandlerSuite) TestUnauthenticated() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/scores"))
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *ScoreHandlerSuite) TestListScores() {
	s.service.EXPECT().List(gomock.Any(), "subject-1").
		Return([]*models.ScoreRecord{sampleScore("app-2"), sampleScore("app-1")}, nil)

	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/scores")))

	s.Equal(http.StatusOK, rr.Code)
	body := *testutil.UnmarshalResponse[map[string][]map[string]any](s.T(), rr)
	s.Require().Len(body["scores"], 2)
	s.Equal("app-2", body["scores"][0]["application_id"])
}

func (s *ScoreHandlerSuite) TestListScoresEmpty() {
	s.service.EXPECT().List(gomock.Any(), "subject-1").Return(nil, nil)

	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/scores")))
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"scores":[]}`, rr.Body.String())
}

func (s *ScoreHandlerSuite) TestListScoresForApplications() {
	s.service.EXPECT().ListForApplications(gomock.Any(), "subject-1", []string{"app-1", "app-3"}).
		Return([]*models.ScoreRecord{sampleScore("app-1")}, nil)

	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/scores?application_ids=app-1,%20app-3,")))
	s.Equal(http.StatusOK, rr.Code)
}

func (s *ScoreHandlerSuite) TestListScoresStorageFailureHidesDetail() {
	s.service.EXPECT().List(gomock.Any(), "subject-1").
		Return(nil, dErrors.New(dErrors.CodeStorage, "pq: connection refused"))

	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/scores")))
	s.Equal(http.StatusInternalServerError, rr.Code)
	s.NotContains(rr.Body.String(), "connection refused")
}
