package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"fintrust/internal/scoring/features"
	"fintrust/internal/scoring/inference"
	"fintrust/internal/scoring/metrics"
	"fintrust/internal/scoring/models"
	"fintrust/internal/scoring/risk"
	"fintrust/internal/scoring/service/mocks"
	"fintrust/internal/scoring/store"
	dErrors "fintrust/pkg/domain-errors"
	"fintrust/pkg/platform/audit"
	"fintrust/pkg/platform/audit/publisher"
	auditmemory "fintrust/pkg/platform/audit/store/memory"
	"fintrust/pkg/platform/sentinel"
	"fintrust/pkg/requestcontext"
)

//go:generate mockgen -source=../ports/ports.go -destination=mocks/mocks.go -package=mocks

var scoredAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type stubInferrer struct {
	result inference.Result
	err    error
	calls  int
	mu     sync.Mutex
}

func (s *stubInferrer) Infer(context.Context, features.Vector) (inference.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result, s.err
}

func (s *stubInferrer) ModelVersion() string { return "1.2.0" }

type auditRecorder struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (a *auditRecorder) Emit(_ context.Context, e audit.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
	return a.err
}

type OrchestratorSuite struct {
	suite.Suite
	store    *store.InMemoryStore
	inferrer *stubInferrer
	auditor  *auditRecorder
	svc      *Orchestrator
	ctx      context.Context
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.inferrer = &stubInferrer{result: inference.Result{Probability: 0.82, Creditworthy: true}}
	s.auditor = &auditRecorder{}
	s.svc = New(s.store, s.inferrer,
		WithAuditor(s.auditor),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	s.ctx = requestcontext.WithTime(context.Background(), scoredAt)
}

func request(appID string) models.Request {
	age, income := 20, 1500.0
	return models.Request{
		ApplicationID: appID,
		SubjectID:     "subject-1",
		Input: features.Input{
			LoanAmount: 6000,
			Purpose:    "Car",
			Age:        &age,
			Income:     &income,
		},
	}
}

func (s *OrchestratorSuite) TestScoresWithModelProbability() {
	record, err := s.svc.Score(s.ctx, request("app-1"))
	s.Require().NoError(err)

	s.InDelta(0.82, record.Probability, 1e-9)
	s.True(record.Creditworthy)
	s.Equal(risk.TierLow, record.RiskTier)
	s.Equal(models.OutcomeScored, record.Outcome)
	s.Equal("1.2.0", record.ModelVersion)
	s.Equal(scoredAt, record.ScoredAt)
	s.Equal(14, record.Breakdown.Duration)

	stored, err := s.store.FindByApplication(s.ctx, "app-1")
	s.Require().NoError(err)
	s.Equal(record.ID, stored.ID)

	s.Require().Len(s.auditor.events, 1)
	s.Equal(string(audit.EventApplicationScored), s.auditor.events[0].Action)
	s.Equal("app-1", s.auditor.events[0].Resource)
}

func (s *OrchestratorSuite) TestInferenceFailureRecordsFallback() {
	s.inferrer.err = dErrors.New(dErrors.CodeInference, "no probability channel")

	record, err := s.svc.Score(s.ctx, request("app-1"))
	s.Require().NoError(err)

	s.InDelta(0.5, record.Probability, 0)
	s.False(record.Creditworthy)
	s.Equal(risk.TierHigh, record.RiskTier)
	s.True(record.Fallback())

	expected, err := features.Derive(request("app-1").Input)
	s.Require().NoError(err)
	s.Equal(expected, record.Breakdown)

	s.Require().Len(s.auditor.events, 1)
	s.Equal(string(audit.EventApplicationScoreFallback), s.auditor.events[0].Action)
}

func (s *OrchestratorSuite) TestUnloadedModelRecordsFallback() {
	svc := New(s.store, inference.NewAdapter(nil))

	record, err := svc.Score(s.ctx, request("app-1"))
	s.Require().NoError(err)
	s.True(record.Fallback())
	s.Equal(inference.DefaultModelVersion, record.ModelVersion)
}

func (s *OrchestratorSuite) TestSecondAttemptIsRejected() {
	_, err := s.svc.Score(s.ctx, request("app-1"))
	s.Require().NoError(err)

	_, err = s.svc.Score(s.ctx, request("app-1"))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal(1, s.inferrer.calls)

	list, err := s.store.ListBySubject(s.ctx, "subject-1")
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *OrchestratorSuite) TestConcurrentAttemptsProduceOneRecord() {
	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Score(s.ctx, request("app-1"))
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict), err)
		}()
	}
	wg.Wait()

	s.Equal(1, successes)
	list, err := s.store.ListBySubject(s.ctx, "subject-1")
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *OrchestratorSuite) TestInvalidInputPersistsNothing() {
	req := request("app-1")
	req.Input.LoanAmount = 0

	_, err := s.svc.Score(s.ctx, req)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	s.Zero(s.inferrer.calls)

	_, err = s.store.FindByApplication(s.ctx, "app-1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *OrchestratorSuite) TestMissingIdentifiers() {
	_, err := s.svc.Score(s.ctx, models.Request{Input: request("x").Input})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *OrchestratorSuite) TestAuditFailureDoesNotFailScoring() {
	s.auditor.err = errors.New("broker down")

	record, err := s.svc.Score(s.ctx, request("app-1"))
	s.Require().NoError(err)
	s.NotNil(record)
}

func (s *OrchestratorSuite) TestGetIsScopedToSubject() {
	_, err := s.svc.Score(s.ctx, request("app-1"))
	s.Require().NoError(err)

	got, err := s.svc.Get(s.ctx, "subject-1", "app-1")
	s.Require().NoError(err)
	s.Equal("app-1", got.ApplicationID)

	_, err = s.svc.Get(s.ctx, "subject-2", "app-1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.Get(s.ctx, "subject-1", "app-404")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *OrchestratorSuite) TestListNewestFirst() {
	for i, id := range []string{"app-1", "app-2", "app-3"} {
		ctx := requestcontext.WithTime(context.Background(), scoredAt.Add(time.Duration(i)*time.Hour))
		_, err := s.svc.Score(ctx, request(id))
		s.Require().NoError(err)
	}

	list, err := s.svc.List(s.ctx, "subject-1")
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("app-3", list[0].ApplicationID)
	s.Equal("app-1", list[2].ApplicationID)

	subset, err := s.svc.ListForApplications(s.ctx, "subject-1", []string{"app-1", "app-2", "app-missing"})
	s.Require().NoError(err)
	s.Require().Len(subset, 2)
	s.Equal("app-2", subset[0].ApplicationID)

	none, err := s.svc.ListForApplications(s.ctx, "subject-2", []string{"app-1"})
	s.Require().NoError(err)
	s.Empty(none)
}

func TestOrchestratorStorageErrors(t *testing.T) {
	ctx := requestcontext.WithTime(context.Background(), scoredAt)

	t.Run("lookup failure is a storage error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		st := mocks.NewMockScoreStore(ctrl)
		inf := mocks.NewMockInferrer(ctrl)
		st.EXPECT().FindByApplication(gomock.Any(), "app-1").Return(nil, errors.New("connection reset"))

		_, err := New(st, inf).Score(ctx, request("app-1"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStorage))
	})

	t.Run("save failure is a storage error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		st := mocks.NewMockScoreStore(ctrl)
		inf := mocks.NewMockInferrer(ctrl)
		st.EXPECT().FindByApplication(gomock.Any(), "app-1").Return(nil, sentinel.ErrNotFound)
		inf.EXPECT().ModelVersion().Return("1.0.0").AnyTimes()
		inf.EXPECT().Infer(gomock.Any(), gomock.Any()).Return(inference.Result{Probability: 0.3}, nil)
		st.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

		_, err := New(st, inf).Score(ctx, request("app-1"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStorage))
	})

	t.Run("unique violation on save is a conflict", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		st := mocks.NewMockScoreStore(ctrl)
		inf := mocks.NewMockInferrer(ctrl)
		st.EXPECT().FindByApplication(gomock.Any(), "app-1").Return(nil, sentinel.ErrNotFound)
		inf.EXPECT().ModelVersion().Return("1.0.0").AnyTimes()
		inf.EXPECT().Infer(gomock.Any(), gomock.Any()).Return(inference.Result{Probability: 0.3}, nil)
		st.EXPECT().Save(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)

		_, err := New(st, inf).Score(ctx, request("app-1"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("held lock is a conflict", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		st := mocks.NewMockScoreStore(ctrl)
		inf := mocks.NewMockInferrer(ctrl)
		locker := mocks.NewMockLocker(ctrl)
		st.EXPECT().FindByApplication(gomock.Any(), "app-1").Return(nil, sentinel.ErrNotFound)
		locker.EXPECT().Acquire(gomock.Any(), "app-1").Return(nil, sentinel.ErrLocked)

		_, err := New(st, inf, WithLocker(locker)).Score(ctx, request("app-1"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("audit event carries score attributes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		inf := mocks.NewMockInferrer(ctrl)
		auditor := mocks.NewMockAuditPort(ctrl)
		inf.EXPECT().ModelVersion().Return("1.0.0").AnyTimes()
		inf.EXPECT().Infer(gomock.Any(), gomock.Any()).Return(inference.Result{Probability: 0.3}, nil)
		auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			assert.Equal(t, string(risk.TierHigh), e.Decision)
			assert.Equal(t, "0.3", e.Attributes["probability"])
			assert.Equal(t, "false", e.Attributes["creditworthy"])
			return nil
		})

		_, err := New(store.NewInMemoryStore(), inf, WithAuditor(auditor)).Score(ctx, request("app-1"))
		require.NoError(t, err)
	})
}

func TestOrchestratorWithAuditStore(t *testing.T) {
	log := auditmemory.NewInMemoryStore()
	svc := New(store.NewInMemoryStore(), &stubInferrer{result: inference.Result{Probability: 0.6, Creditworthy: true}},
		WithAuditor(publisher.NewPublisher(log)))

	_, err := svc.Score(context.Background(), request("app-1"))
	require.NoError(t, err)

	events, err := log.ListBySubject(context.Background(), "subject-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(risk.TierMedium), events[0].Decision)
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(context.Background(), "app-1")
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), "app-1")
	assert.ErrorIs(t, err, sentinel.ErrLocked)

	release()
	release()
	again, err := l.Acquire(context.Background(), "app-1")
	require.NoError(t, err)
	again()
}
