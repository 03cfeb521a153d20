//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fintrust/internal/application/models"
	"fintrust/internal/application/store"
	"fintrust/pkg/platform/sentinel"
	"fintrust/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "applications"))
}

func newApplication(subjectID string, createdAt time.Time) *models.Application {
	return &models.Application{
		ID:         uuid.NewString(),
		SubjectID:  subjectID,
		LoanAmount: 2500,
		Purpose:    "car",
		Status:     models.StatusPending,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func (s *PostgresStoreSuite) TestRoundTripKeepsOptionalFacts() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	age, income, gender := 42, 1800.0, "female"

	app := newApplication("subject-1", now)
	app.Age = &age
	app.Income = &income
	app.Gender = &gender
	app.ConsentID = uuid.NewString()
	s.Require().NoError(s.store.Save(ctx, app))

	got, err := s.store.FindByID(ctx, app.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.Age)
	s.Equal(42, *got.Age)
	s.Require().NotNil(got.Income)
	s.InDelta(1800.0, *got.Income, 0)
	s.Require().NotNil(got.Gender)
	s.Equal("female", *got.Gender)
	s.Nil(got.Livelihood)
	s.Equal(app.ConsentID, got.ConsentID)
	s.Equal(models.StatusPending, got.Status)
	s.True(got.CreatedAt.Equal(now))
}

func (s *PostgresStoreSuite) TestAbsentFactsStayNil() {
	ctx := context.Background()
	app := newApplication("subject-1", time.Now().UTC())
	s.Require().NoError(s.store.Save(ctx, app))

	got, err := s.store.FindByID(ctx, app.ID)
	s.Require().NoError(err)
	s.Nil(got.Age)
	s.Nil(got.Gender)
	s.Nil(got.Income)
	s.Nil(got.Livelihood)
	s.Empty(got.ConsentID)
}

func (s *PostgresStoreSuite) TestDuplicateIDConflicts() {
	ctx := context.Background()
	app := newApplication("subject-1", time.Now().UTC())
	s.Require().NoError(s.store.Save(ctx, app))

	err := s.store.Save(ctx, app)
	s.True(errors.Is(err, sentinel.ErrConflict))
}

func (s *PostgresStoreSuite) TestFindByIDNotFound() {
	_, err := s.store.FindByID(context.Background(), uuid.NewString())
	s.True(errors.Is(err, sentinel.ErrNotFound))

	_, err = s.store.FindByID(context.Background(), "not-a-uuid")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestListBySubjectNewestFirst() {
	ctx := context.Background()
	now := time.Now().UTC()
	older := newApplication("subject-1", now.Add(-time.Hour))
	newer := newApplication("subject-1", now)
	s.Require().NoError(s.store.Save(ctx, older))
	s.Require().NoError(s.store.Save(ctx, newer))
	s.Require().NoError(s.store.Save(ctx, newApplication("subject-2", now)))

	apps, err := s.store.ListBySubject(ctx, "subject-1")
	s.Require().NoError(err)
	s.Require().Len(apps, 2)
	s.Equal(newer.ID, apps[0].ID)
	s.Equal(older.ID, apps[1].ID)
}
