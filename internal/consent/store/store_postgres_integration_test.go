//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fintrust/internal/consent/models"
	"fintrust/internal/consent/store"
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
	s.Require().NoError(s.postgres.Truncate(context.Background(), "consents"))
}

func newRecord(subjectID string, grantedAt time.Time, agreed bool) *models.Record {
	return &models.Record{
		ID:            uuid.NewString(),
		SubjectID:     subjectID,
		Purpose:       models.PurposeLoan,
		Agreed:        agreed,
		GrantedAt:     grantedAt,
		ExpiresAt:     grantedAt.Add(models.ExpiryWindow),
		OriginAddress: "10.0.0.1",
	}
}

func (s *PostgresStoreSuite) TestSaveAndListBySubject() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	first := newRecord("subject-1", now.Add(-time.Hour), false)
	second := newRecord("subject-1", now, true)
	other := newRecord("subject-2", now, true)
	for _, r := range []*models.Record{first, second, other} {
		s.Require().NoError(s.store.Save(ctx, r))
	}

	records, err := s.store.ListBySubject(ctx, "subject-1")
	s.Require().NoError(err)
	s.Require().Len(records, 2)

	ids := []string{records[0].ID, records[1].ID}
	s.ElementsMatch([]string{first.ID, second.ID}, ids)
	latest := models.Latest(records)
	s.Equal(second.ID, latest.ID)
	s.True(latest.GrantedAt.Equal(second.GrantedAt))
	s.Equal("10.0.0.1", latest.OriginAddress)
	s.Nil(latest.RevokedAt)
}

func (s *PostgresStoreSuite) TestRevokeSetsTimestampOnce() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	record := newRecord("subject-1", now, true)
	s.Require().NoError(s.store.Save(ctx, record))

	s.Require().NoError(s.store.Revoke(ctx, record.ID, now.Add(time.Minute)))

	records, err := s.store.ListBySubject(ctx, "subject-1")
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Require().NotNil(records[0].RevokedAt)
	s.True(records[0].RevokedAt.Equal(now.Add(time.Minute)))
	s.False(records[0].IsValid(now.Add(2 * time.Minute)))
}

func (s *PostgresStoreSuite) TestRevokeUnknownRecord() {
	err := s.store.Revoke(context.Background(), uuid.NewString(), time.Now())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestRevokeTwiceIsNotFound() {
	ctx := context.Background()
	record := newRecord("subject-1", time.Now().UTC(), true)
	s.Require().NoError(s.store.Save(ctx, record))
	s.Require().NoError(s.store.Revoke(ctx, record.ID, time.Now()))

	err := s.store.Revoke(ctx, record.ID, time.Now())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
