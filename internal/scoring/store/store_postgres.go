package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"fintrust/internal/platform/postgres"
	"fintrust/internal/scoring/features"
	"fintrust/internal/scoring/models"
	"fintrust/internal/scoring/risk"
	"fintrust/pkg/platform/sentinel"
)

const scoreColumns = `id, application_id, subject_id, probability, creditworthy,
		risk_tier, features, model_version, fallback, scored_at`

// PostgresStore persists scores in the scores table. The feature breakdown is
// stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, record *models.ScoreRecord) error {
	breakdown, err := json.Marshal(record.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	query := `
		INSERT INTO scores (` + scoreColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.ApplicationID,
		record.SubjectID,
		record.Probability,
		record.Creditworthy,
		string(record.RiskTier),
		breakdown,
		record.ModelVersion,
		record.Fallback(),
		record.ScoredAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByApplication(ctx context.Context, applicationID string) (*models.ScoreRecord, error) {
	if uuid.Validate(applicationID) != nil {
		return nil, sentinel.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scoreColumns+` FROM scores WHERE application_id = $1`, applicationID)
	record, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// FindByApplications loads the scores for a batch of applications in one
// round trip. Malformed ids are skipped.
func (s *PostgresStore) FindByApplications(ctx context.Context, applicationIDs []string) (map[string]*models.ScoreRecord, error) {
	ids := make([]string, 0, len(applicationIDs))
	for _, id := range applicationIDs {
		if uuid.Validate(id) == nil {
			ids = append(ids, id)
		}
	}
	out := make(map[string]*models.ScoreRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scoreColumns+` FROM scores WHERE application_id = ANY($1::uuid[])`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		record, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		out[record.ApplicationID] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID string) ([]*models.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scoreColumns+` FROM scores WHERE subject_id = $1 ORDER BY scored_at DESC`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var records []*models.ScoreRecord
	for rows.Next() {
		record, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanScore(row scanner) (*models.ScoreRecord, error) {
	var (
		record    models.ScoreRecord
		tier      string
		breakdown []byte
		fallback  bool
	)
	err := row.Scan(
		&record.ID,
		&record.ApplicationID,
		&record.SubjectID,
		&record.Probability,
		&record.Creditworthy,
		&tier,
		&breakdown,
		&record.ModelVersion,
		&fallback,
		&record.ScoredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan score: %w", err)
	}
	var vector features.Vector
	if err := json.Unmarshal(breakdown, &vector); err != nil {
		return nil, fmt.Errorf("unmarshal features: %w", err)
	}
	record.Breakdown = vector
	record.RiskTier = risk.Tier(tier)
	record.Outcome = models.OutcomeScored
	if fallback {
		record.Outcome = models.OutcomeFallback
	}
	return &record, nil
}
