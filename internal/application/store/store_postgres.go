package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fintrust/internal/application/models"
	"fintrust/internal/platform/postgres"
	"fintrust/pkg/platform/sentinel"
)

const applicationColumns = `id, subject_id, loan_amount, purpose, age, gender, income,
		livelihood, status, consent_id, created_at, updated_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, app *models.Application) error {
	var consentID sql.NullString
	if app.ConsentID != "" {
		consentID = sql.NullString{String: app.ConsentID, Valid: true}
	}
	query := `
		INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		app.ID,
		app.SubjectID,
		app.LoanAmount,
		app.Purpose,
		app.Age,
		app.Gender,
		app.Income,
		app.Livelihood,
		string(app.Status),
		consentID,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Application, error) {
	if uuid.Validate(id) != nil {
		return nil, sentinel.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return app, err
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID string) ([]*models.Application, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE subject_id = $1 ORDER BY created_at DESC, id DESC`,
		subjectID)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return apps, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApplication(row scanner) (*models.Application, error) {
	var (
		app        models.Application
		age        sql.NullInt64
		gender     sql.NullString
		income     sql.NullFloat64
		livelihood sql.NullString
		consentID  sql.NullString
		status     string
	)
	err := row.Scan(
		&app.ID,
		&app.SubjectID,
		&app.LoanAmount,
		&app.Purpose,
		&age,
		&gender,
		&income,
		&livelihood,
		&status,
		&consentID,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	app.Status = models.Status(status)
	app.ConsentID = consentID.String
	if age.Valid {
		v := int(age.Int64)
		app.Age = &v
	}
	if gender.Valid {
		app.Gender = &gender.String
	}
	if income.Valid {
		app.Income = &income.Float64
	}
	if livelihood.Valid {
		app.Livelihood = &livelihood.String
	}
	return &app, nil
}
