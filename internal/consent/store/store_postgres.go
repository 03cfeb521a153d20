package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrust/internal/consent/models"
	"fintrust/internal/platform/postgres"
	"fintrust/pkg/platform/sentinel"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// PostgresStore persists consent records in the consents table.
type PostgresStore struct {
	db dbtx
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx binds the store to an open transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

func (s *PostgresStore) Save(ctx context.Context, record *models.Record) error {
	query := `
		INSERT INTO consents (
			id, subject_id, purpose, agreed, granted_at, expires_at,
			revoked_at, origin_address, client_agent
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.SubjectID,
		string(record.Purpose),
		record.Agreed,
		record.GrantedAt,
		record.ExpiresAt,
		record.RevokedAt,
		record.OriginAddress,
		record.ClientAgent,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID string) ([]*models.Record, error) {
	query := `
		SELECT id, subject_id, purpose, agreed, granted_at, expires_at,
			   revoked_at, origin_address, client_agent
		FROM consents
		WHERE subject_id = $1
		ORDER BY granted_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("query consents: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		var (
			record    models.Record
			purpose   string
			revokedAt sql.NullTime
		)
		if err := rows.Scan(
			&record.ID,
			&record.SubjectID,
			&purpose,
			&record.Agreed,
			&record.GrantedAt,
			&record.ExpiresAt,
			&revokedAt,
			&record.OriginAddress,
			&record.ClientAgent,
		); err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		record.Purpose = models.Purpose(purpose)
		if revokedAt.Valid {
			t := revokedAt.Time
			record.RevokedAt = &t
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Revoke(ctx context.Context, id string, revokedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE consents SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`,
		id, revokedAt,
	)
	if err != nil {
		return fmt.Errorf("revoke consent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke consent rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
