package main

import (
	"context"
	"database/sql"

	consentservice "fintrust/internal/consent/service"
	consentstore "fintrust/internal/consent/store"
	dErrors "fintrust/pkg/domain-errors"
	txcontext "fintrust/pkg/platform/tx"
)

// consentPostgresTx puts a consent write and its compliance audit row in one
// transaction: a grant or revocation is never stored without its audit event.
// A transaction-scoped advisory lock on the subject serializes writers across
// instances.
type consentPostgresTx struct {
	db *sql.DB
}

func newConsentPostgresTx(db *sql.DB) *consentPostgresTx {
	return &consentPostgresTx{db: db}
}

func (t *consentPostgresTx) RunInTx(ctx context.Context, subjectID string, fn func(ctx context.Context, store consentservice.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "consent transaction aborted")
	}
	ctx, cancel := consentservice.WithTxDeadline(ctx)
	defer cancel()

	return txcontext.Run(ctx, t.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, subjectID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeStorage, "failed to lock consent subject")
		}
		return fn(ctx, consentstore.NewPostgresTx(tx))
	})
}
