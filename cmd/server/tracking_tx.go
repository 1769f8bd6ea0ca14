package main

import (
	"context"
	"database/sql"
	"time"

	"transferdesk/internal/audit"
	"transferdesk/internal/tracking/store"
	dErrors "transferdesk/pkg/domainerrors"
	txcontext "transferdesk/pkg/tx"
)

const defaultTrackingTxTimeout = 5 * time.Second

// trackingPostgresTx runs the record write and its audit entry inside one
// SQL transaction. The stores pick the transaction up from the context, so
// both writes commit or roll back together.
type trackingPostgresTx struct {
	db      *sql.DB
	records *store.PostgresRecordStore
	entries *audit.PostgresStore
	timeout time.Duration
}

func newTrackingPostgresTx(db *sql.DB, records *store.PostgresRecordStore, entries *audit.PostgresStore) *trackingPostgresTx {
	return &trackingPostgresTx{db: db, records: records, entries: entries}
}

func (t *trackingPostgresTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context, records store.RecordStore, entries audit.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTrackingTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistenceFailure, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx), t.records, t.entries); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistenceFailure, "commit transaction")
	}
	return nil
}
