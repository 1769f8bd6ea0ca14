package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"transferdesk/internal/acat"
	"transferdesk/internal/tracking"
	"transferdesk/pkg/sentinel"
	txcontext "transferdesk/pkg/tx"
)

// PostgresRecordStore persists tracked records in the acat_records table.
// Put is a conditional UPDATE on the prior status; zero rows affected with
// the row still present means another writer won the race. Writes join an
// in-flight transaction from the context when present.
type PostgresRecordStore struct {
	db *sql.DB
}

func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresRecordStore) executor(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresRecordStore) Create(ctx context.Context, record tracking.Record) error {
	payload, err := json.Marshal(record.Request)
	if err != nil {
		return fmt.Errorf("marshal request payload: %w", err)
	}

	const q = `
		INSERT INTO acat_records (id, payload, status, created_at, updated_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.executor(ctx).ExecContext(ctx, q,
		record.ID, payload, string(record.Status), record.CreatedAt, record.UpdatedAt, record.CreatedBy,
	); err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

func (s *PostgresRecordStore) Get(ctx context.Context, id string) (tracking.Record, error) {
	const q = `
		SELECT id, payload, status, created_at, updated_at, created_by
		FROM acat_records WHERE id = $1`

	record, err := scanRecord(s.executor(ctx).QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return tracking.Record{}, sentinel.ErrNotFound
	}
	return record, err
}

func (s *PostgresRecordStore) List(ctx context.Context) ([]tracking.Record, error) {
	const q = `
		SELECT id, payload, status, created_at, updated_at, created_by
		FROM acat_records ORDER BY created_at ASC, id ASC`

	rows, err := s.executor(ctx).QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []tracking.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *PostgresRecordStore) Put(ctx context.Context, record tracking.Record, expectedPrior tracking.Status) error {
	payload, err := json.Marshal(record.Request)
	if err != nil {
		return fmt.Errorf("marshal request payload: %w", err)
	}

	const q = `
		UPDATE acat_records
		SET payload = $1, status = $2, updated_at = $3
		WHERE id = $4 AND status = $5`
	res, err := s.executor(ctx).ExecContext(ctx, q,
		payload, string(record.Status), record.UpdatedAt, record.ID, string(expectedPrior))
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if affected == 0 {
		if _, err := s.Get(ctx, record.ID); errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (tracking.Record, error) {
	var (
		record  tracking.Record
		payload []byte
	)
	if err := row.Scan(&record.ID, &payload, &record.Status,
		&record.CreatedAt, &record.UpdatedAt, &record.CreatedBy); err != nil {
		return tracking.Record{}, err
	}
	var req acat.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return tracking.Record{}, fmt.Errorf("decode request payload: %w", err)
	}
	record.Request = req
	return record, nil
}
