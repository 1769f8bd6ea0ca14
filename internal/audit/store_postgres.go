package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	txcontext "transferdesk/pkg/tx"
)

// PostgresStore persists the audit log in the audit_entries table. Writes
// join an in-flight transaction when one is on the context, so a status
// change and its audit entry commit or roll back together.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) executor(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}

	const q = `
		INSERT INTO audit_entries (id, entity_type, entity_id, action, detail, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.executor(ctx).ExecContext(ctx, q,
		entry.ID, string(entry.EntityType), entry.EntityID, string(entry.Action),
		detail, entry.Actor, entry.Timestamp,
	); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Entry, error) {
	q := `
		SELECT id, entity_type, entity_id, action, detail, actor, created_at
		FROM audit_entries
		WHERE ($1 = '' OR entity_type = $1)
		  AND ($2 = '' OR entity_id = $2)
		  AND ($3 = '' OR action = $3)
		ORDER BY created_at ASC, id ASC`

	rows, err := s.executor(ctx).QueryContext(ctx, q,
		string(filter.EntityType), filter.EntityID, string(filter.Action))
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			detail []byte
		)
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Action, &detail, &e.Actor, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				return nil, fmt.Errorf("decode audit detail: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
