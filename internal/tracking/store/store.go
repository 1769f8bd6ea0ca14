// Package store persists tracked ACAT records. The Put contract is a
// conditional write on the expected prior status, which is what serializes
// concurrent transitions against the same record without any global lock.
package store

import (
	"context"

	"transferdesk/internal/tracking"
)

// RecordStore is the persistence contract for tracked records.
//
// Put succeeds only when the stored record's status still equals
// expectedPrior; otherwise it returns sentinel.ErrConflict and the caller
// must re-read and retry. Get returns sentinel.ErrNotFound for unknown ids.
type RecordStore interface {
	Create(ctx context.Context, record tracking.Record) error
	Get(ctx context.Context, id string) (tracking.Record, error)
	List(ctx context.Context) ([]tracking.Record, error)
	Put(ctx context.Context, record tracking.Record, expectedPrior tracking.Status) error
}
