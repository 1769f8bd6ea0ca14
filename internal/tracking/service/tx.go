package service

import (
	"context"
	"sync"
	"time"

	"transferdesk/internal/audit"
	"transferdesk/internal/tracking"
	"transferdesk/internal/tracking/store"
	dErrors "transferdesk/pkg/domainerrors"
)

// Tx is the transactional boundary pairing a record write with its audit
// entry. Implementations guarantee the pair commits or rolls back together:
// the postgres variant wraps both writes in one sql.Tx carried on the
// context, the in-memory variant buffers audit appends and restores the
// record snapshot if the flush fails.
type Tx interface {
	RunInTx(ctx context.Context, recordID string, fn func(ctx context.Context, records store.RecordStore, entries audit.Store) error) error
}

const numRecordShards = 64

// defaultTxTimeout bounds a transition so a stuck store cannot hold a shard.
const defaultTxTimeout = 5 * time.Second

// MemoryTx provides the boundary over in-memory stores. Sharded mutexes keep
// the write pair atomic per record; the conditional write in the record
// store remains the backstop against writers outside this boundary.
type MemoryTx struct {
	shards  [numRecordShards]sync.Mutex
	records *store.InMemoryRecordStore
	entries audit.Store
	timeout time.Duration
}

func NewMemoryTx(records *store.InMemoryRecordStore, entries audit.Store) *MemoryTx {
	return &MemoryTx{records: records, entries: entries}
}

func (t *MemoryTx) RunInTx(ctx context.Context, recordID string, fn func(ctx context.Context, records store.RecordStore, entries audit.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := hashRecordID(recordID) % numRecordShards
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "transaction aborted: context cancelled")
	}

	// Snapshot the record so a failed audit flush can be compensated.
	snapshot, snapErr := t.records.Get(ctx, recordID)
	hadRecord := snapErr == nil

	buffer := &bufferedAuditStore{}
	if err := fn(ctx, t.records, buffer); err != nil {
		t.restore(ctx, recordID, snapshot, hadRecord)
		return err
	}
	for _, entry := range buffer.buffered {
		if err := t.entries.Append(ctx, entry); err != nil {
			t.restore(ctx, recordID, snapshot, hadRecord)
			return dErrors.Wrap(err, dErrors.CodePersistenceFailure, "append audit entry")
		}
	}
	return nil
}

func (t *MemoryTx) restore(ctx context.Context, recordID string, snapshot tracking.Record, hadRecord bool) {
	if hadRecord {
		t.records.Restore(ctx, snapshot)
		return
	}
	t.records.Remove(ctx, recordID)
}

// bufferedAuditStore holds appends until the surrounding write succeeds.
type bufferedAuditStore struct {
	buffered []audit.Entry
}

func (b *bufferedAuditStore) Append(_ context.Context, entry audit.Entry) error {
	b.buffered = append(b.buffered, entry)
	return nil
}

func (b *bufferedAuditStore) List(context.Context, audit.Filter) ([]audit.Entry, error) {
	return append([]audit.Entry{}, b.buffered...), nil
}

// hashRecordID uses FNV-1a for shard distribution.
func hashRecordID(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
