package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"transferdesk/internal/acat"
	"transferdesk/internal/audit"
	"transferdesk/internal/auth"
	"transferdesk/internal/platform/metrics"
	"transferdesk/internal/tracking"
	"transferdesk/internal/tracking/store"
	dErrors "transferdesk/pkg/domainerrors"
	"transferdesk/pkg/sentinel"
)

// Service owns every mutation of a tracked record's status. It evaluates the
// status graph and the permission table, then applies the status write and
// its audit entry as one atomic unit through the Tx boundary.
type Service struct {
	records store.RecordStore
	tx      Tx
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(records store.RecordStore, tx Tx, m *metrics.Metrics, logger *slog.Logger) (*Service, error) {
	if records == nil {
		return nil, errors.New("record store is required")
	}
	if tx == nil {
		return nil, errors.New("transaction boundary is required")
	}
	return &Service{records: records, tx: tx, metrics: m, logger: logger}, nil
}

// Create persists a new record in status new and appends the create audit
// entry in the same transactional unit.
func (s *Service) Create(ctx context.Context, req acat.Request, actor auth.Actor) (tracking.Record, error) {
	if !auth.CanWrite(actor) {
		return tracking.Record{}, dErrors.New(dErrors.CodeUnauthorized, "role lacks permission to create records")
	}
	if err := req.CheckSchema(); err != nil {
		return tracking.Record{}, err
	}
	if req.TransferType == acat.TransferPartial && len(req.Securities) == 0 {
		return tracking.Record{}, dErrors.New(dErrors.CodeSchemaViolation, "partial transfers must list at least one security")
	}

	now := time.Now().UTC()
	record := tracking.Record{
		ID:        uuid.New().String(),
		Request:   req,
		Status:    tracking.StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: actor.Username,
	}

	err := s.tx.RunInTx(ctx, record.ID, func(ctx context.Context, records store.RecordStore, entries audit.Store) error {
		if err := records.Create(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodePersistenceFailure, "create record")
		}
		return entries.Append(ctx, audit.Entry{
			EntityType: audit.EntityRecord,
			EntityID:   record.ID,
			Action:     audit.ActionCreate,
			Detail:     audit.Detail{To: string(tracking.StatusNew), Reason: "record created"},
			Actor:      actor.Username,
			Timestamp:  now,
		})
	})
	if err != nil {
		return tracking.Record{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordsCreated.Inc()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "record created",
			"record_id", record.ID, "contra_firm", req.ContraFirm, "actor", actor.Username)
	}
	return record, nil
}

// Get loads a record by id.
func (s *Service) Get(ctx context.Context, id string) (tracking.Record, error) {
	record, err := s.records.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return tracking.Record{}, dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	if err != nil {
		return tracking.Record{}, dErrors.Wrap(err, dErrors.CodePersistenceFailure, "load record")
	}
	return record, nil
}

// List returns all records ordered by creation time.
func (s *Service) List(ctx context.Context) ([]tracking.Record, error) {
	records, err := s.records.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistenceFailure, "list records")
	}
	return records, nil
}

// Transition moves the record to target and appends the status_change audit
// entry atomically. OffendingFields, when the target is rejected, names the
// request fields the contra firm flagged; the learning aggregator mines them
// later.
//
// Guards run in a fixed order: terminal state, reason, status graph,
// permission table. The status write is conditional on the prior status the
// caller observed; losing that race surfaces concurrent_modification and the
// caller retries against fresh state.
func (s *Service) Transition(ctx context.Context, recordID string, target tracking.Status, reason string, actor auth.Actor, offendingFields []string) (tracking.Record, error) {
	record, err := s.transition(ctx, recordID, target, reason, actor, offendingFields)
	if err != nil {
		if s.metrics != nil {
			s.metrics.TransitionFailures.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
		}
		return tracking.Record{}, err
	}
	if s.metrics != nil {
		s.metrics.TransitionsTotal.WithLabelValues(string(target)).Inc()
	}
	return record, nil
}

func (s *Service) transition(ctx context.Context, recordID string, target tracking.Status, reason string, actor auth.Actor, offendingFields []string) (tracking.Record, error) {
	if !target.Valid() {
		return tracking.Record{}, dErrors.New(dErrors.CodeValidation, "unknown target status")
	}

	record, err := s.Get(ctx, recordID)
	if err != nil {
		return tracking.Record{}, err
	}

	if record.Status.Terminal() {
		return tracking.Record{}, dErrors.New(dErrors.CodeTerminalState,
			fmt.Sprintf("no transitions out of %s", record.Status))
	}
	if reason == "" {
		return tracking.Record{}, dErrors.New(dErrors.CodeMissingReason, "a reason is required for every status change")
	}
	if !tracking.CanTransition(record.Status, target) {
		return tracking.Record{}, dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("transition %s -> %s is not in the status graph", record.Status, target))
	}
	if err := auth.AuthorizeTransition(actor, target); err != nil {
		return tracking.Record{}, err
	}

	prior := record.Status
	updated := record
	updated.Status = target
	updated.UpdatedAt = time.Now().UTC()

	err = s.tx.RunInTx(ctx, recordID, func(ctx context.Context, records store.RecordStore, entries audit.Store) error {
		if err := records.Put(ctx, updated, prior); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConcurrentModification,
					"record changed since it was read; retry with fresh state")
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "record not found")
			}
			return dErrors.Wrap(err, dErrors.CodePersistenceFailure, "update record")
		}
		return entries.Append(ctx, audit.Entry{
			EntityType: audit.EntityRecord,
			EntityID:   recordID,
			Action:     audit.ActionStatusChange,
			Detail: audit.Detail{
				From:   string(prior),
				To:     string(target),
				Reason: reason,
				Fields: offendingFields,
			},
			Actor:     actor.Username,
			Timestamp: updated.UpdatedAt,
		})
	})
	if err != nil {
		return tracking.Record{}, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "status changed",
			"record_id", recordID, "from", string(prior), "to", string(target), "actor", actor.Username)
	}
	return updated, nil
}
