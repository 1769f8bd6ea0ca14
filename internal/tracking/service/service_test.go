package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"transferdesk/internal/acat"
	"transferdesk/internal/audit"
	"transferdesk/internal/auth"
	"transferdesk/internal/tracking"
	"transferdesk/internal/tracking/store"
	dErrors "transferdesk/pkg/domainerrors"
)

// =============================================================================
// Tracking Service Suite
// =============================================================================
// Justification for unit tests: the transition guards run in a fixed order
// and the status write must commit atomically with its audit entry. Both
// properties need precise failure injection that feature tests cannot stage.

type TrackingServiceSuite struct {
	suite.Suite
	records  *store.InMemoryRecordStore
	auditLog *audit.InMemoryStore
	service  *Service
}

func TestTrackingServiceSuite(t *testing.T) {
	suite.Run(t, new(TrackingServiceSuite))
}

func (s *TrackingServiceSuite) SetupTest() {
	s.records = store.NewInMemoryRecordStore()
	s.auditLog = audit.NewInMemoryStore()
	svc, err := NewService(s.records, NewMemoryTx(s.records, s.auditLog), nil, nil)
	s.Require().NoError(err)
	s.service = svc
}

func operator() auth.Actor {
	return auth.Actor{ID: "u-1", Username: "ops", Role: auth.RoleFull}
}

func verifiedOperator() auth.Actor {
	a := operator()
	a.CredentialVerified = true
	return a
}

func transferRequest() acat.Request {
	return acat.Request{
		DeliveringAccount: "12345678",
		ReceivingAccount:  "87654321",
		ContraFirm:        "0001",
		TransferType:      acat.TransferFull,
		Customer:          acat.CustomerInfo{FirstName: "Jane", LastName: "Doe"},
		Securities: []acat.Security{
			{CUSIP: "037833100", Description: "Apple Inc", Quantity: 100, AssetType: acat.AssetEquity},
		},
	}
}

// staleReadStore serves a fixed snapshot from Get, simulating a reader whose
// view of the record has gone stale between read and write.
type staleReadStore struct {
	*store.InMemoryRecordStore
	stale tracking.Record
}

func (s *staleReadStore) Get(context.Context, string) (tracking.Record, error) {
	return s.stale, nil
}

// seed creates a record and walks it to the given status.
func (s *TrackingServiceSuite) seed(status tracking.Status) tracking.Record {
	ctx := context.Background()
	record, err := s.service.Create(ctx, transferRequest(), operator())
	s.Require().NoError(err)
	if status == tracking.StatusNew {
		return record
	}

	record, err = s.service.Transition(ctx, record.ID, tracking.StatusSubmitted, "seeding", operator(), nil)
	s.Require().NoError(err)
	if status == tracking.StatusSubmitted {
		return record
	}

	actor := operator()
	if status.Terminal() {
		actor = verifiedOperator()
	}
	record, err = s.service.Transition(ctx, record.ID, status, "seeding", actor, nil)
	s.Require().NoError(err)
	return record
}

// =============================================================================
// Create
// =============================================================================

func (s *TrackingServiceSuite) TestCreate() {
	ctx := context.Background()

	s.Run("persists the record in status new with a create audit entry", func() {
		record, err := s.service.Create(ctx, transferRequest(), operator())
		s.Require().NoError(err)
		s.Equal(tracking.StatusNew, record.Status)
		s.Equal("ops", record.CreatedBy)
		s.NotEmpty(record.ID)

		entries, err := s.auditLog.List(ctx, audit.Filter{EntityID: record.ID})
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(audit.ActionCreate, entries[0].Action)
		s.Equal("ops", entries[0].Actor)
	})

	s.Run("read-only actors cannot create", func() {
		_, err := s.service.Create(ctx, transferRequest(), auth.Actor{Username: "viewer", Role: auth.RoleReadOnly})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("schema violations are rejected before any write", func() {
		req := transferRequest()
		req.ContraFirm = ""
		_, err := s.service.Create(ctx, req, operator())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeSchemaViolation))

		records, err := s.service.List(ctx)
		s.Require().NoError(err)
		s.Empty(records)
	})

	s.Run("partial transfer without securities is rejected", func() {
		req := transferRequest()
		req.TransferType = acat.TransferPartial
		req.Securities = nil
		_, err := s.service.Create(ctx, req, operator())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeSchemaViolation))
	})
}

// =============================================================================
// Transition Guards
// =============================================================================

func (s *TrackingServiceSuite) TestTransitionGuards() {
	ctx := context.Background()

	s.Run("terminal records admit no further transitions", func() {
		record := s.seed(tracking.StatusCompleted)

		_, err := s.service.Transition(ctx, record.ID, tracking.StatusPendingReview, "reopen", operator(), nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeTerminalState))
	})

	s.Run("terminal guard fires before the reason guard", func() {
		record := s.seed(tracking.StatusCancelled)

		_, err := s.service.Transition(ctx, record.ID, tracking.StatusSubmitted, "", operator(), nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeTerminalState))
	})

	s.Run("empty reason is rejected", func() {
		record := s.seed(tracking.StatusSubmitted)

		_, err := s.service.Transition(ctx, record.ID, tracking.StatusPendingReview, "", operator(), nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeMissingReason))
	})

	s.Run("edges outside the status graph are rejected", func() {
		record := s.seed(tracking.StatusNew)

		_, err := s.service.Transition(ctx, record.ID, tracking.StatusCompleted, "skip ahead", verifiedOperator(), nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("read-only actors are unauthorized", func() {
		record := s.seed(tracking.StatusSubmitted)

		viewer := auth.Actor{Username: "viewer", Role: auth.RoleReadOnly}
		_, err := s.service.Transition(ctx, record.ID, tracking.StatusPendingReview, "advance", viewer, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("terminal targets require a verified credential even for owners", func() {
		record := s.seed(tracking.StatusSubmitted)

		owner := auth.Actor{Username: "boss", Role: auth.RoleOwner}
		_, err := s.service.Transition(ctx, record.ID, tracking.StatusCompleted, "settled", owner, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeCredentialRequired))
	})

	s.Run("unknown target status is rejected", func() {
		record := s.seed(tracking.StatusSubmitted)

		_, err := s.service.Transition(ctx, record.ID, tracking.Status("archived"), "done", operator(), nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown record is not found", func() {
		_, err := s.service.Transition(ctx, "missing", tracking.StatusSubmitted, "go", operator(), nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("failed guards leave the record and audit log untouched", func() {
		record := s.seed(tracking.StatusSubmitted)
		before, err := s.auditLog.List(ctx, audit.Filter{EntityID: record.ID})
		s.Require().NoError(err)

		_, err = s.service.Transition(ctx, record.ID, tracking.StatusPendingReview, "", operator(), nil)
		s.Require().Error(err)

		got, err := s.service.Get(ctx, record.ID)
		s.Require().NoError(err)
		s.Equal(tracking.StatusSubmitted, got.Status)

		after, err := s.auditLog.List(ctx, audit.Filter{EntityID: record.ID})
		s.Require().NoError(err)
		s.Len(after, len(before))
	})
}

// =============================================================================
// Transition Writes
// =============================================================================

func (s *TrackingServiceSuite) TestTransitionWrites() {
	ctx := context.Background()

	s.Run("successful transition updates the record and appends one entry", func() {
		record := s.seed(tracking.StatusSubmitted)

		updated, err := s.service.Transition(ctx, record.ID, tracking.StatusPendingReview, "docs incomplete", operator(), nil)
		s.Require().NoError(err)
		s.Equal(tracking.StatusPendingReview, updated.Status)
		s.True(updated.UpdatedAt.After(record.UpdatedAt) || updated.UpdatedAt.Equal(record.UpdatedAt))

		entries, err := s.auditLog.List(ctx, audit.Filter{EntityID: record.ID, Action: audit.ActionStatusChange})
		s.Require().NoError(err)
		last := entries[len(entries)-1]
		s.Equal("submitted", last.Detail.From)
		s.Equal("pending_review", last.Detail.To)
		s.Equal("docs incomplete", last.Detail.Reason)
	})

	s.Run("rejection records the offending fields for the aggregator", func() {
		record := s.seed(tracking.StatusSubmitted)

		_, err := s.service.Transition(ctx, record.ID, tracking.StatusRejected, "contra firm mismatch", verifiedOperator(),
			[]string{"contra_firm", "delivering_account"})
		s.Require().NoError(err)

		entries, err := s.auditLog.List(ctx, audit.Filter{EntityID: record.ID, Action: audit.ActionStatusChange})
		s.Require().NoError(err)
		last := entries[len(entries)-1]
		s.Equal([]string{"contra_firm", "delivering_account"}, last.Detail.Fields)
	})

	s.Run("verified credential permits terminal transitions", func() {
		record := s.seed(tracking.StatusPendingReceiving)

		updated, err := s.service.Transition(ctx, record.ID, tracking.StatusCompleted, "assets received", verifiedOperator(), nil)
		s.Require().NoError(err)
		s.Equal(tracking.StatusCompleted, updated.Status)
	})
}

// =============================================================================
// Concurrency
// =============================================================================

func (s *TrackingServiceSuite) TestConcurrentTransitions() {
	ctx := context.Background()

	s.Run("stale prior status surfaces concurrent_modification", func() {
		record := s.seed(tracking.StatusSubmitted)

		// Another writer moves the record after this caller reads it. The
		// stale store replays the pre-move snapshot so the conditional
		// write is guaranteed to lose.
		moved := record
		moved.Status = tracking.StatusPendingClient
		s.Require().NoError(s.records.Put(ctx, moved, tracking.StatusSubmitted))

		staleService, err := NewService(
			&staleReadStore{InMemoryRecordStore: s.records, stale: record},
			NewMemoryTx(s.records, s.auditLog), nil, nil)
		s.Require().NoError(err)

		_, err = staleService.Transition(ctx, record.ID, tracking.StatusPendingReview, "advance", operator(), nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConcurrentModification))

		// The losing writer changed nothing.
		got, err := s.service.Get(ctx, record.ID)
		s.Require().NoError(err)
		s.Equal(tracking.StatusPendingClient, got.Status)
	})

	s.Run("many racers from the same status produce exactly one winner", func() {
		record := s.seed(tracking.StatusSubmitted)

		const racers = 8
		results := make([]error, racers)
		var wg sync.WaitGroup
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = s.service.Transition(ctx, record.ID, tracking.StatusPendingReview, "advance", operator(), nil)
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, err := range results {
			if err == nil {
				winners++
				continue
			}
			// Losers see either the conditional-write conflict or, if they
			// read after the winner committed, the graph guard for the
			// now-identical status.
			s.True(dErrors.HasCode(err, dErrors.CodeConcurrentModification) ||
				dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		}
		s.Equal(1, winners)
	})
}
