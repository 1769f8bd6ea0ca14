// Package adapters bridges the validation service's narrow ports onto the
// concrete services that back them.
package adapters

import (
	"context"

	"transferdesk/internal/learning"
	"transferdesk/internal/validation"
)

// LearningHistory adapts the learning service to the scoring prior port.
// A snapshot failure is reported as no history: scoring must never fail or
// block because the learning view is unavailable.
type LearningHistory struct {
	learning *learning.Service
}

func NewLearningHistory(svc *learning.Service) *LearningHistory {
	return &LearningHistory{learning: svc}
}

func (a *LearningHistory) ContraFirmHistory(ctx context.Context, contraFirm string) (validation.CounterpartyHistory, bool) {
	snap, err := a.learning.Snapshot(ctx)
	if err != nil {
		return validation.CounterpartyHistory{}, false
	}
	for _, stats := range snap.PerCounterparty {
		if stats.ContraFirm == contraFirm {
			return validation.CounterpartyHistory{
				SuccessRate:      stats.SuccessRate,
				TotalSubmissions: stats.TotalSubmissions,
			}, true
		}
	}
	return validation.CounterpartyHistory{}, false
}
