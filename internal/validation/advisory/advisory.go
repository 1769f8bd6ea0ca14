// Package advisory defines the contract with the external advisory
// collaborator: a black box that, given a structured request, returns zero or
// more candidate field corrections with free-text rationale and a confidence
// score. The collaborator is heuristic and optional; callers must treat any
// failure as degraded analysis, never as a validation failure.
package advisory

import (
	"context"

	"transferdesk/internal/acat"
)

// Suggestion is one candidate correction proposed by the collaborator.
type Suggestion struct {
	Field          string  `json:"field"`
	CurrentValue   string  `json:"current_value"`
	SuggestedValue string  `json:"suggested_value"`
	Rationale      string  `json:"reason"`
	Confidence     float64 `json:"confidence"`
}

// Client analyzes a request. Implementations must honor ctx cancellation; the
// caller bounds every call with a timeout.
type Client interface {
	Analyze(ctx context.Context, req acat.Request) ([]Suggestion, error)
}

// ClampConfidence forces a collaborator-supplied confidence into [0,1]. The
// collaborator is not trusted to stay in range.
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
