// Package tracking models the lifecycle of a submitted ACAT request. The
// status graph is data: a fixed table of allowed (from, to) pairs that the
// transition service consults before any guard logic runs.
package tracking

import (
	"time"

	"transferdesk/internal/acat"
)

// Status is one of the nine lifecycle states.
type Status string

const (
	StatusNew               Status = "new"
	StatusSubmitted         Status = "submitted"
	StatusPendingReview     Status = "pending_review"
	StatusPendingClient     Status = "pending_client"
	StatusPendingDelivering Status = "pending_delivering"
	StatusPendingReceiving  Status = "pending_receiving"
	StatusCompleted         Status = "completed"
	StatusRejected          Status = "rejected"
	StatusCancelled         Status = "cancelled"
)

// Terminal reports whether no further transition is permitted out of s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Valid reports whether s is one of the nine lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusSubmitted, StatusPendingReview, StatusPendingClient,
		StatusPendingDelivering, StatusPendingReceiving,
		StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// workflow lists the states a submitted transfer moves between before
// settling; any of them may reach any other, or a terminal state.
var workflow = []Status{
	StatusSubmitted,
	StatusPendingReview,
	StatusPendingClient,
	StatusPendingDelivering,
	StatusPendingReceiving,
}

// allowedTransitions holds the status graph. A record starts in new, is
// either submitted or cancelled, then moves freely between the workflow
// states until a terminal outcome. Terminal states have no outgoing edges.
var allowedTransitions = buildTransitionTable()

func buildTransitionTable() map[Status]map[Status]bool {
	table := map[Status]map[Status]bool{
		StatusNew: {
			StatusSubmitted: true,
			StatusCancelled: true,
		},
	}
	for _, from := range workflow {
		targets := map[Status]bool{
			StatusCompleted: true,
			StatusRejected:  true,
			StatusCancelled: true,
		}
		for _, to := range workflow {
			if to != from {
				targets[to] = true
			}
		}
		table[from] = targets
	}
	return table
}

// CanTransition reports whether the status graph permits from → to.
func CanTransition(from, to Status) bool {
	return allowedTransitions[from][to]
}

// Record is a tracked ACAT request. Status is mutated only through the
// transition service; no other mutation path exists.
type Record struct {
	ID        string       `json:"id"`
	Request   acat.Request `json:"acat_data"`
	Status    Status       `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	CreatedBy string       `json:"created_by"`
}
