// Package audit provides the append-only history stream for the transfer desk.
// Every record creation, status change, and identity lifecycle event lands
// here; entries are never updated or deleted. The learning aggregator reads
// the stream to derive counterparty statistics.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action classifies what an entry records.
type Action string

const (
	ActionCreate       Action = "create"
	ActionStatusChange Action = "status_change"
	ActionUserApproved Action = "user_approved"
	ActionUserRejected Action = "user_rejected"
)

// EntityType names the kind of entity an entry is about.
type EntityType string

const (
	EntityRecord EntityType = "acat_record"
	EntityUser   EntityType = "user"
)

// Detail is the structured payload of an entry. Status changes carry the
// from/to pair and the operator's reason; rejections may additionally carry
// the field paths the contra firm flagged, which feed the learning
// aggregator's common-issue ranking.
type Detail struct {
	From   string   `json:"from,omitempty"`
	To     string   `json:"to,omitempty"`
	Reason string   `json:"reason,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

// Entry is one immutable audit record.
type Entry struct {
	ID         uuid.UUID  `json:"id"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Action     Action     `json:"action"`
	Detail     Detail     `json:"detail"`
	Actor      string     `json:"actor"`
	Timestamp  time.Time  `json:"timestamp"`
}
