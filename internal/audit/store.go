package audit

import "context"

// Filter narrows a List call. Zero-value fields match everything.
type Filter struct {
	EntityType EntityType
	EntityID   string
	Action     Action
}

// Store is the append-only persistence contract. Append never overwrites;
// List returns entries ordered by timestamp ascending, ties by ID, so replays
// are deterministic.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
}
