package domain

import (
	"context"

	"provenance/internal/core/record"
)

// ReaderPort lists records not yet classified at a version pair.
// Records are read only here; this service never mutates them
type ReaderPort interface {
	// ListUnclassified returns up to Filter.Limit records ordered by id,
	// after the Filter.AfterID cursor. An empty slice means the window is
	// exhausted
	ListUnclassified(ctx context.Context, f Filter) ([]record.Record, error)

	// ListByIDs fetches the named records regardless of window or
	// classification state, ordered by id. Unknown ids are skipped
	ListByIDs(ctx context.Context, ids []string) ([]record.Record, error)
}
