// Package repo provides the Postgres reader for the records service
package repo

import (
	"context"

	"provenance/internal/core/record"
	"provenance/internal/modkit/repokit"
	"provenance/internal/platform/store"
	"provenance/internal/services/records/domain"
)

// binder implements repokit.Binder[domain.ReaderPort]
type binder struct{}

// NewPG returns a Postgres binder for domain.ReaderPort
func NewPG() repokit.Binder[domain.ReaderPort] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) domain.ReaderPort { return &pg{q: q} }

type pg struct{ q repokit.Queryer }

// ListUnclassified pages records lacking a classification at the filter's
// version pair. Ordered by id so the AfterID cursor is stable under
// concurrent inserts
func (s *pg) ListUnclassified(ctx context.Context, f domain.Filter) ([]record.Record, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}

	const q = `
		SELECT r.id, r.title, COALESCE(r.body, ''), r.created_at
		FROM records r
		WHERE r.created_at >= $1 AND r.created_at < $2
			AND r.id > $3
			AND NOT EXISTS (
				SELECT 1 FROM classifications c
				WHERE c.record_id = r.id
					AND c.registry_version = $4
					AND c.template_version = $5
			)
		ORDER BY r.id
		LIMIT $6`
	out, err := store.All(ctx, s.q, func(r store.Row) (record.Record, error) {
		var rec record.Record
		err := r.Scan(&rec.ID, &rec.Title, &rec.Body, &rec.CreatedAt)
		return rec, err
	}, q, f.Since, f.Until, f.AfterID, f.RegistryVersion, f.TemplateVersion, limit)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	idx := make(map[string]int, len(out))
	ids := make([]string, 0, len(out))
	for i, r := range out {
		idx[r.ID] = i
		ids = append(ids, r.ID)
	}
	if err := s.loadEvents(ctx, ids, idx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByIDs loads the named records directly, classified or not. The
// fallback pass uses it to re-render records that already failed once
func (s *pg) ListByIDs(ctx context.Context, ids []string) ([]record.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	const q = `
		SELECT r.id, r.title, COALESCE(r.body, ''), r.created_at
		FROM records r
		WHERE r.id = ANY($1)
		ORDER BY r.id`
	out, err := store.All(ctx, s.q, func(r store.Row) (record.Record, error) {
		var rec record.Record
		err := r.Scan(&rec.ID, &rec.Title, &rec.Body, &rec.CreatedAt)
		return rec, err
	}, q, ids)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	idx := make(map[string]int, len(out))
	found := make([]string, 0, len(out))
	for i, r := range out {
		idx[r.ID] = i
		found = append(found, r.ID)
	}
	if err := s.loadEvents(ctx, found, idx, out); err != nil {
		return nil, err
	}
	return out, nil
}

type eventRow struct {
	recordID string
	ev       record.Event
}

// loadEvents attaches sub-events for the page in one query
func (s *pg) loadEvents(ctx context.Context, ids []string, idx map[string]int, out []record.Record) error {
	const q = `
		SELECT record_id, kind, COALESCE(author_login, ''), COALESCE(body, ''), occurred_at
		FROM record_events
		WHERE record_id = ANY($1)
		ORDER BY record_id, seq`
	evs, err := store.All(ctx, s.q, func(r store.Row) (eventRow, error) {
		var e eventRow
		err := r.Scan(&e.recordID, &e.ev.Kind, &e.ev.AuthorLogin, &e.ev.Body, &e.ev.OccurredAt)
		return e, err
	}, q, ids)
	if err != nil {
		return err
	}
	for _, e := range evs {
		if i, ok := idx[e.recordID]; ok {
			out[i].Events = append(out[i].Events, e.ev)
		}
	}
	return nil
}
