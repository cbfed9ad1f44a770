// Package repo persists deterministic signals
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"provenance/internal/modkit/repokit"
	"provenance/internal/services/classify/domain"
)

// binder implements repokit.Binder[domain.WriterPort]
type binder struct{}

// NewPG returns a Postgres binder for domain.WriterPort
func NewPG() repokit.Binder[domain.WriterPort] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) domain.WriterPort { return &pg{q: q} }

type pg struct{ q repokit.Queryer }

// WriteBatch inserts signals; duplicates at the same registry version are
// ignored so reruns write nothing
func (s *pg) WriteBatch(ctx context.Context, xs []domain.SignalWrite) (int, error) {
	if len(xs) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO deterministic_signals
		(record_id, registry_version, assisted, tools, matches, detected_at)
		VALUES `)
	args := make([]any, 0, len(xs)*6)
	for i, x := range xs {
		if i > 0 {
			sb.WriteByte(',')
		}
		matches, err := json.Marshal(x.Matches)
		if err != nil {
			return 0, err
		}
		base := i*6 + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d)", base, base+1, base+2, base+3, base+4, base+5)
		args = append(args, x.RecordID, x.RegistryVersion, x.Assisted, x.Tools, matches, x.DetectedAt)
	}
	sb.WriteString(` ON CONFLICT (record_id, registry_version) DO NOTHING`)

	tag, err := s.q.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
