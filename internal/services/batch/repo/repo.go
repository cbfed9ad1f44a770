// Package repo persists orchestrator jobs and classification results
package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"provenance/internal/modkit/repokit"
	perr "provenance/internal/platform/errors"
	strx "provenance/internal/platform/strings"
	"provenance/internal/services/batch/domain"
)

// jobBinder implements repokit.Binder[domain.JobStorePort]
type jobBinder struct{}

// NewJobPG returns a Postgres binder for domain.JobStorePort
func NewJobPG() repokit.Binder[domain.JobStorePort] { return jobBinder{} }

// Bind implements repokit.Binder
func (jobBinder) Bind(q repokit.Queryer) domain.JobStorePort { return &jobPG{q: q} }

type jobPG struct{ q repokit.Queryer }

// CreateJob inserts the initial job row
func (s *jobPG) CreateJob(ctx context.Context, j domain.Job) error {
	const q = `
		INSERT INTO batch_jobs
			(id, provider_batch_id, state, pass, depth,
			 record_ids, failed_ids,
			 registry_version, template_name, template_version, schema_version,
			 created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := s.q.Exec(ctx, q,
		j.ID, strx.SQLNull(j.ProviderBatchID), j.State, j.Pass, j.Depth,
		j.RecordIDs, j.FailedIDs,
		j.RegistryVersion, j.TemplateName, j.TemplateVersion, j.SchemaVersion,
		j.CreatedAt, j.UpdatedAt,
	)
	return err
}

// UpdateJob persists the current state of the machine
func (s *jobPG) UpdateJob(ctx context.Context, j domain.Job) error {
	const q = `
		UPDATE batch_jobs
		SET provider_batch_id = $2, state = $3, pass = $4, depth = $5,
			failed_ids = $6, updated_at = $7
		WHERE id = $1`
	tag, err := s.q.Exec(ctx, q,
		j.ID, strx.SQLNull(j.ProviderBatchID), j.State, j.Pass, j.Depth, j.FailedIDs, j.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return perr.NotFoundf("batch job %s not found", j.ID)
	}
	return nil
}

// GetJob loads one job by id
func (s *jobPG) GetJob(ctx context.Context, id uuid.UUID) (domain.Job, error) {
	const q = `
		SELECT id, provider_batch_id, state, pass, depth,
			record_ids, failed_ids,
			registry_version, template_name, template_version, schema_version,
			created_at, updated_at
		FROM batch_jobs
		WHERE id = $1`
	var j domain.Job
	var providerID *string
	err := s.q.QueryRow(ctx, q, id).Scan(
		&j.ID, &providerID, &j.State, &j.Pass, &j.Depth,
		&j.RecordIDs, &j.FailedIDs,
		&j.RegistryVersion, &j.TemplateName, &j.TemplateVersion, &j.SchemaVersion,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return domain.Job{}, perr.WrapIf(err, perr.ErrorCodeNotFound, fmt.Sprintf("batch job %s", id))
	}
	j.ProviderBatchID = strx.Deref(providerID)
	return j, nil
}

// resultBinder implements repokit.Binder[domain.ResultWriterPort]
type resultBinder struct{}

// NewResultPG returns a Postgres binder for domain.ResultWriterPort
func NewResultPG() repokit.Binder[domain.ResultWriterPort] { return resultBinder{} }

// Bind implements repokit.Binder
func (resultBinder) Bind(q repokit.Queryer) domain.ResultWriterPort { return &resultPG{q: q} }

type resultPG struct{ q repokit.Queryer }

// UpsertClassifications writes payloads keyed by the version triple.
// Existing rows are left alone so reruns at unchanged versions are no-ops
func (s *resultPG) UpsertClassifications(ctx context.Context, xs []domain.ClassificationWrite) (int, error) {
	if len(xs) == 0 {
		return 0, nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO classifications
		(record_id, registry_version, template_version, schema_version,
		 payload, pass, model, classified_at)
		VALUES `)
	args := make([]any, 0, len(xs)*8)
	for i, x := range xs {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*8 + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base, base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		args = append(args,
			x.RecordID, x.RegistryVersion, x.TemplateVersion, x.SchemaVersion,
			x.Payload, x.Pass, x.Model, x.ClassifiedAt,
		)
	}
	sb.WriteString(` ON CONFLICT (record_id, registry_version, template_version) DO NOTHING`)

	tag, err := s.q.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// WriteFailures records permanently failed items; duplicates per job and
// record collapse
func (s *resultPG) WriteFailures(ctx context.Context, jobID uuid.UUID, xs []domain.ItemResult) error {
	if len(xs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO classification_failures
		(job_id, record_id, pass, failure_kind, detail, permanent)
		VALUES `)
	args := make([]any, 0, len(xs)*6)
	for i, x := range xs {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*6 + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d)", base, base+1, base+2, base+3, base+4, base+5)
		args = append(args, jobID, x.RecordID, x.Pass, x.FailureKind, x.Detail, x.Permanent)
	}
	sb.WriteString(` ON CONFLICT (job_id, record_id, pass) DO NOTHING`)
	_, err := s.q.Exec(ctx, sb.String(), args...)
	return err
}
