package domain

import (
	"context"

	"github.com/google/uuid"

	"provenance/internal/adapters/inference"
	recdom "provenance/internal/services/records/domain"
)

// RunnerPort is the external port for the orchestrator
type RunnerPort interface {
	// Run builds, submits, and drives one batch to a terminal state
	Run(ctx context.Context, w Window) (Report, error)

	// Resume continues a persisted job from wherever it stopped
	Resume(ctx context.Context, jobID uuid.UUID) (Report, error)
}

// ProviderPort is the asynchronous inference surface the orchestrator
// drives. *inference.Client satisfies it
type ProviderPort interface {
	CreateBatch(ctx context.Context, req inference.BatchRequest) (inference.BatchHandle, error)
	GetBatch(ctx context.Context, id string) (inference.BatchStatus, error)
	ListResults(ctx context.Context, id string) ([]inference.ResultItem, error)
}

// JobStorePort persists orchestrator state between process lifetimes
type JobStorePort interface {
	CreateJob(ctx context.Context, j Job) error
	UpdateJob(ctx context.Context, j Job) error
	GetJob(ctx context.Context, id uuid.UUID) (Job, error)
}

// ResultWriterPort persists per-record outcomes
type ResultWriterPort interface {
	// UpsertClassifications writes validated payloads keyed by
	// (record_id, registry_version, template_version); existing rows win
	UpsertClassifications(ctx context.Context, xs []ClassificationWrite) (int, error)

	// WriteFailures records permanently failed items for the job
	WriteFailures(ctx context.Context, jobID uuid.UUID, xs []ItemResult) error
}

// Ports are dependencies injected into the batch module
type Ports struct {
	Records  recdom.ReaderPort // required
	Provider ProviderPort      // required
}
