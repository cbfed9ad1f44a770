package domain

import (
	"context"

	recdom "provenance/internal/services/records/domain"
)

// RunnerPort is the external port for the fast-path job
type RunnerPort interface {
	Run(ctx context.Context, in Input) (Report, error)
}

// WriterPort persists deterministic signals.
// Writes are idempotent per (record_id, registry_version)
type WriterPort interface {
	// WriteBatch persists signals and returns the number actually written
	// after conflict suppression
	WriteBatch(ctx context.Context, xs []SignalWrite) (int, error)
}

// Ports are dependencies injected into the classify module
type Ports struct {
	Records recdom.ReaderPort // required
}
