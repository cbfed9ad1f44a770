// Package domain defines the two-pass batch orchestrator types
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Job states. The state machine only moves forward; MERGED and FAILED
// are terminal
const (
	StateBuilding          = "BUILDING"
	StateSubmitted         = "SUBMITTED"
	StatePolling           = "POLLING"
	StateCompleted         = "COMPLETED"
	StatePartiallyFailed   = "PARTIALLY_FAILED"
	StateFallbackSubmitted = "FALLBACK_SUBMITTED"
	StateFallbackPolling   = "FALLBACK_POLLING"
	StateFallbackCompleted = "FALLBACK_COMPLETED"
	StateMerged            = "MERGED"
	StateFailed            = "FAILED"
)

// Outcome is the caller-visible disposition of one orchestrator run
type Outcome string

// Outcomes. A fatal provider error is never reported as success
const (
	OutcomeNothingToDo        Outcome = "nothing-to-do"
	OutcomeCompleted          Outcome = "completed"
	OutcomePartialFailures    Outcome = "partial-failures"
	OutcomeFatalProviderError Outcome = "fatal-provider-error"
	OutcomeMaxDepthExhausted  Outcome = "max-depth-exhausted"
)

// Item failure kinds
const (
	FailSchemaInvalid   = "schema-invalid"
	FailProviderError   = "provider-error"
	FailOutputTruncated = "output-truncated"
	FailTimeout         = "timeout"
)

// Window selects the records one run may classify
type Window struct {
	Since time.Time
	Until time.Time
}

// Job is the persisted orchestrator state for one batch. A restart
// resumes from this row by re-polling the provider, never re-submitting
type Job struct {
	ID              uuid.UUID
	ProviderBatchID string // current pass's provider id
	State           string
	Pass            int // 1 or 2
	Depth           int // requeue counter, monotone

	RecordIDs []string // pass-1 membership
	FailedIDs []string // subset carried into pass 2

	RegistryVersion string
	TemplateName    string
	TemplateVersion string
	SchemaVersion   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemResult is the typed per-record outcome of one pass. Failures are
// data, not exceptions; a permanent failure is flagged, never dropped
type ItemResult struct {
	RecordID string
	Pass     int

	OK      bool
	Payload []byte // schema-valid classification JSON when OK

	FailureKind string // one of the Fail* constants when !OK
	Detail      string
	Permanent   bool
}

// ClassificationWrite is one persisted classification
type ClassificationWrite struct {
	RecordID        string
	RegistryVersion string
	TemplateVersion string
	SchemaVersion   string
	Payload         []byte
	Pass            int
	Model           string
	ClassifiedAt    time.Time
}

// Report carries counters alongside the outcome
type Report struct {
	JobID     uuid.UUID
	Outcome   Outcome
	Total     int
	Succeeded int
	Recovered int // pass-2 recoveries
	Permanent int
}
