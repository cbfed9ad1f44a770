// Package domain defines the deterministic fast-path service types
package domain

import (
	"time"

	"provenance/internal/core/detector"
)

// Input controls the scan window and batching
type Input struct {
	Since    time.Time
	Until    time.Time
	PageSize int
	Workers  int
	DryRun   bool
}

// SignalWrite is one persisted deterministic signal
type SignalWrite struct {
	RecordID        string
	RegistryVersion string
	Assisted        bool
	Tools           []string
	Matches         []detector.Match
	DetectedAt      time.Time
}

// Report summarizes one fast-path run
type Report struct {
	Scanned  int
	Assisted int
	Written  int
}
