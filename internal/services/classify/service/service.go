// Package service implements the deterministic fast path. It pages
// unclassified records, runs the detector concurrently, and persists the
// signals; inference never sees this path
package service

import (
	"context"
	"sync"
	"time"

	"provenance/internal/core/detector"
	"provenance/internal/core/patterns"
	perr "provenance/internal/platform/errors"
	"provenance/internal/services/classify/domain"
	recdom "provenance/internal/services/records/domain"
)

// Config for the classify service
type Config struct {
	RegistryVersion string
	Workers         int
	PageSize        int
	DryRun          bool
}

// Service implements domain.RunnerPort
type Service struct {
	Records recdom.ReaderPort
	Writer  domain.WriterPort
	Det     *detector.Detector
	Cfg     Config

	now func() time.Time
}

// New constructs the service against one compiled registry snapshot
func New(records recdom.ReaderPort, writer domain.WriterPort, reg *patterns.Registry, cfg Config) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	cfg.RegistryVersion = reg.Version
	return &Service{
		Records: records,
		Writer:  writer,
		Det:     detector.New(reg),
		Cfg:     cfg,
		now:     time.Now,
	}
}

// Run scans the window and persists one signal per record
func (s *Service) Run(ctx context.Context, in domain.Input) (domain.Report, error) {
	if in.Until.Before(in.Since) {
		return domain.Report{}, perr.InvalidArgf("classify window ends before it starts")
	}
	workers := in.Workers
	if workers <= 0 {
		workers = s.Cfg.Workers
	}
	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = s.Cfg.PageSize
	}
	dryRun := in.DryRun || s.Cfg.DryRun

	var rep domain.Report
	after := ""
	for {
		rows, err := s.Records.ListUnclassified(ctx, recdom.Filter{
			Since:           in.Since,
			Until:           in.Until,
			AfterID:         after,
			Limit:           pageSize,
			RegistryVersion: s.Cfg.RegistryVersion,
		})
		if err != nil {
			return rep, err
		}
		if len(rows) == 0 {
			return rep, nil
		}

		out := make([]domain.SignalWrite, len(rows))
		sem := make(chan struct{}, workers)
		wg := sync.WaitGroup{}
		for i := range rows {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer func() { <-sem; wg.Done() }()
				r := rows[i]
				sig := s.Det.Detect(detector.InputFromRecord(r))
				out[i] = domain.SignalWrite{
					RecordID:        r.ID,
					RegistryVersion: sig.RegistryVersion,
					Assisted:        sig.Assisted,
					Tools:           sig.Tools,
					Matches:         sig.Matches,
					DetectedAt:      s.now().UTC(),
				}
			}(i)
		}
		wg.Wait()

		rep.Scanned += len(rows)
		for i := range out {
			if out[i].Assisted {
				rep.Assisted++
			}
		}

		if !dryRun {
			n, err := s.Writer.WriteBatch(ctx, out)
			if err != nil {
				return rep, err
			}
			rep.Written += n
		}

		after = rows[len(rows)-1].ID
	}
}
