// Package service implements the two-pass batch orchestrator. Pass one
// submits every record under the default model config; the failed subset
// is resubmitted once under the stronger fallback config; results merge
// by record id with pass-two results overriding pass-one failures
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"provenance/internal/adapters/inference"
	"provenance/internal/core/prompt"
	perr "provenance/internal/platform/errors"
	"provenance/internal/platform/logger"
	"provenance/internal/services/batch/domain"
	recdom "provenance/internal/services/records/domain"
)

// Config for the orchestrator
type Config struct {
	BatchSize int
	MaxDepth  int

	PollBase    time.Duration
	PollCeiling time.Duration

	Primary  inference.ModelConfig
	Fallback inference.ModelConfig

	TemplateName    string
	TemplateVersion string
	RegistryVersion string
}

// Service implements domain.RunnerPort
type Service struct {
	Records  recdom.ReaderPort
	Provider domain.ProviderPort
	Jobs     domain.JobStorePort
	Results  domain.ResultWriterPort
	Engine   *prompt.Engine
	Cfg      Config

	log   logger.Logger
	now   func() time.Time
	sleep func(time.Duration)
}

// New constructs the orchestrator
func New(
	records recdom.ReaderPort,
	provider domain.ProviderPort,
	jobs domain.JobStorePort,
	results domain.ResultWriterPort,
	engine *prompt.Engine,
	cfg Config,
) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 3
	}
	if cfg.PollBase <= 0 {
		cfg.PollBase = 5 * time.Second
	}
	if cfg.PollCeiling < cfg.PollBase {
		cfg.PollCeiling = 60 * time.Second
	}
	return &Service{
		Records:  records,
		Provider: provider,
		Jobs:     jobs,
		Results:  results,
		Engine:   engine,
		Cfg:      cfg,
		log:      *logger.Named("batch"),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Run builds one batch from the window and drives it to a terminal state
func (s *Service) Run(ctx context.Context, w domain.Window) (domain.Report, error) {
	rows, err := s.Records.ListUnclassified(ctx, recdom.Filter{
		Since:           w.Since,
		Until:           w.Until,
		Limit:           s.Cfg.BatchSize,
		RegistryVersion: s.Cfg.RegistryVersion,
		TemplateVersion: s.Cfg.TemplateVersion,
	})
	if err != nil {
		return domain.Report{}, err
	}
	if len(rows) == 0 {
		return domain.Report{Outcome: domain.OutcomeNothingToDo}, nil
	}

	items := make([]inference.Item, 0, len(rows))
	recordIDs := make([]string, 0, len(rows))
	var schemaVersion string
	for _, r := range rows {
		rd, err := s.Engine.Render(s.Cfg.TemplateName, s.Cfg.TemplateVersion, prompt.Context{Record: r})
		if err != nil {
			return domain.Report{}, err
		}
		schemaVersion = rd.SchemaVersion
		items = append(items, inference.Item{CustomID: r.ID, System: rd.System, User: rd.User})
		recordIDs = append(recordIDs, r.ID)
	}

	job := domain.Job{
		ID:              uuid.New(),
		State:           domain.StateBuilding,
		Pass:            1,
		RecordIDs:       recordIDs,
		RegistryVersion: s.Cfg.RegistryVersion,
		TemplateName:    s.Cfg.TemplateName,
		TemplateVersion: s.Cfg.TemplateVersion,
		SchemaVersion:   schemaVersion,
		CreatedAt:       s.now().UTC(),
		UpdatedAt:       s.now().UTC(),
	}
	if err := s.Jobs.CreateJob(ctx, job); err != nil {
		return domain.Report{}, err
	}

	// Persist the provider id before acting on it so a crash between
	// submit and update can be resumed, not resubmitted
	handle, err := s.Provider.CreateBatch(ctx, inference.BatchRequest{Config: s.Cfg.Primary, Items: items})
	if err != nil {
		return s.fatal(ctx, job, err)
	}
	job.ProviderBatchID = handle.ID
	job.State = domain.StateSubmitted
	if err := s.transition(ctx, &job, domain.StateSubmitted); err != nil {
		return domain.Report{JobID: job.ID}, err
	}

	return s.drive(ctx, job)
}

// Resume continues a persisted job. Submitted batches are re-polled,
// never re-submitted
func (s *Service) Resume(ctx context.Context, jobID uuid.UUID) (domain.Report, error) {
	job, err := s.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return domain.Report{}, err
	}
	switch job.State {
	case domain.StateMerged:
		return domain.Report{JobID: job.ID, Outcome: domain.OutcomeNothingToDo, Total: len(job.RecordIDs)}, nil
	case domain.StateFailed:
		return domain.Report{JobID: job.ID}, perr.Conflictf("batch job %s already failed", job.ID)
	case domain.StateBuilding:
		// crashed before submit; nothing reached the provider
		job.State = domain.StateFailed
		_ = s.Jobs.UpdateJob(ctx, job)
		return domain.Report{JobID: job.ID}, perr.Conflictf("batch job %s never submitted", job.ID)
	case domain.StateSubmitted, domain.StatePolling, domain.StateCompleted, domain.StatePartiallyFailed:
		return s.drive(ctx, job)
	case domain.StateFallbackSubmitted, domain.StateFallbackPolling, domain.StateFallbackCompleted:
		// pass-1 successes are already persisted; count them back in
		rep := domain.Report{
			JobID:     job.ID,
			Total:     len(job.RecordIDs),
			Succeeded: len(job.RecordIDs) - len(job.FailedIDs),
		}
		return s.driveFallback(ctx, job, rep)
	default:
		return domain.Report{JobID: job.ID}, perr.Internalf("batch job %s in unknown state %q", job.ID, job.State)
	}
}

// drive runs pass one from SUBMITTED onward, then hands off to the
// fallback pass when a failed subset remains
func (s *Service) drive(ctx context.Context, job domain.Job) (domain.Report, error) {
	rep := domain.Report{JobID: job.ID, Total: len(job.RecordIDs)}

	if job.State == domain.StateSubmitted || job.State == domain.StatePolling {
		if err := s.transition(ctx, &job, domain.StatePolling); err != nil {
			return rep, err
		}
		if err := s.poll(ctx, &job); err != nil {
			return s.reportFatal(ctx, job, rep, err)
		}

		results, err := s.Provider.ListResults(ctx, job.ProviderBatchID)
		if err != nil {
			return s.reportFatal(ctx, job, rep, err)
		}
		evaluated := evaluatePass(job, results, 1)

		succeeded, failed := split(evaluated)
		if _, err := s.persistSuccesses(ctx, job, succeeded); err != nil {
			return rep, err
		}
		rep.Succeeded = len(succeeded)

		if len(failed) == 0 {
			if err := s.transition(ctx, &job, domain.StateCompleted); err != nil {
				return rep, err
			}
			if err := s.transition(ctx, &job, domain.StateMerged); err != nil {
				return rep, err
			}
			rep.Outcome = domain.OutcomeCompleted
			return rep, nil
		}

		job.FailedIDs = recordIDs(failed)
		if err := s.transition(ctx, &job, domain.StatePartiallyFailed); err != nil {
			return rep, err
		}
	}

	if job.State == domain.StatePartiallyFailed || job.State == domain.StateCompleted {
		return s.submitFallback(ctx, job, rep)
	}
	return rep, perr.Internalf("batch job %s in unexpected state %q", job.ID, job.State)
}

// submitFallback reschedules the failed subset under the stronger config.
// Every reschedule consumes requeue depth; at the ceiling the remaining
// failures become permanent instead of looping forever
func (s *Service) submitFallback(ctx context.Context, job domain.Job, rep domain.Report) (domain.Report, error) {
	if len(job.FailedIDs) == 0 {
		if err := s.transition(ctx, &job, domain.StateMerged); err != nil {
			return rep, err
		}
		rep.Outcome = domain.OutcomeCompleted
		return rep, nil
	}

	job.Depth++
	if job.Depth > s.Cfg.MaxDepth {
		s.log.Warn().
			Str("job_id", job.ID.String()).
			Int("depth", job.Depth).
			Int("failed", len(job.FailedIDs)).
			Msg("requeue depth exhausted, flagging failures permanent")
		if err := s.persistPermanent(ctx, job, job.FailedIDs, domain.FailProviderError, "requeue depth exhausted"); err != nil {
			return rep, err
		}
		if err := s.transition(ctx, &job, domain.StateMerged); err != nil {
			return rep, err
		}
		rep.Permanent = len(job.FailedIDs)
		rep.Outcome = domain.OutcomeMaxDepthExhausted
		return rep, nil
	}

	items, err := s.renderSubset(ctx, job, job.FailedIDs)
	if err != nil {
		return rep, err
	}

	job.Pass = 2
	if err := s.Jobs.UpdateJob(ctx, job); err != nil {
		return rep, err
	}
	handle, err := s.Provider.CreateBatch(ctx, inference.BatchRequest{Config: s.Cfg.Fallback, Items: items})
	if err != nil {
		return s.reportFatal(ctx, job, rep, err)
	}
	job.ProviderBatchID = handle.ID
	if err := s.transition(ctx, &job, domain.StateFallbackSubmitted); err != nil {
		return rep, err
	}

	return s.driveFallback(ctx, job, rep)
}

// driveFallback polls pass two and merges. Pass-one successes are already
// persisted and never touched; pass-two successes fill only the gaps
func (s *Service) driveFallback(ctx context.Context, job domain.Job, rep domain.Report) (domain.Report, error) {
	if job.State == domain.StateFallbackSubmitted || job.State == domain.StateFallbackPolling {
		if err := s.transition(ctx, &job, domain.StateFallbackPolling); err != nil {
			return rep, err
		}
		if err := s.poll(ctx, &job); err != nil {
			return s.reportFatal(ctx, job, rep, err)
		}
		if err := s.transition(ctx, &job, domain.StateFallbackCompleted); err != nil {
			return rep, err
		}
	}

	results, err := s.Provider.ListResults(ctx, job.ProviderBatchID)
	if err != nil {
		return s.reportFatal(ctx, job, rep, err)
	}
	evaluated := evaluateSubset(job, job.FailedIDs, results, 2)

	succeeded, failed := split(evaluated)
	if _, err := s.persistSuccesses(ctx, job, succeeded); err != nil {
		return rep, err
	}
	rep.Recovered = len(succeeded)
	rep.Succeeded += len(succeeded)

	if len(failed) > 0 {
		for i := range failed {
			failed[i].Permanent = true
		}
		if err := s.Results.WriteFailures(ctx, job.ID, failed); err != nil {
			return rep, err
		}
		rep.Permanent = len(failed)
	}

	if err := s.transition(ctx, &job, domain.StateMerged); err != nil {
		return rep, err
	}
	if rep.Permanent > 0 {
		rep.Outcome = domain.OutcomePartialFailures
	} else {
		rep.Outcome = domain.OutcomeCompleted
	}
	return rep, nil
}

// poll waits for the provider to finish the current batch, backing off
// exponentially from PollBase to PollCeiling. The caller's deadline is
// the only bound; hitting it marks the job failed-to-complete
func (s *Service) poll(ctx context.Context, job *domain.Job) error {
	delay := s.Cfg.PollBase
	for {
		if err := ctx.Err(); err != nil {
			return perr.Timeoutf("batch job %s poll deadline: %v", job.ID, err)
		}
		st, err := s.Provider.GetBatch(ctx, job.ProviderBatchID)
		if err != nil {
			return err
		}
		if st.Ended() {
			s.log.Debug().
				Str("job_id", job.ID.String()).
				Int("succeeded", st.Counts.Succeeded).
				Int("errored", st.Counts.Errored).
				Msg("batch ended")
			return nil
		}
		s.sleep(delay)
		delay *= 2
		if delay > s.Cfg.PollCeiling {
			delay = s.Cfg.PollCeiling
		}
	}
}

// renderSubset re-renders the failed subset for the fallback pass.
// Fetching by id keeps the pass independent of the original run window
func (s *Service) renderSubset(ctx context.Context, job domain.Job, ids []string) ([]inference.Item, error) {
	rows, err := s.Records.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(ids) {
		return nil, perr.Internalf("batch job %s: %d of %d failed records missing", job.ID, len(ids)-len(rows), len(ids))
	}
	items := make([]inference.Item, 0, len(rows))
	for _, r := range rows {
		rd, err := s.Engine.Render(job.TemplateName, job.TemplateVersion, prompt.Context{Record: r})
		if err != nil {
			return nil, err
		}
		items = append(items, inference.Item{CustomID: r.ID, System: rd.System, User: rd.User})
	}
	return items, nil
}

// persistSuccesses upserts validated payloads. The key triple means a
// rerun at unchanged versions writes nothing
func (s *Service) persistSuccesses(ctx context.Context, job domain.Job, ok []domain.ItemResult) (int, error) {
	if len(ok) == 0 {
		return 0, nil
	}
	model := s.Cfg.Primary.Model
	if len(ok) > 0 && ok[0].Pass == 2 {
		model = s.Cfg.Fallback.Model
	}
	xs := make([]domain.ClassificationWrite, 0, len(ok))
	for _, r := range ok {
		xs = append(xs, domain.ClassificationWrite{
			RecordID:        r.RecordID,
			RegistryVersion: job.RegistryVersion,
			TemplateVersion: job.TemplateVersion,
			SchemaVersion:   job.SchemaVersion,
			Payload:         r.Payload,
			Pass:            r.Pass,
			Model:           model,
			ClassifiedAt:    s.now().UTC(),
		})
	}
	return s.Results.UpsertClassifications(ctx, xs)
}

func (s *Service) persistPermanent(ctx context.Context, job domain.Job, ids []string, kind, detail string) error {
	xs := make([]domain.ItemResult, 0, len(ids))
	for _, id := range ids {
		xs = append(xs, domain.ItemResult{
			RecordID:    id,
			Pass:        job.Pass,
			FailureKind: kind,
			Detail:      detail,
			Permanent:   true,
		})
	}
	return s.Results.WriteFailures(ctx, job.ID, xs)
}

// transition persists a forward state change
func (s *Service) transition(ctx context.Context, job *domain.Job, state string) error {
	job.State = state
	job.UpdatedAt = s.now().UTC()
	return s.Jobs.UpdateJob(ctx, *job)
}

// fatal marks a never-submitted job failed and reports the provider error
func (s *Service) fatal(ctx context.Context, job domain.Job, err error) (domain.Report, error) {
	job.State = domain.StateFailed
	job.UpdatedAt = s.now().UTC()
	if uerr := s.Jobs.UpdateJob(ctx, job); uerr != nil {
		s.log.Error().Err(uerr).Str("job_id", job.ID.String()).Msg("mark job failed")
	}
	return domain.Report{JobID: job.ID, Outcome: domain.OutcomeFatalProviderError}, err
}

// reportFatal marks an in-flight job failed. Timeouts keep their code so
// callers can tell a slow provider from a broken one
func (s *Service) reportFatal(ctx context.Context, job domain.Job, rep domain.Report, err error) (domain.Report, error) {
	job.State = domain.StateFailed
	job.UpdatedAt = s.now().UTC()
	if uerr := s.Jobs.UpdateJob(ctx, job); uerr != nil {
		s.log.Error().Err(uerr).Str("job_id", job.ID.String()).Msg("mark job failed")
	}
	rep.Outcome = domain.OutcomeFatalProviderError
	return rep, err
}

func split(xs []domain.ItemResult) (ok, failed []domain.ItemResult) {
	for _, x := range xs {
		if x.OK {
			ok = append(ok, x)
		} else {
			failed = append(failed, x)
		}
	}
	return ok, failed
}

func recordIDs(xs []domain.ItemResult) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		out = append(out, x.RecordID)
	}
	return out
}
