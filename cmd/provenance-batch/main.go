// Command provenance-batch runs or resumes the two-pass batch
// inference orchestrator
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"

	"provenance/internal/adapters/inference"
	"provenance/internal/modkit"
	"provenance/internal/modkit/module"
	"provenance/internal/modkit/repokit"
	"provenance/internal/platform/config"
	"provenance/internal/platform/logger"
	"provenance/internal/platform/store"

	batchdom "provenance/internal/services/batch/domain"
	batchmod "provenance/internal/services/batch/module"
	recmod "provenance/internal/services/records/module"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	infCfg := root.Prefix("SERVICE_INFERENCE_")
	l := logger.Get()

	st, err := store.Open(context.Background(), store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", true),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(context.Background(), st)

	var (
		sinceStr  = flag.String("since", "", "inclusive day, e.g. 2025-08-01")
		untilStr  = flag.String("until", "", "exclusive day, e.g. 2025-08-08")
		resumeStr = flag.String("resume", "", "job id to resume instead of starting a run")
		deadline  = flag.Duration("deadline", 2*time.Hour, "overall run deadline")
	)
	flag.Parse()

	client := inference.NewClient(inference.Options{
		BaseURL: infCfg.MayString("BASE_URL", ""),
		APIKey:  infCfg.MustString("API_KEY"),
		Timeout: infCfg.MayDuration("TIMEOUT", 60*time.Second),
	})

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		Log: *l,
	}

	rm := recmod.New(deps)
	bm := batchmod.New(
		deps,
		batchmod.Options{},
		modkit.WithPorts(batchdom.Ports{
			Records:  module.MustPortsOf[recmod.Ports](rm).Reader,
			Provider: client,
		}),
	)

	module.Register(rm.Name(), rm.Ports())
	module.Register(bm.Name(), bm.Ports())

	ctx, cancel := context.WithTimeout(context.Background(), *deadline)
	defer cancel()

	ports, ok := module.PortsAs[batchmod.Ports]("batch")
	if !ok {
		l.Panic().Msg("batch module ports not registered")
	}

	var rep batchdom.Report
	if *resumeStr != "" {
		jobID, err := uuid.Parse(*resumeStr)
		if err != nil {
			log.Fatalf("bad -resume: %v", err)
		}
		rep, err = ports.Runner.Resume(ctx, jobID)
		if err != nil {
			l.Fatal().Err(err).Str("job_id", jobID.String()).Msg("batch resume failed")
		}
	} else {
		if *sinceStr == "" || *untilStr == "" {
			log.Fatal("since/until are required unless -resume is given")
		}
		since, err := time.Parse("2006-01-02", *sinceStr)
		if err != nil {
			log.Fatalf("bad -since: %v", err)
		}
		until, err := time.Parse("2006-01-02", *untilStr)
		if err != nil {
			log.Fatalf("bad -until: %v", err)
		}
		if !since.Before(until) {
			log.Fatal("since must be < until")
		}
		rep, err = ports.Runner.Run(ctx, batchdom.Window{Since: since.UTC(), Until: until.UTC()})
		if err != nil {
			l.Fatal().Err(err).Str("outcome", string(rep.Outcome)).Msg("batch run failed")
		}
	}

	evt := l.Info()
	switch rep.Outcome {
	case batchdom.OutcomePartialFailures, batchdom.OutcomeMaxDepthExhausted:
		evt = l.Warn()
	}
	evt.
		Str("job_id", rep.JobID.String()).
		Str("outcome", string(rep.Outcome)).
		Int("total", rep.Total).
		Int("succeeded", rep.Succeeded).
		Int("recovered", rep.Recovered).
		Int("permanent", rep.Permanent).
		Msg("batch run complete")
}
