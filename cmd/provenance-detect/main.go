// Command provenance-detect runs the deterministic fast path over a
// window of records
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"
	"time"

	"provenance/internal/modkit"
	"provenance/internal/modkit/module"
	"provenance/internal/modkit/repokit"
	"provenance/internal/platform/config"
	"provenance/internal/platform/logger"
	"provenance/internal/platform/store"

	classifydom "provenance/internal/services/classify/domain"
	classifymod "provenance/internal/services/classify/module"
	recmod "provenance/internal/services/records/module"
)

func mustSetEnv(k, v string) {
	if v != "" {
		_ = os.Setenv(k, v)
	}
}

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
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
		sinceStr = flag.String("since", "", "inclusive day, e.g. 2025-08-01")
		untilStr = flag.String("until", "", "exclusive day, e.g. 2025-08-08")
		registry = flag.String("registry", "", "registry version (default latest embedded)")
		workers  = flag.Int("workers", 2, "concurrency (>=1)")
		page     = flag.Int("page", 500, "page size (records)")
		dryRun   = flag.Bool("dry-run", false, "detect but do not write signals")
	)
	flag.Parse()

	if *sinceStr == "" || *untilStr == "" {
		log.Fatal("since/until are required (day resolution)")
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

	// Pass CLI flags into CORE_CLASSIFY_* so the module can read its own config
	mustSetEnv("CORE_CLASSIFY_REGISTRY_VERSION", *registry)
	mustSetEnv("CORE_CLASSIFY_WORKERS", strconv.Itoa(*workers))
	mustSetEnv("CORE_CLASSIFY_PAGE_SIZE", strconv.Itoa(*page))
	mustSetEnv("CORE_CLASSIFY_DRY_RUN", map[bool]string{true: "1", false: "0"}[*dryRun])

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		Log: *l,
	}

	rm := recmod.New(deps)
	cm := classifymod.New(
		deps,
		classifymod.Options{
			RegistryVersion: *registry,
			Workers:         *workers,
			PageSize:        *page,
			DryRun:          *dryRun,
		},
		modkit.WithPorts(classifydom.Ports{
			Records: module.MustPortsOf[recmod.Ports](rm).Reader,
		}),
	)

	module.Register(rm.Name(), rm.Ports())
	module.Register(cm.Name(), cm.Ports())

	ports, ok := module.PortsAs[classifymod.Ports]("classify")
	if !ok {
		l.Panic().Msg("classify module ports not registered")
	}
	rep, err := ports.Runner.Run(context.Background(), classifydom.Input{
		Since: since.UTC(),
		Until: until.UTC(),
	})
	if err != nil {
		l.Fatal().Err(err).Msg("detect run failed")
	}
	l.Info().
		Int("scanned", rep.Scanned).
		Int("assisted", rep.Assisted).
		Int("written", rep.Written).
		Msg("detect run complete")
}
