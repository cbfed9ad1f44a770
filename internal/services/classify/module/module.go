// Package module wires the deterministic fast path
package module

import (
	"provenance/internal/core/patterns"
	"provenance/internal/modkit"
	"provenance/internal/modkit/repokit"
	"provenance/internal/services/classify/domain"
	"provenance/internal/services/classify/repo"
	"provenance/internal/services/classify/service"
)

// Ports exposed by the classify module
type Ports struct {
	Runner domain.RunnerPort
	Writer domain.WriterPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the classify module
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("classify"),
	}, opts...)...)

	ports, ok := b.Ports.(domain.Ports)
	if !ok {
		panic("classify module: expected WithPorts(classify/domain.Ports)")
	}
	if ports.Records == nil {
		panic("classify module: Ports missing Records reader")
	}

	cfg := FromConfig(deps.Cfg)
	if overrides.RegistryVersion != "" {
		cfg.RegistryVersion = overrides.RegistryVersion
	}
	if overrides.Workers != 0 {
		cfg.Workers = overrides.Workers
	}
	if overrides.PageSize != 0 {
		cfg.PageSize = overrides.PageSize
	}
	cfg.DryRun = cfg.DryRun || overrides.DryRun

	version := cfg.RegistryVersion
	if version == "" {
		version = patterns.Latest()
	}
	reg, err := patterns.Load(version)
	if err != nil {
		panic(err)
	}

	writer := repokit.MustBind(repo.NewPG(), deps.PG)
	runner := service.New(ports.Records, writer, reg, service.Config{
		Workers:  cfg.Workers,
		PageSize: cfg.PageSize,
		DryRun:   cfg.DryRun,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Runner: runner, Writer: writer}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "classify" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }
