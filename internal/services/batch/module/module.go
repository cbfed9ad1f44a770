// Package module wires the two-pass batch orchestrator
package module

import (
	"provenance/internal/adapters/inference"
	"provenance/internal/core/patterns"
	"provenance/internal/core/prompt"
	"provenance/internal/modkit"
	"provenance/internal/modkit/repokit"
	"provenance/internal/services/batch/domain"
	"provenance/internal/services/batch/repo"
	"provenance/internal/services/batch/service"
)

// Ports exposed by the batch module
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the batch module
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("batch"),
	}, opts...)...)

	ports, ok := b.Ports.(domain.Ports)
	if !ok {
		panic("batch module: expected WithPorts(batch/domain.Ports)")
	}
	if ports.Records == nil || ports.Provider == nil {
		panic("batch module: Ports missing Records or Provider")
	}

	cfg := merge(FromConfig(deps.Cfg), overrides)
	if cfg.RegistryVersion == "" {
		cfg.RegistryVersion = patterns.Latest()
	}

	runner := service.New(
		ports.Records,
		ports.Provider,
		repokit.MustBind(repo.NewJobPG(), deps.PG),
		repokit.MustBind(repo.NewResultPG(), deps.PG),
		prompt.NewEngine(),
		service.Config{
			BatchSize:       cfg.BatchSize,
			MaxDepth:        cfg.MaxDepth,
			PollBase:        cfg.PollBase,
			PollCeiling:     cfg.PollCeiling,
			Primary:         inference.ModelConfig{Model: cfg.PrimaryModel, MaxTokens: cfg.MaxTokens},
			Fallback:        inference.ModelConfig{Model: cfg.FallbackModel, MaxTokens: cfg.FallbackTokens},
			TemplateName:    cfg.TemplateName,
			TemplateVersion: cfg.TemplateVersion,
			RegistryVersion: cfg.RegistryVersion,
		},
	)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: runner}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "batch" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }
