// Package module wires the records reader
package module

import (
	"provenance/internal/modkit"
	"provenance/internal/modkit/repokit"
	"provenance/internal/services/records/domain"
	"provenance/internal/services/records/repo"
)

// Ports exposed by the records module
type Ports struct {
	Reader domain.ReaderPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the records module over the shared PG runner
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	modkit.Build(append([]modkit.Option{
		modkit.WithName("records"),
	}, opts...)...)

	m := &Module{deps: deps}
	m.ports = Ports{Reader: repokit.MustBind(repo.NewPG(), deps.PG)}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "records" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }
