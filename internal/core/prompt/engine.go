// Package prompt composes inference requests from modular, ordered
// template sections. Rendering is deterministic: the same template
// version and context always produce byte-identical output
package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"provenance/internal/core/record"
	"provenance/internal/core/schema"

	"gopkg.in/yaml.v3"
)

//go:embed templates
var templatesFS embed.FS

// Manifest declares a template version: its ordered sections and the
// response schema version it is paired with
type Manifest struct {
	Name    string   `yaml:"name"`
	Version string   `yaml:"version"`
	Schema  string   `yaml:"schema"`
	System  []string `yaml:"system"`
	User    []string `yaml:"user"`
}

// Rendered is one fully composed inference request
type Rendered struct {
	Name          string
	Version       string
	SchemaVersion string
	System        string
	User          string
}

// Context carries everything a render may substitute. Nothing else leaks
// into sections; in particular no wall-clock reads
type Context struct {
	Record record.Record
}

// Engine renders templates from a section tree
type Engine struct {
	fsys fs.FS
}

// NewEngine returns an Engine over the embedded template tree
func NewEngine() *Engine {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err) // embed layout is fixed at build time
	}
	return &Engine{fsys: sub}
}

// NewEngineFS returns an Engine over an arbitrary tree (test seam)
func NewEngineFS(fsys fs.FS) *Engine { return &Engine{fsys: fsys} }

// Manifest loads and checks the manifest for (name, version)
func (e *Engine) Manifest(name, version string) (Manifest, error) {
	raw, err := fs.ReadFile(e.fsys, name+"/v"+version+"/manifest.yaml")
	if err != nil {
		return Manifest{}, fmt.Errorf("prompt: unknown template %s v%s", name, version)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("prompt: parse manifest %s v%s: %w", name, version, err)
	}
	if m.Name != name || m.Version != version {
		return Manifest{}, fmt.Errorf("prompt: manifest %s v%s declares %s v%s", name, version, m.Name, m.Version)
	}
	if len(m.System) == 0 || len(m.User) == 0 {
		return Manifest{}, fmt.Errorf("prompt: manifest %s v%s has empty section lists", name, version)
	}
	// The template/schema pairing is enforced here, not assumed downstream
	if !schema.Known(m.Schema) {
		return Manifest{}, fmt.Errorf("prompt: manifest %s v%s pairs unknown schema version %s", name, version, m.Schema)
	}
	return m, nil
}

// Render composes the request for (name, version) from ctx
func (e *Engine) Render(name, version string, ctx Context) (Rendered, error) {
	m, err := e.Manifest(name, version)
	if err != nil {
		return Rendered{}, err
	}

	view := newView(ctx)

	system, err := e.renderSections(name, version, m.System, view)
	if err != nil {
		return Rendered{}, err
	}
	user, err := e.renderSections(name, version, m.User, view)
	if err != nil {
		return Rendered{}, err
	}

	return Rendered{
		Name:          m.Name,
		Version:       m.Version,
		SchemaVersion: m.Schema,
		System:        system,
		User:          user,
	}, nil
}

// RenderSection renders exactly one section, for section-level tests
func (e *Engine) RenderSection(name, version, section string, ctx Context) (string, error) {
	return e.renderOne(name, version, section, newView(ctx))
}

// Templates lists embedded (name, version) pairs in deterministic order
func (e *Engine) Templates() []string {
	var out []string
	entries, err := fs.ReadDir(e.fsys, ".")
	if err != nil {
		return nil
	}
	for _, te := range entries {
		if !te.IsDir() {
			continue
		}
		vers, err := fs.ReadDir(e.fsys, te.Name())
		if err != nil {
			continue
		}
		for _, ve := range vers {
			if ve.IsDir() {
				out = append(out, te.Name()+"/"+strings.TrimPrefix(ve.Name(), "v"))
			}
		}
	}
	sort.Strings(out)
	return out
}

// renderSections composes the named sections in declared order.
// Composition is concatenation only; no section reads another's output
func (e *Engine) renderSections(name, version string, sections []string, view renderView) (string, error) {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		body, err := e.renderOne(name, version, s, view)
		if err != nil {
			return "", err
		}
		parts = append(parts, strings.TrimRight(body, "\n"))
	}
	return strings.Join(parts, "\n\n") + "\n", nil
}

func (e *Engine) renderOne(name, version, section string, view renderView) (string, error) {
	raw, err := fs.ReadFile(e.fsys, name+"/v"+version+"/"+section+".tmpl")
	if err != nil {
		return "", fmt.Errorf("prompt: template %s v%s has no section %q", name, version, section)
	}
	t, err := template.New(section).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return "", fmt.Errorf("prompt: parse section %s: %w", section, err)
	}
	var b strings.Builder
	if err := t.Execute(&b, view); err != nil {
		return "", fmt.Errorf("prompt: render section %s: %w", section, err)
	}
	return b.String(), nil
}

// renderView is the flattened, pre-formatted model handed to sections
type renderView struct {
	Record recordView
}

type recordView struct {
	ID     string
	Title  string
	Body   string
	Events []eventView
}

type eventView struct {
	Kind        string
	Author      string
	OffsetHours string // "+3.5", "-0.5", or "null"
	Body        string
}

func newView(ctx Context) renderView {
	r := ctx.Record
	rv := recordView{ID: r.ID, Title: r.Title, Body: r.Body}
	for _, ev := range r.Events {
		e := eventView{
			Kind:        ev.Kind,
			Author:      ev.AuthorLogin,
			Body:        ev.Body,
			OffsetHours: "null",
		}
		if h, ok := r.HoursOffset(ev); ok {
			e.OffsetHours = formatOffset(h)
		}
		rv.Events = append(rv.Events, e)
	}
	return renderView{Record: rv}
}

// formatOffset renders a signed one-decimal hours offset
func formatOffset(h float64) string {
	s := strconv.FormatFloat(h, 'f', 1, 64)
	if h >= 0 {
		return "+" + s
	}
	return s
}
