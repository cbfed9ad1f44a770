package prompt

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"provenance/internal/core/record"
)

func testRecord() record.Record {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	later := created.Add(3*time.Hour + 30*time.Minute)
	earlier := created.Add(-30 * time.Minute)
	return record.Record{
		ID:        "rec-001",
		Title:     "Fix flaky retry loop",
		Body:      "The retry loop gave up too early under load.",
		CreatedAt: created,
		Events: []record.Event{
			{Kind: record.KindCommit, AuthorLogin: "alice", Body: "fix: widen retry window", OccurredAt: &later},
			{Kind: record.KindComment, AuthorLogin: "bob", Body: "looks right", OccurredAt: &earlier},
			{Kind: record.KindReview, AuthorLogin: "carol", Body: "approved"},
		},
	}
}

func TestRenderDeterministic(t *testing.T) {
	e := NewEngine()
	ctx := Context{Record: testRecord()}

	first, err := e.Render("review-classify", "1.0.0", ctx)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := e.Render("review-classify", "1.0.0", ctx)
		if err != nil {
			t.Fatalf("render %d: %v", i, err)
		}
		if again.System != first.System || again.User != first.User {
			t.Fatalf("render %d not byte-identical", i)
		}
	}
}

func TestRenderCarriesManifestPairing(t *testing.T) {
	e := NewEngine()
	got, err := e.Render("review-classify", "1.0.0", Context{Record: testRecord()})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got.Name != "review-classify" || got.Version != "1.0.0" {
		t.Fatalf("identity = %s v%s", got.Name, got.Version)
	}
	if got.SchemaVersion != "1.0.0" {
		t.Fatalf("schema version = %s", got.SchemaVersion)
	}
	if got.System == "" || got.User == "" {
		t.Fatal("empty composed output")
	}
}

func TestRenderOffsets(t *testing.T) {
	e := NewEngine()
	got, err := e.Render("review-classify", "1.0.0", Context{Record: testRecord()})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"[+3.5h] commit by alice",
		"[-0.5h] comment by bob",
		"[nullh] review by carol",
	} {
		if !strings.Contains(got.User, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, got.User)
		}
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	e := NewEngine()
	if _, err := e.Render("review-classify", "9.9.9", Context{}); err == nil {
		t.Fatal("expected error for unknown version")
	}
	if _, err := e.Render("nope", "1.0.0", Context{}); err == nil {
		t.Fatal("expected error for unknown name")
	}
}

func TestManifestRejectsUnknownSchema(t *testing.T) {
	fsys := fstest.MapFS{
		"t/v1.0.0/manifest.yaml": &fstest.MapFile{Data: []byte(
			"name: t\nversion: 1.0.0\nschema: 0.0.1\nsystem: [a]\nuser: [b]\n",
		)},
		"t/v1.0.0/a.tmpl": &fstest.MapFile{Data: []byte("sys")},
		"t/v1.0.0/b.tmpl": &fstest.MapFile{Data: []byte("usr")},
	}
	e := NewEngineFS(fsys)
	if _, err := e.Manifest("t", "1.0.0"); err == nil {
		t.Fatal("expected unknown-schema error")
	}
}

func TestManifestRejectsMismatchedDeclaration(t *testing.T) {
	fsys := fstest.MapFS{
		"t/v1.0.0/manifest.yaml": &fstest.MapFile{Data: []byte(
			"name: other\nversion: 1.0.0\nschema: 1.0.0\nsystem: [a]\nuser: [b]\n",
		)},
	}
	e := NewEngineFS(fsys)
	if _, err := e.Manifest("t", "1.0.0"); err == nil {
		t.Fatal("expected identity mismatch error")
	}
}

func TestSectionsComposeInManifestOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"t/v1.0.0/manifest.yaml": &fstest.MapFile{Data: []byte(
			"name: t\nversion: 1.0.0\nschema: 1.0.0\nsystem: [two, one]\nuser: [u]\n",
		)},
		"t/v1.0.0/one.tmpl": &fstest.MapFile{Data: []byte("ONE")},
		"t/v1.0.0/two.tmpl": &fstest.MapFile{Data: []byte("TWO")},
		"t/v1.0.0/u.tmpl":   &fstest.MapFile{Data: []byte("USER")},
	}
	e := NewEngineFS(fsys)
	got, err := e.Render("t", "1.0.0", Context{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got.System != "TWO\n\nONE\n" {
		t.Fatalf("system = %q", got.System)
	}
}

func TestRenderSectionIndependence(t *testing.T) {
	// Editing one section must not change another's rendered bytes
	e := NewEngine()
	ctx := Context{Record: testRecord()}
	role, err := e.RenderSection("review-classify", "1.0.0", "role", ctx)
	if err != nil {
		t.Fatalf("render role: %v", err)
	}
	rules, err := e.RenderSection("review-classify", "1.0.0", "detection_rules", ctx)
	if err != nil {
		t.Fatalf("render rules: %v", err)
	}
	full, err := e.Render("review-classify", "1.0.0", ctx)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(full.System, strings.TrimRight(role, "\n")) {
		t.Fatal("composed system does not contain role section verbatim")
	}
	if !strings.Contains(full.System, strings.TrimRight(rules, "\n")) {
		t.Fatal("composed system does not contain rules section verbatim")
	}
}

func TestTemplates(t *testing.T) {
	e := NewEngine()
	got := e.Templates()
	found := false
	for _, id := range got {
		if id == "review-classify/1.0.0" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Templates() = %v, missing review-classify/1.0.0", got)
	}
}

func TestFormatOffset(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{3.5, "+3.5"},
		{0, "+0.0"},
		{-0.5, "-0.5"},
		{12, "+12.0"},
	}
	for _, c := range cases {
		if got := formatOffset(c.in); got != c.want {
			t.Fatalf("formatOffset(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
