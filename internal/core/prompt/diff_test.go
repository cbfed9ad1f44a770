package prompt

import (
	"strings"
	"testing"
)

func TestDiffIdentical(t *testing.T) {
	if got := Diff("same\ntext\n", "same\ntext\n"); got != "" {
		t.Fatalf("expected empty diff, got %q", got)
	}
}

func TestDiffChangedLine(t *testing.T) {
	a := "alpha\nbeta\ngamma\n"
	b := "alpha\nbravo\ngamma\n"
	got := Diff(a, b)
	if !strings.Contains(got, "- beta") || !strings.Contains(got, "+ bravo") {
		t.Fatalf("diff missing change markers:\n%s", got)
	}
	if !strings.Contains(got, "  alpha") {
		t.Fatalf("diff missing unchanged context:\n%s", got)
	}
}

func TestDriftAgainstPinned(t *testing.T) {
	e := NewEngine()
	ctx := Context{Record: testRecord()}
	pinned, err := e.Render("review-classify", "1.0.0", ctx)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	sys, usr, err := Drift(e, "review-classify", "1.0.0", ctx, pinned)
	if err != nil {
		t.Fatalf("drift: %v", err)
	}
	if sys != "" || usr != "" {
		t.Fatalf("expected no drift, got system=%q user=%q", sys, usr)
	}

	pinned.User = strings.Replace(pinned.User, "rec-001", "rec-999", 1)
	_, usr, err = Drift(e, "review-classify", "1.0.0", ctx, pinned)
	if err != nil {
		t.Fatalf("drift: %v", err)
	}
	if usr == "" {
		t.Fatal("expected user drift after pinning an edited rendering")
	}
}
