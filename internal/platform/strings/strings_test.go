package strings

import (
	"reflect"
	"testing"

	"provenance/internal/platform/testkit"
)

func TestMustString(t *testing.T) {
	if got := MustString("ok", "name"); got != "ok" {
		t.Fatalf("got %q", got)
	}
	testkit.MustPanic(t, func() { MustString("   ", "name") })
}

func TestPtrAndDeref(t *testing.T) {
	if Ptr("") != nil {
		t.Fatal("Ptr of empty must be nil")
	}
	p := Ptr("x")
	if p == nil || *p != "x" {
		t.Fatalf("Ptr = %v", p)
	}
	if Deref(nil) != "" || Deref(p) != "x" {
		t.Fatal("Deref mismatch")
	}
}

func TestSQLNull(t *testing.T) {
	if SQLNull(" \t") != nil {
		t.Fatal("blank must map to nil")
	}
	if SQLNull("v") != "v" {
		t.Fatal("value must pass through")
	}
}

func TestDedupe(t *testing.T) {
	in := []string{" Claude ", "copilot", "CLAUDE", "", "aider", "copilot"}
	want := []string{"claude", "copilot", "aider"}
	if got := Dedupe(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if Dedupe(nil) != nil {
		t.Fatal("nil in, nil out")
	}
}
