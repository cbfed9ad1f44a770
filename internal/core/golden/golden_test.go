package golden

import (
	"strings"
	"testing"

	"provenance/internal/core/detector"
	"provenance/internal/core/patterns"
	"provenance/internal/core/prompt"

	"gopkg.in/yaml.v3"
)

func TestCorpusLoads(t *testing.T) {
	cs, err := All()
	if err != nil {
		t.Fatalf("load corpus: %v", err)
	}
	if len(cs) == 0 {
		t.Fatal("empty corpus")
	}
	seen := map[string]bool{}
	for _, c := range cs {
		if seen[c.ID] {
			t.Fatalf("duplicate case id %s", c.ID)
		}
		seen[c.ID] = true
		if len(c.Tags) == 0 {
			t.Fatalf("case %s has no tags", c.ID)
		}
	}
}

func TestByTag(t *testing.T) {
	pos, err := ByTag(TagPositive)
	if err != nil {
		t.Fatalf("ByTag: %v", err)
	}
	neg, err := ByTag(TagNegative)
	if err != nil {
		t.Fatalf("ByTag: %v", err)
	}
	if len(pos) == 0 || len(neg) == 0 {
		t.Fatalf("corpus must carry both outcomes, got %d positive %d negative", len(pos), len(neg))
	}
	for _, c := range pos {
		if !c.Expect.Assisted {
			t.Fatalf("positive case %s expects assisted=false", c.ID)
		}
	}
	for _, c := range neg {
		if c.Expect.Assisted {
			t.Fatalf("negative case %s expects assisted=true", c.ID)
		}
	}
}

// The corpus is the detector's acceptance suite: every case must agree
// with the deterministic signal at the latest registry version
func TestDetectorAgainstCorpus(t *testing.T) {
	reg, err := patterns.Load(patterns.Latest())
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	det := detector.New(reg)

	for _, c := range MustAll() {
		c := c
		t.Run(c.ID, func(t *testing.T) {
			sig := det.Detect(detector.InputFromRecord(c.AsRecord()))
			if sig.Assisted != c.Expect.Assisted {
				t.Fatalf("assisted = %v, want %v (matches: %+v)", sig.Assisted, c.Expect.Assisted, sig.Matches)
			}
			for _, tool := range c.Expect.ToolsMustContain {
				if !containsTool(sig.Tools, tool) {
					t.Fatalf("tools %v missing %q", sig.Tools, tool)
				}
			}
			for _, tool := range c.Expect.ToolsMustNotContain {
				if containsTool(sig.Tools, tool) {
					t.Fatalf("tools %v must not contain %q", sig.Tools, tool)
				}
			}
		})
	}
}

func containsTool(tools []string, want string) bool {
	for _, tl := range tools {
		if tl == want {
			return true
		}
	}
	return false
}

func TestExportCoversEveryCase(t *testing.T) {
	eng := prompt.NewEngine()
	out, err := Export(eng, "review-classify", "1.0.0")
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var cfg struct {
		Template string `yaml:"template"`
		Version  string `yaml:"version"`
		Schema   string `yaml:"schema"`
		Cases    []struct {
			ID     string `yaml:"id"`
			Prompt struct {
				System string `yaml:"system"`
				User   string `yaml:"user"`
			} `yaml:"prompt"`
		} `yaml:"cases"`
	}
	if err := yaml.Unmarshal(out, &cfg); err != nil {
		t.Fatalf("parse export: %v", err)
	}
	if cfg.Template != "review-classify" || cfg.Version != "1.0.0" || cfg.Schema != "1.0.0" {
		t.Fatalf("export header = %s/%s schema %s", cfg.Template, cfg.Version, cfg.Schema)
	}

	all := MustAll()
	if len(cfg.Cases) != len(all) {
		t.Fatalf("export has %d cases, corpus has %d", len(cfg.Cases), len(all))
	}
	for i, c := range all {
		got := cfg.Cases[i]
		if got.ID != c.ID {
			t.Fatalf("case %d id = %s, want %s", i, got.ID, c.ID)
		}
		if got.Prompt.System == "" || got.Prompt.User == "" {
			t.Fatalf("case %s exported with empty prompt", c.ID)
		}
		if !strings.Contains(got.Prompt.User, c.Record.ID) {
			t.Fatalf("case %s prompt does not carry its record id", c.ID)
		}
	}
}

func TestExportUnknownTemplate(t *testing.T) {
	if _, err := Export(prompt.NewEngine(), "review-classify", "9.9.9"); err == nil {
		t.Fatal("expected error for unknown template version")
	}
}

func TestAsRecordOffsets(t *testing.T) {
	for _, c := range MustAll() {
		r := c.AsRecord()
		for i, ev := range c.Record.Events {
			got := r.Events[i]
			if ev.OffsetHours == nil {
				if got.OccurredAt != nil {
					t.Fatalf("case %s event %d: timestamp fabricated for missing offset", c.ID, i)
				}
				continue
			}
			if got.OccurredAt == nil {
				t.Fatalf("case %s event %d: offset dropped", c.ID, i)
			}
			h, ok := r.HoursOffset(got)
			if !ok || h != *ev.OffsetHours {
				t.Fatalf("case %s event %d: offset %v, want %v", c.ID, i, h, *ev.OffsetHours)
			}
		}
	}
}
