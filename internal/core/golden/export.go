package golden

import (
	"fmt"

	"provenance/internal/core/prompt"

	"gopkg.in/yaml.v3"
)

// evalConfig is the file shape the external eval tool consumes
type evalConfig struct {
	Template string     `yaml:"template"`
	Version  string     `yaml:"version"`
	Schema   string     `yaml:"schema"`
	Cases    []evalCase `yaml:"cases"`
}

type evalCase struct {
	ID     string     `yaml:"id"`
	Tags   []string   `yaml:"tags"`
	Prompt evalPrompt `yaml:"prompt"`
	Expect evalExpect `yaml:"expect"`
}

type evalPrompt struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type evalExpect struct {
	Assisted            bool     `yaml:"assisted"`
	ToolsMustContain    []string `yaml:"tools_must_contain,omitempty"`
	ToolsMustNotContain []string `yaml:"tools_must_not_contain,omitempty"`
	MinConfidence       float64  `yaml:"min_confidence,omitempty"`
}

// Export renders the whole corpus through the template version and
// serializes it as the eval tool's configuration. The corpus and the
// rendered prompts come out of the same case list, so the export can
// never disagree with the Go tests about what a case contains
func Export(eng *prompt.Engine, templateName, templateVersion string) ([]byte, error) {
	cases, err := All()
	if err != nil {
		return nil, err
	}

	cfg := evalConfig{Template: templateName, Version: templateVersion}
	for _, c := range cases {
		r, err := eng.Render(templateName, templateVersion, prompt.Context{Record: c.AsRecord()})
		if err != nil {
			return nil, fmt.Errorf("golden: render case %s: %w", c.ID, err)
		}
		cfg.Schema = r.SchemaVersion
		cfg.Cases = append(cfg.Cases, evalCase{
			ID:   c.ID,
			Tags: c.Tags,
			Prompt: evalPrompt{
				System: r.System,
				User:   r.User,
			},
			Expect: evalExpect{
				Assisted:            c.Expect.Assisted,
				ToolsMustContain:    c.Expect.ToolsMustContain,
				ToolsMustNotContain: c.Expect.ToolsMustNotContain,
				MinConfidence:       c.Expect.MinConfidence,
			},
		})
	}

	return yaml.Marshal(cfg)
}
