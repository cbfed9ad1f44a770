// Package golden holds the canonical classification corpus. The corpus
// is a single embedded fixture; both the Go tests and the exported eval
// configuration derive from it, so a new case reaches every consumer
// through one edit
package golden

import (
	"fmt"
	"sync"
	"time"

	"provenance/internal/core/record"

	_ "embed"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed cases.yaml
var casesRaw []byte

// Case tags
const (
	TagPositive   = "positive"
	TagNegative   = "negative"
	TagEdgeCase   = "edge-case"
	TagTechnology = "technology"
	TagType       = "type"
)

// baseTime anchors relative event offsets so rendered fixtures are
// stable across runs
var baseTime = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

// CaseEvent is one fixture sub-event. OffsetHours is relative to the
// record creation time; nil means the source had no timestamp
type CaseEvent struct {
	Kind        string   `yaml:"kind" validate:"required,oneof=commit review comment"`
	Author      string   `yaml:"author"`
	OffsetHours *float64 `yaml:"offset_hours"`
	Body        string   `yaml:"body"`
}

// CaseRecord is the fixture form of a record
type CaseRecord struct {
	ID     string      `yaml:"id" validate:"required"`
	Title  string      `yaml:"title"`
	Body   string      `yaml:"body"`
	Events []CaseEvent `yaml:"events" validate:"dive"`
}

// Expectation is what a correct classification of the case must satisfy
type Expectation struct {
	Assisted            bool     `yaml:"assisted"`
	ToolsMustContain    []string `yaml:"tools_must_contain"`
	ToolsMustNotContain []string `yaml:"tools_must_not_contain"`
	MinConfidence       float64  `yaml:"min_confidence" validate:"gte=0,lte=1"`
}

// Case is one corpus entry
type Case struct {
	ID     string      `yaml:"id" validate:"required"`
	Tags   []string    `yaml:"tags" validate:"required,min=1,dive,oneof=positive negative edge-case technology type"`
	Record CaseRecord  `yaml:"record" validate:"required"`
	Expect Expectation `yaml:"expect"`
}

// AsRecord converts the fixture form into the pipeline record type
func (c Case) AsRecord() record.Record {
	r := record.Record{
		ID:        c.Record.ID,
		Title:     c.Record.Title,
		Body:      c.Record.Body,
		CreatedAt: baseTime,
	}
	for _, ev := range c.Record.Events {
		e := record.Event{Kind: ev.Kind, AuthorLogin: ev.Author, Body: ev.Body}
		if ev.OffsetHours != nil {
			t := baseTime.Add(time.Duration(*ev.OffsetHours * float64(time.Hour)))
			e.OccurredAt = &t
		}
		r.Events = append(r.Events, e)
	}
	return r
}

type fixture struct {
	Cases []Case `yaml:"cases" validate:"required,min=1,unique=ID,dive"`
}

var (
	loadOnce sync.Once
	loaded   []Case
	loadErr  error
)

func load() ([]Case, error) {
	loadOnce.Do(func() {
		var f fixture
		if err := yaml.Unmarshal(casesRaw, &f); err != nil {
			loadErr = fmt.Errorf("golden: parse cases.yaml: %w", err)
			return
		}
		v := validator.New(validator.WithRequiredStructEnabled())
		if err := v.Struct(f); err != nil {
			loadErr = fmt.Errorf("golden: invalid cases.yaml: %w", err)
			return
		}
		loaded = f.Cases
	})
	return loaded, loadErr
}

// All returns every corpus case in fixture order
func All() ([]Case, error) { return load() }

// MustAll is All for test files, where a broken fixture should abort
func MustAll() []Case {
	cs, err := load()
	if err != nil {
		panic(err)
	}
	return cs
}

// ByTag returns the cases carrying tag, in fixture order
func ByTag(tag string) ([]Case, error) {
	cs, err := load()
	if err != nil {
		return nil, err
	}
	var out []Case
	for _, c := range cs {
		for _, t := range c.Tags {
			if t == tag {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}
