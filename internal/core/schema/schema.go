// Package schema validates candidate inference output against the
// versioned structural contract paired with each prompt template version.
// Validation is pure: the payload is never mutated or coerced
package schema

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.schema.json
var schemas embed.FS

var (
	mu       sync.RWMutex
	compiled = map[string]*gojsonschema.Schema{}
)

// load compiles and caches the schema for version; compiled snapshots are
// immutable and shared
func load(version string) (*gojsonschema.Schema, error) {
	mu.RLock()
	s, ok := compiled[version]
	mu.RUnlock()
	if ok {
		return s, nil
	}

	raw, err := schemas.ReadFile("schemas/classification_v" + version + ".schema.json")
	if err != nil {
		return nil, fmt.Errorf("schema: unknown schema version %q", version)
	}
	s, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema: compile %s: %w", version, err)
	}

	mu.Lock()
	compiled[version] = s
	mu.Unlock()
	return s, nil
}

// Validate checks payload against the contract for version.
// It never mutates payload; a failing payload is reported with the
// specific violated fields so fallback prompts can be adjusted.
// Unknown versions and malformed JSON report as violations, not errors
func Validate(payload []byte, version string) (bool, []string) {
	s, err := load(version)
	if err != nil {
		return false, []string{err.Error()}
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return false, []string{"payload is not valid JSON: " + err.Error()}
	}
	if res.Valid() {
		return true, nil
	}
	out := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		out = append(out, e.Field()+": "+e.Description())
	}
	sort.Strings(out)
	return false, out
}

// Known reports whether a schema version is embedded
func Known(version string) bool {
	_, err := load(version)
	return err == nil
}

// Versions lists the embedded schema versions in ascending order
func Versions() []string {
	entries, err := fs.ReadDir(schemas, "schemas")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		name = strings.TrimPrefix(name, "classification_v")
		name = strings.TrimSuffix(name, ".schema.json")
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
