// Package patterns loads and compiles versioned AI-signal registries from
// the embedded registry documents. A registry is immutable once loaded;
// publishing new rules means adding a new document, never editing one
package patterns

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

//go:embed registries/*.json
var registries embed.FS

// Pattern categories
const (
	CategoryToolSignature = "tool-signature"
	CategoryBotIdentity   = "bot-identity"
	CategoryCoAuthor      = "co-author-marker"
)

type rawPattern struct {
	ID            string `json:"id"             validate:"required"`
	Category      string `json:"category"       validate:"required,oneof=tool-signature bot-identity co-author-marker"`
	Match         string `json:"match"          validate:"required"`
	CaseSensitive bool   `json:"case_sensitive"`
	Tool          string `json:"tool"           validate:"required"`
}

type rawRegistry struct {
	Version    string       `json:"version"    validate:"required,semver"`
	Patterns   []rawPattern `json:"patterns"   validate:"required,min=1,unique=ID,dive"`
	Exclusions []string     `json:"exclusions"`
}

// Pattern is one compiled deterministic rule
type Pattern struct {
	ID            string
	Category      string
	Match         string
	CaseSensitive bool
	Tool          string
}

// ToolTerm is a free-text term with its owning pattern
type ToolTerm struct {
	Pattern Pattern
	Term    string // lowercased unless the pattern is case sensitive
}

// CoAuthorRule is a compiled anchored trailer expression
type CoAuthorRule struct {
	Pattern Pattern
	Re      *regexp.Regexp
}

// Registry is a compiled, immutable snapshot of one registry version
type Registry struct {
	Version  string
	Patterns []Pattern

	toolTerms []ToolTerm
	botIdents map[string]Pattern // lowercased identity -> pattern
	coAuthors []CoAuthorRule
	excluded  map[string]struct{} // lowercased deny-list tokens
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load parses and compiles the embedded registry document for version.
// Unknown versions are an error; the result is safe for concurrent use
func Load(version string) (*Registry, error) {
	raw, err := registries.ReadFile("registries/registry_v" + version + ".json")
	if err != nil {
		return nil, fmt.Errorf("patterns: unknown registry version %q", version)
	}

	var rr rawRegistry
	if err := json.Unmarshal(raw, &rr); err != nil {
		return nil, fmt.Errorf("patterns: parse registry %s: %w", version, err)
	}
	if err := validate.Struct(rr); err != nil {
		return nil, fmt.Errorf("patterns: invalid registry %s: %w", version, err)
	}
	if rr.Version != version {
		return nil, fmt.Errorf("patterns: registry file %s declares version %s", version, rr.Version)
	}

	r := &Registry{
		Version:   rr.Version,
		botIdents: make(map[string]Pattern, 8),
		excluded:  make(map[string]struct{}, len(rr.Exclusions)),
	}

	for _, s := range rr.Exclusions {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			r.excluded[s] = struct{}{}
		}
	}

	for _, rp := range rr.Patterns {
		p := Pattern{
			ID:            rp.ID,
			Category:      rp.Category,
			Match:         rp.Match,
			CaseSensitive: rp.CaseSensitive,
			Tool:          rp.Tool,
		}
		r.Patterns = append(r.Patterns, p)

		switch p.Category {
		case CategoryToolSignature:
			term := p.Match
			if !p.CaseSensitive {
				term = strings.ToLower(term)
			}
			r.toolTerms = append(r.toolTerms, ToolTerm{Pattern: p, Term: term})

		case CategoryBotIdentity:
			r.botIdents[strings.ToLower(strings.TrimSpace(p.Match))] = p

		case CategoryCoAuthor:
			expr := p.Match
			if !p.CaseSensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("patterns: compile %s: %w", p.ID, err)
			}
			r.coAuthors = append(r.coAuthors, CoAuthorRule{Pattern: p, Re: re})
		}
	}

	// Deterministic iteration for tests/debug
	sort.Slice(r.Patterns, func(i, j int) bool { return r.Patterns[i].ID < r.Patterns[j].ID })
	sort.Slice(r.toolTerms, func(i, j int) bool { return r.toolTerms[i].Pattern.ID < r.toolTerms[j].Pattern.ID })
	sort.Slice(r.coAuthors, func(i, j int) bool { return r.coAuthors[i].Pattern.ID < r.coAuthors[j].Pattern.ID })

	return r, nil
}

// ToolTerms returns the free-text terms in deterministic order
func (r *Registry) ToolTerms() []ToolTerm { return r.toolTerms }

// BotIdentity returns the pattern for a lowercased identity, if any
func (r *Registry) BotIdentity(login string) (Pattern, bool) {
	p, ok := r.botIdents[strings.ToLower(strings.TrimSpace(login))]
	return p, ok
}

// CoAuthorRules returns the compiled trailer expressions in deterministic order
func (r *Registry) CoAuthorRules() []CoAuthorRule { return r.coAuthors }

// Excluded reports whether a token sits on the deny-list
func (r *Registry) Excluded(token string) bool {
	_, ok := r.excluded[strings.ToLower(token)]
	return ok
}

// Versions lists the embedded registry versions in ascending semver order
func Versions() []string {
	entries, err := fs.ReadDir(registries, "registries")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		name = strings.TrimPrefix(name, "registry_v")
		name = strings.TrimSuffix(name, ".json")
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return semverLess(out[i], out[j]) })
	return out
}

// Latest returns the highest embedded registry version
func Latest() string {
	vs := Versions()
	if len(vs) == 0 {
		return ""
	}
	return vs[len(vs)-1]
}

// semverLess compares dotted numeric versions; malformed parts sort low
func semverLess(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, _ := strconv.Atoi(as[i])
		bn, _ := strconv.Atoi(bs[i])
		if an != bn {
			return an < bn
		}
	}
	return len(as) < len(bs)
}
