// Package detector implements deterministic AI-assistance detection over
// source-change records. It is a pure function of its input and the
// registry version it was built with
package detector

import (
	"sort"
	"strings"

	"provenance/internal/core/normalize"
	"provenance/internal/core/patterns"
)

// Field names a location where a pattern matched
type Field string

const (
	// FieldTitle is the record title
	FieldTitle Field = "title"
	// FieldBody is the record body
	FieldBody Field = "body"
	// FieldCommit is a commit message body
	FieldCommit Field = "commit"
	// FieldTrailer is a commit trailer line
	FieldTrailer Field = "trailer"
	// FieldAuthor is a sub-event author identity
	FieldAuthor Field = "author"
)

// Input is the detector's view of one record. All fields may be empty;
// malformed input degrades to an empty signal, never an error
type Input struct {
	Title          string
	Body           string
	CommitMessages []string
	AuthorLogins   []string
}

// Match records one pattern firing at one location
type Match struct {
	PatternID string
	Category  string
	Tool      string
	Term      string
	Field     Field
}

// Signal is the deterministic output for one record
type Signal struct {
	Assisted        bool
	Tools           []string // sorted, deduped
	RegistryVersion string
	Matches         []Match
}

// Detector runs detection against one compiled registry snapshot
type Detector struct {
	reg  *patterns.Registry
	norm *normalize.Normalizer
}

// New creates a Detector bound to a registry snapshot
func New(reg *patterns.Registry) *Detector {
	return &Detector{reg: reg, norm: normalize.New()}
}

// Detect scans one record. Same input and registry version always yield
// the same signal
func (d *Detector) Detect(in Input) Signal {
	sig := Signal{RegistryVersion: d.reg.Version}

	appendMatch := func(m Match) {
		sig.Matches = append(sig.Matches, m)
	}

	// Free-text tool signatures over title, body, and commit messages
	d.scanText(in.Title, FieldTitle, appendMatch)
	d.scanText(in.Body, FieldBody, appendMatch)
	for _, msg := range in.CommitMessages {
		d.scanText(msg, FieldCommit, appendMatch)
	}

	// Bot identities against sub-event author logins, exact match only
	for _, login := range in.AuthorLogins {
		if login == "" {
			continue
		}
		if p, ok := d.reg.BotIdentity(login); ok {
			appendMatch(Match{
				PatternID: p.ID,
				Category:  p.Category,
				Tool:      p.Tool,
				Term:      strings.ToLower(login),
				Field:     FieldAuthor,
			})
		}
	}

	// Co-author markers against commit trailer lines, anchored expressions.
	// Stricter than free-text on purpose: a trailer asserts authorship
	for _, msg := range in.CommitMessages {
		for _, line := range ExtractTrailers(msg) {
			for _, rule := range d.reg.CoAuthorRules() {
				if rule.Re.MatchString(line) {
					appendMatch(Match{
						PatternID: rule.Pattern.ID,
						Category:  rule.Pattern.Category,
						Tool:      rule.Pattern.Tool,
						Term:      line,
						Field:     FieldTrailer,
					})
				}
			}
		}
	}

	sig.Assisted = len(sig.Matches) > 0
	sig.Tools = toolSet(sig.Matches)
	return sig
}

// scanText runs the free-text tool terms over one field
func (d *Detector) scanText(raw string, field Field, emit func(Match)) {
	if raw == "" {
		return
	}
	folded := d.norm.Normalize(raw)
	for _, tt := range d.reg.ToolTerms() {
		hay := folded
		if tt.Pattern.CaseSensitive {
			hay = raw
		}
		if !d.termFires(hay, tt.Term) {
			continue
		}
		emit(Match{
			PatternID: tt.Pattern.ID,
			Category:  tt.Pattern.Category,
			Tool:      tt.Pattern.Tool,
			Term:      tt.Term,
			Field:     field,
		})
	}
}

// termFires reports whether term occurs in hay at a word boundary and
// outside the deny-list. A single non-excluded occurrence is enough
func (d *Detector) termFires(hay, term string) bool {
	if term == "" {
		return false
	}
	off := 0
	for {
		i := strings.Index(hay[off:], term)
		if i < 0 {
			return false
		}
		start := off + i
		end := start + len(term)
		if boundaryOK(hay, start, end) && !d.inDenyList(hay, start, end) {
			return true
		}
		off = start + 1
	}
}

// inDenyList widens the hit to its containing token and checks the deny-list.
// Exclusion always wins over a textual match. Sentence punctuation after the
// token does not defeat exclusion, but deny entries ending in punctuation
// (like "cursor:") are still honored verbatim
func (d *Detector) inDenyList(s string, start, end int) bool {
	ls, rs := expandToToken(s, start, end)
	tok := s[ls:rs]
	if d.reg.Excluded(tok) {
		return true
	}
	trimmed := strings.TrimRight(tok, ".,;!?)\"'")
	return trimmed != tok && d.reg.Excluded(trimmed)
}

// toolSet collapses match tool labels into a sorted set
func toolSet(ms []Match) []string {
	if len(ms) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ms))
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		if m.Tool == "" {
			continue
		}
		if _, ok := seen[m.Tool]; ok {
			continue
		}
		seen[m.Tool] = struct{}{}
		out = append(out, m.Tool)
	}
	sort.Strings(out)
	return out
}
