package prompt

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff returns a line-oriented unified-style diff of a against b,
// or "" when identical. Used to gate drift against pinned renderings
func Diff(a, b string) string {
	if a == b {
		return ""
	}
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Drift renders (name, version) with ctx and diffs it against a pinned
// rendering. Empty system and user diffs mean no drift
func Drift(e *Engine, name, version string, ctx Context, pinned Rendered) (system, user string, err error) {
	got, err := e.Render(name, version, ctx)
	if err != nil {
		return "", "", err
	}
	return Diff(pinned.System, got.System), Diff(pinned.User, got.User), nil
}
