package detector

import "strings"

// ExtractTrailers returns the git-trailer lines from a commit message:
// "Key: value" lines in the final paragraph. A message without a trailer
// block yields nil
func ExtractTrailers(message string) []string {
	if message == "" {
		return nil
	}
	msg := strings.ReplaceAll(message, "\r\n", "\n")
	paras := strings.Split(strings.TrimRight(msg, "\n"), "\n\n")
	if len(paras) == 0 {
		return nil
	}
	last := paras[len(paras)-1]

	var out []string
	for _, line := range strings.Split(last, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !isTrailerLine(line) {
			// one non-trailer line disqualifies the paragraph unless it
			// already produced trailers above it (git tolerates that too,
			// we keep it simple and bail)
			return nil
		}
		out = append(out, line)
	}
	return out
}

// isTrailerLine matches "Token: value" with a letter/hyphen token
func isTrailerLine(line string) bool {
	i := strings.Index(line, ":")
	if i <= 0 || i+1 >= len(line) {
		return false
	}
	key := line[:i]
	for _, r := range key {
		if !(r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return strings.TrimSpace(line[i+1:]) != ""
}
