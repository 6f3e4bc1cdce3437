// Package textx provides small text utilities used across the project.
package textx

import (
	"regexp"
	"strings"
)

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	entityPattern = regexp.MustCompile(`&(?:[a-zA-Z][a-zA-Z0-9]*|#[0-9]+|#[xX][0-9a-fA-F]+);`)
	// literal escaped angle brackets as emitted inside JSON-ish model output
	escapedAngleReplacer = strings.NewReplacer(`\u003c`, "", `\u003e`, "", `\u003C`, "", `\u003E`, "")
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// CleanCompletion strips residual markup from a model completion so it is safe to hand to a renderer.
// It removes tags, entity references and escaped angle brackets, then collapses whitespace runs on
// every line to single spaces while keeping line breaks. Stripping repeats until a fixpoint so the
// result is stable: CleanCompletion(CleanCompletion(s)) == CleanCompletion(s).
func CleanCompletion(s string) string {
	if s == "" {
		return ""
	}
	for {
		next := stripMarkup(s)
		if next == s {
			break
		}
		s = next
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}

func stripMarkup(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = entityPattern.ReplaceAllString(s, "")
	return escapedAngleReplacer.Replace(s)
}
