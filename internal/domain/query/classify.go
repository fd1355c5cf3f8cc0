package query

import (
	"regexp"
	"strings"
)

// maxEntityWords bounds an extracted name; longer spans are not a clean split.
const maxEntityWords = 6

// Classification is the outcome of lexical intent detection.
type Classification struct {
	Intent   Intent
	Entities []string
}

// Patterns are tried in order against the lower-cased query; the first match wins.
var comparisonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(.+?)\s+(?:vs\.?|versus)\s+(.+?)(?:[?!]|\.(?:\s|$)|$)`),
	regexp.MustCompile(`compare\s+(.+?)\s+(?:and|with|to)\s+(.+?)(?:[.?!]|$)`),
	regexp.MustCompile(`differences?\s+between\s+(.+?)\s+and\s+(.+?)(?:[.?!]|$)`),
	regexp.MustCompile(`(.+?)\s+and\s+(.+?)\s+differ\b`),
}

var (
	leadingClause  = regexp.MustCompile(`^(?:tell me about|what is|what's|what are|how does|how do|who is|explain|describe|compare|differences? between|the|an|a)\s+`)
	sentenceBreak  = regexp.MustCompile(`[.?!]\s+`)
	trailingClause = regexp.MustCompile(`[\s,;:]+(?:summarize|what are|how do|explain)\b.*$`)
	parenthetical  = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
)

// Classify detects comparison intent ("X vs Y", "compare X and Y",
// "difference between X and Y", "X and Y differ") and extracts two names.
// It never fails: anything short of a clean two-name split is None.
func Classify(raw string) Classification {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return Classification{Intent: None}
	}

	for _, re := range comparisonPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		a := normalizeEntity(lastSentence(m[1]))
		b := normalizeEntity(trailingClause.ReplaceAllString(m[2], ""))
		if !validPair(a, b) {
			return Classification{Intent: None}
		}
		return Classification{Intent: Comparison, Entities: []string{a, b}}
	}

	return Classification{Intent: None}
}

// NormalizeTitle folds a corpus title for exact entity matching:
// trimmed, lower-cased, whitespace collapsed, trailing "(qualifier)" removed.
func NormalizeTitle(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	t = parenthetical.ReplaceAllString(t, "")
	return strings.Join(strings.Fields(t), " ")
}

// lastSentence drops everything up to the final sentence break, so earlier
// sentences never leak into the first name.
func lastSentence(s string) string {
	parts := sentenceBreak.Split(s, -1)
	return parts[len(parts)-1]
}

func normalizeEntity(s string) string {
	s = strings.TrimSpace(s)
	// Strip stacked lead-ins ("tell me about the ...") one at a time.
	for range 4 {
		stripped := leadingClause.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = strings.TrimSpace(stripped)
	}
	s = strings.TrimRight(s, " .,;:!?\"'")
	s = strings.Trim(s, "\"'")
	return NormalizeTitle(s)
}

func validPair(a, b string) bool {
	if a == "" || b == "" || a == b {
		return false
	}
	return len(strings.Fields(a)) <= maxEntityWords && len(strings.Fields(b)) <= maxEntityWords
}
