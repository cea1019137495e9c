package moderation

import (
	"regexp"
	"strings"
	"unicode"
)

// ScreenResult is the outcome of the heuristic screen for one text.
type ScreenResult struct {
	Flagged bool
	Matches []string
}

// Screen is the fast, local, pattern-based text scan run before every AI
// content check. Its job is to catch obvious violations cheaply so the
// pipeline never pays the AI call for them. It holds no state beyond its
// compiled ruleset and is safe for concurrent use.
type Screen struct {
	patterns []*regexp.Regexp
	terms    []string
}

// baseTerms is the maintained block-list of exact terms. Matching is
// case-insensitive on word boundaries.
var baseTerms = []string{
	"spamlink",
	"buy followers",
	"free robux",
	"crypto giveaway",
	"work from home scam",
}

// basePatterns catches structural spam markers that plain terms miss.
var basePatterns = []string{
	// Bare URL shorteners commonly used in link spam.
	`(?i)\b(?:bit\.ly|tinyurl\.com|t\.co)/\S+`,
	// Phone-number droppers ("call now 9999999999").
	`(?i)\bcall\s+now\b.{0,20}\d{7,}`,
}

// runThreshold is the repeated-rune count treated as shouting or keyboard
// filler. RE2 has no backreferences, so runs are found with a plain scan
// instead of a pattern.
const runThreshold = 5

// repeatedRun returns the first run of runThreshold or more identical
// non-space runes, or "" when none exists.
func repeatedRun(text string) string {
	runes := []rune(text)
	for i := 0; i < len(runes); {
		j := i + 1
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i >= runThreshold && !unicode.IsSpace(runes[i]) {
			return string(runes[i:j])
		}
		i = j
	}
	return ""
}

// NewScreen compiles the static ruleset plus any extra terms from
// configuration. Extra terms are matched the same way as built-in ones.
func NewScreen(extraTerms []string) *Screen {
	s := &Screen{}

	terms := make([]string, 0, len(baseTerms)+len(extraTerms))
	terms = append(terms, baseTerms...)
	for _, t := range extraTerms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			terms = append(terms, t)
		}
	}
	s.terms = terms

	for _, p := range basePatterns {
		s.patterns = append(s.patterns, regexp.MustCompile(p))
	}
	for _, t := range terms {
		s.patterns = append(s.patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(t)+`\b`))
	}
	return s
}

// Scan checks text against the ruleset. Empty or whitespace-only input
// never flags. The returned matches are the matched fragments, deduplicated
// in first-seen order, for inclusion in audit payloads.
func (s *Screen) Scan(text string) ScreenResult {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ScreenResult{}
	}

	seen := make(map[string]struct{})
	var matches []string
	if run := repeatedRun(trimmed); run != "" {
		seen[strings.ToLower(run)] = struct{}{}
		matches = append(matches, run)
	}
	for _, re := range s.patterns {
		for _, m := range re.FindAllString(trimmed, -1) {
			key := strings.ToLower(m)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			matches = append(matches, m)
		}
	}
	return ScreenResult{Flagged: len(matches) > 0, Matches: matches}
}
