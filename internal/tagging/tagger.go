// Package tagging suggests advisory topic tags for freshly published
// content. It is intentionally small and dependency-light, but engineered
// with production-grade ergonomics:
//
//   - No logging in the library (callers decide how/what to log)
//   - Clear, documented types and functional options (Option pattern)
//   - Unicode-aware tokenization with case folding and stop-word removal
//   - Immutable tagger after construction (safe for concurrent use)
//   - Deterministic ranking and ordering (stable order for ties)
//
// Tags are ranked by term frequency in the text; ties break by the shorter
// token, then lexicographically.
package tagging

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Option configures a KeywordTagger.
type Option func(*config)

type config struct {
	minTokenRunes int
	stopwords     map[string]struct{}
}

func defaultConfig() config {
	return config{
		minTokenRunes: 4,
		stopwords:     defaultStopwords(),
	}
}

// WithMinTokenRunes sets the minimum rune length a token needs to qualify
// as a tag candidate.
func WithMinTokenRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minTokenRunes = n
		}
	}
}

// WithExtraStopwords adds words to the built-in stop list.
func WithExtraStopwords(words []string) Option {
	return func(c *config) {
		fold := cases.Fold()
		for _, w := range words {
			w = fold.String(strings.TrimSpace(w))
			if w != "" {
				c.stopwords[w] = struct{}{}
			}
		}
	}
}

// KeywordTagger derives tags from the most frequent content-bearing tokens
// of a text. The zero value is not usable; construct with New.
type KeywordTagger struct {
	cfg  config
	fold cases.Caser
}

// New builds a KeywordTagger with the given options.
func New(opts ...Option) *KeywordTagger {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &KeywordTagger{cfg: cfg, fold: cases.Fold()}
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

// Suggest returns up to max tags for text, most frequent first. It returns
// nil when the text yields no qualifying tokens.
func (t *KeywordTagger) Suggest(text string, max int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if max <= 0 {
		max = 5
	}

	counts := make(map[string]int)
	for _, w := range wordRE.FindAllString(text, -1) {
		w = t.fold.String(w)
		if utf8.RuneCountInString(w) < t.cfg.minTokenRunes {
			continue
		}
		if _, skip := t.cfg.stopwords[w]; skip {
			continue
		}
		counts[w]++
	}
	if len(counts) == 0 {
		return nil
	}

	type scored struct {
		token string
		count int
		runes int
	}
	buf := make([]scored, 0, len(counts))
	for tok, n := range counts {
		buf = append(buf, scored{token: tok, count: n, runes: utf8.RuneCountInString(tok)})
	}
	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].count != buf[b].count {
			return buf[a].count > buf[b].count
		}
		if buf[a].runes != buf[b].runes {
			return buf[a].runes < buf[b].runes
		}
		return buf[a].token < buf[b].token
	})

	if max > len(buf) {
		max = len(buf)
	}
	out := make([]string, max)
	for i := 0; i < max; i++ {
		out[i] = buf[i].token
	}
	return out
}

// defaultStopwords returns a fresh copy so option mutation never leaks
// between taggers.
func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "about", "after", "all", "also", "an", "and", "any", "are",
		"as", "at", "be", "because", "been", "before", "but", "by", "can",
		"could", "did", "do", "does", "for", "from", "had", "has", "have",
		"he", "her", "here", "him", "his", "how", "i", "if", "in", "into",
		"is", "it", "its", "just", "like", "me", "more", "most", "my",
		"no", "not", "of", "on", "one", "only", "or", "other", "our",
		"out", "over", "she", "so", "some", "such", "than", "that", "the",
		"their", "them", "then", "there", "these", "they", "this", "to",
		"up", "us", "very", "was", "we", "were", "what", "when", "where",
		"which", "while", "who", "why", "will", "with", "would", "you",
		"your",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
