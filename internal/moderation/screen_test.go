package moderation

import (
	"strings"
	"testing"
)

func TestScreen_CleanTextPasses(t *testing.T) {
	s := NewScreen(nil)
	for _, text := range []string{
		"A measured discussion of Gupta-era coinage.",
		"Has anyone read the new translation of the Arthashastra?",
		"",
		"   \n\t  ",
	} {
		if res := s.Scan(text); res.Flagged {
			t.Errorf("clean text flagged: %q matches=%v", text, res.Matches)
		}
	}
}

func TestScreen_BlocklistTerms(t *testing.T) {
	s := NewScreen(nil)

	res := s.Scan("Get your FREE ROBUX here today")
	if !res.Flagged {
		t.Fatalf("blocklist term must flag")
	}
	if len(res.Matches) != 1 || !strings.EqualFold(res.Matches[0], "free robux") {
		t.Fatalf("unexpected matches: %v", res.Matches)
	}

	// Word boundaries: a term embedded in a longer word does not match.
	if res := s.Scan("the spamlinked article"); res.Flagged {
		t.Fatalf("embedded term must not flag: %v", res.Matches)
	}
}

func TestScreen_RepeatedRuneRuns(t *testing.T) {
	s := NewScreen(nil)

	res := s.Scan("heyyyyy everyone")
	if !res.Flagged {
		t.Fatalf("5+ repeated letters must flag")
	}
	if len(res.Matches) != 1 || res.Matches[0] != "yyyyy" {
		t.Fatalf("unexpected matches: %v", res.Matches)
	}

	// One below the threshold passes.
	if res := s.Scan("heyyyy everyone"); res.Flagged {
		t.Fatalf("4 repeats must not flag: %v", res.Matches)
	}
	// Runs of whitespace are formatting, not shouting.
	if res := s.Scan("columns        aligned"); res.Flagged {
		t.Fatalf("space runs must not flag: %v", res.Matches)
	}
}

func TestScreen_StructuralPatterns(t *testing.T) {
	s := NewScreen(nil)

	if res := s.Scan("AAAAAAAA great deal"); !res.Flagged {
		t.Fatalf("repeated characters must flag")
	}
	if res := s.Scan("see bit.ly/xyz for details"); !res.Flagged {
		t.Fatalf("url shortener must flag")
	}
	if res := s.Scan("call now 9999999999"); !res.Flagged {
		t.Fatalf("phone dropper must flag")
	}
}

func TestScreen_ExtraTermsFromConfig(t *testing.T) {
	s := NewScreen([]string{"  ForbiddenWord  ", ""})

	res := s.Scan("this mentions forbiddenword casually")
	if !res.Flagged {
		t.Fatalf("configured extra term must flag")
	}

	// The same text passes a screen without the extra term.
	if res := NewScreen(nil).Scan("this mentions forbiddenword casually"); res.Flagged {
		t.Fatalf("base ruleset must not know the extra term")
	}
}

func TestScreen_MatchesDeduplicated(t *testing.T) {
	s := NewScreen(nil)
	res := s.Scan("free robux free robux FREE ROBUX")
	if !res.Flagged {
		t.Fatalf("must flag")
	}
	if len(res.Matches) != 1 {
		t.Fatalf("matches must be case-insensitively deduplicated, got %v", res.Matches)
	}
}
