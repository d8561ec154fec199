// Package check holds the per-record invariant checkers: tiling, FCFS
// consistency, GATE compliance, seed echoes and the length distribution of
// practice phrases. Checkers return findings as data; none of them fail.
package check

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/japaniel/lexigate/pkg/curriculum"
)

// DefaultTerminalPunctuation is stripped from the end of a sentence and of
// its reconstruction before comparing them.
const DefaultTerminalPunctuation = `.!?…"”’»`

// TilingPolicy configures the tiling comparison.
type TilingPolicy struct {
	TerminalPunctuation string
	Joiner              string
}

// DefaultTilingPolicy joins units with a single space.
func DefaultTilingPolicy() TilingPolicy {
	return TilingPolicy{TerminalPunctuation: DefaultTerminalPunctuation, Joiner: " "}
}

// TilingResult reports whether a seed's units reconstruct its target text.
type TilingResult struct {
	SeedID        string `json:"seed_id"`
	Pass          bool   `json:"pass"`
	Expected      string `json:"expected,omitempty"`
	Reconstructed string `json:"reconstructed,omitempty"`
}

// Tiling joins the tiling units of seed in ordinal order and compares the
// result with the seed's target text, both with trailing terminal
// punctuation stripped. Expected and Reconstructed are only set on failure.
func Tiling(seed curriculum.Seed, p TilingPolicy) TilingResult {
	parts := make([]string, 0, len(seed.Units))
	for _, u := range TilingUnits(seed) {
		parts = append(parts, u.Target)
	}
	got := StripTerminal(strings.Join(parts, p.Joiner), p.TerminalPunctuation)
	want := StripTerminal(seed.Target, p.TerminalPunctuation)
	if len(parts) > 0 && got == want {
		return TilingResult{SeedID: seed.ID, Pass: true}
	}
	return TilingResult{SeedID: seed.ID, Expected: want, Reconstructed: got}
}

// TilingUnits returns the units of seed that take part in tiling: every unit
// except atomic units embedded as a component of a sibling composite.
func TilingUnits(seed curriculum.Seed) []curriculum.Unit {
	embedded := make(map[string]bool)
	for _, u := range seed.Units {
		for _, c := range u.Components {
			embedded[c] = true
		}
	}
	out := make([]curriculum.Unit, 0, len(seed.Units))
	for _, u := range seed.Units {
		if !embedded[u.ID] {
			out = append(out, u)
		}
	}
	return out
}

// StripTerminal removes trailing whitespace and runes in terminal from s.
func StripTerminal(s, terminal string) string {
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(terminal, r)
	})
}

// SplitByUnits cuts text into consecutive segments whose byte lengths match
// the tiling units of seed, skipping one joiner between segments. It reports
// false when text is too short for the units.
func SplitByUnits(text string, seed curriculum.Seed, joiner string) ([]string, bool) {
	units := TilingUnits(seed)
	out := make([]string, 0, len(units))
	rest := text
	for i, u := range units {
		if i > 0 {
			if !strings.HasPrefix(rest, joiner) {
				return nil, false
			}
			rest = rest[len(joiner):]
		}
		n := len(u.Target)
		if n > len(rest) || !utf8.ValidString(rest[:n]) {
			return nil, false
		}
		out = append(out, rest[:n])
		rest = rest[n:]
	}
	if len(out) > 0 {
		out[len(out)-1] += rest
	}
	return out, true
}
