// Package text canonicalizes target-language strings into comparison tokens.
package text

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultPunctuation is stripped from every token before comparison.
// The ASCII apostrophe is absent so elisions ("l'eau", "don't") stay single
// tokens; it is only trimmed from token edges, where it acts as a quote.
const DefaultPunctuation = `.!?¡¿,:;()[]{}"«»“”‘’…`

// edgeQuote is trimmed from both ends of a token but kept inside it.
const edgeQuote = "'"

// Token is one whitespace-delimited unit of a target-language string.
type Token struct {
	Surface string // display form with punctuation stripped, case preserved
	Key     string // NFC-normalized, case-folded comparison form
}

// Segmenter splits a string into raw tokens.
type Segmenter interface {
	Segment(s string) []string
}

// WhitespaceSegmenter splits on Unicode whitespace only.
type WhitespaceSegmenter struct{}

// Segment implements Segmenter.
func (WhitespaceSegmenter) Segment(s string) []string { return strings.Fields(s) }

// Normalizer turns strings into comparison tokens. A Normalizer is immutable
// once built and safe for concurrent use.
type Normalizer struct {
	punct map[rune]struct{}
	seg   Segmenter
}

// NewNormalizer builds a Normalizer stripping the runes in punctuation.
// A nil segmenter means whitespace segmentation.
func NewNormalizer(punctuation string, seg Segmenter) *Normalizer {
	if seg == nil {
		seg = WhitespaceSegmenter{}
	}
	p := make(map[rune]struct{}, len(punctuation))
	for _, r := range punctuation {
		p[r] = struct{}{}
	}
	return &Normalizer{punct: p, seg: seg}
}

// Default returns a whitespace Normalizer with DefaultPunctuation.
func Default() *Normalizer { return NewNormalizer(DefaultPunctuation, nil) }

// Tokenize returns the ordered tokens of s. Tokens that are empty after
// punctuation stripping are dropped.
func (n *Normalizer) Tokenize(s string) []Token {
	raw := n.seg.Segment(s)
	out := make([]Token, 0, len(raw))
	for _, r := range raw {
		surface := n.strip(r)
		if surface == "" {
			continue
		}
		out = append(out, Token{Surface: surface, Key: Fold(surface)})
	}
	return out
}

// Keys returns only the comparison keys of s.
func (n *Normalizer) Keys(s string) []string {
	toks := n.Tokenize(s)
	keys := make([]string, len(toks))
	for i, t := range toks {
		keys[i] = t.Key
	}
	return keys
}

// Canonical returns the comparison keys of s joined by a single space.
func (n *Normalizer) Canonical(s string) string {
	return strings.Join(n.Keys(s), " ")
}

// Count returns the number of tokens in s.
func (n *Normalizer) Count(s string) int { return len(n.Tokenize(s)) }

// IsPunct reports whether r is in the normalizer's punctuation set.
func (n *Normalizer) IsPunct(r rune) bool {
	_, ok := n.punct[r]
	return ok
}

func (n *Normalizer) strip(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if _, ok := n.punct[r]; ok {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Trim(strings.TrimSpace(b.String()), edgeQuote)
}

// Fold returns the NFC-normalized, Unicode case-folded form of s.
// A fresh Caser is used per call because Casers are stateful.
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}
