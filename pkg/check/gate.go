package check

import (
	"github.com/japaniel/lexigate/pkg/curriculum"
	"github.com/japaniel/lexigate/pkg/text"
)

// Vocabulary answers whether a comparison key has been taught.
// registry.Whitelist satisfies it.
type Vocabulary interface {
	Contains(key string) bool
}

// TokenSet is a fixed Vocabulary, handy for callers that already hold a set.
type TokenSet map[string]struct{}

// NewTokenSet folds each token into a set.
func NewTokenSet(tokens ...string) TokenSet {
	s := make(TokenSet, len(tokens))
	for _, t := range tokens {
		s[text.Fold(t)] = struct{}{}
	}
	return s
}

// Contains implements Vocabulary.
func (s TokenSet) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

// GateResult reports the tokens of a phrase missing from its whitelist.
type GateResult struct {
	UnitID    string   `json:"unit_id"`
	Target    string   `json:"target"`
	Pass      bool     `json:"pass"`
	Offending []string `json:"offending,omitempty"`
}

// Gate tokenizes the phrase's target text and checks every token against
// vocab. The caller must scope vocab to the phrase's owning unit; Gate cannot
// tell a mis-scoped whitelist from a correct one. Offending holds surface
// forms in order of first appearance, without repeats.
func Gate(p curriculum.Phrase, vocab Vocabulary, n *text.Normalizer) GateResult {
	res := GateResult{UnitID: p.UnitID, Target: p.Target, Pass: true}
	seen := make(map[string]bool)
	for _, tok := range n.Tokenize(p.Target) {
		if vocab.Contains(tok.Key) || seen[tok.Key] {
			continue
		}
		seen[tok.Key] = true
		res.Offending = append(res.Offending, tok.Surface)
		res.Pass = false
	}
	return res
}
