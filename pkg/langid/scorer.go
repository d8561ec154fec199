// Package langid scores how much a string looks like the target language
// rather than the known language, and uses that score to find and fix
// known/target field swaps. The score is a surface heuristic: probabilistic,
// uncalibrated, and always open to manual override.
package langid

import (
	"strings"
	"unicode"

	"github.com/japaniel/lexigate/pkg/text"
)

// Profile is the closed list of surface cues for one target/known language
// pairing.
type Profile struct {
	TargetDiacritics string   `yaml:"target_diacritics" json:"target_diacritics"`
	TargetClusters   []string `yaml:"target_clusters" json:"target_clusters"`
	TargetWords      []string `yaml:"target_words" json:"target_words"`
	KnownWords       []string `yaml:"known_words" json:"known_words"`

	DiacriticWeight  float64 `yaml:"diacritic_weight" json:"diacritic_weight"`
	ClusterWeight    float64 `yaml:"cluster_weight" json:"cluster_weight"`
	TargetWordWeight float64 `yaml:"target_word_weight" json:"target_word_weight"`
	KnownWordWeight  float64 `yaml:"known_word_weight" json:"known_word_weight"`
}

// SpanishEnglish is the default profile: Spanish target, English known.
// Words shared by both languages ("no", "me", "a") are left out of the
// target list.
func SpanishEnglish() Profile {
	return Profile{
		TargetDiacritics: "áéíóúüñ¿¡",
		TargetClusters:   []string{"ción", "ll", "rr", "dad"},
		TargetWords: []string{
			"el", "la", "los", "las", "un", "una", "unos", "unas", "de", "del", "que", "y",
			"en", "es", "por", "para", "con", "se", "lo", "te", "mi", "tu", "su", "muy",
			"pero", "yo", "está", "estoy", "quiero", "hay", "también", "cómo", "qué",
		},
		KnownWords: []string{
			"the", "an", "is", "are", "i", "you", "to", "of", "and", "in", "it", "that",
			"with", "for", "on", "this", "my", "want", "what", "how", "very", "but",
		},
		DiacriticWeight:  3,
		ClusterWeight:    2,
		TargetWordWeight: 5,
		KnownWordWeight:  5,
	}
}

// Scorer evaluates strings against a Profile. It is immutable and safe for
// concurrent use.
type Scorer struct {
	p           Profile
	diacritics  map[rune]struct{}
	targetWords map[string]struct{}
	knownWords  map[string]struct{}
	clusters    []string
}

// NewScorer indexes p.
func NewScorer(p Profile) *Scorer {
	s := &Scorer{
		p:           p,
		diacritics:  make(map[rune]struct{}),
		targetWords: wordSet(p.TargetWords),
		knownWords:  wordSet(p.KnownWords),
	}
	for _, r := range text.Fold(p.TargetDiacritics) {
		s.diacritics[r] = struct{}{}
	}
	for _, c := range p.TargetClusters {
		if c = text.Fold(c); c != "" {
			s.clusters = append(s.clusters, c)
		}
	}
	return s
}

func wordSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[text.Fold(w)] = struct{}{}
	}
	return m
}

// Score is positive when s resembles the target language and negative when
// it resembles the known language.
func (s *Scorer) Score(str string) float64 {
	folded := text.Fold(str)
	var score float64
	for _, r := range folded {
		if _, ok := s.diacritics[r]; ok {
			score += s.p.DiacriticWeight
		}
	}
	for _, c := range s.clusters {
		score += float64(strings.Count(folded, c)) * s.p.ClusterWeight
	}
	for _, w := range words(folded) {
		if _, ok := s.targetWords[w]; ok {
			score += s.p.TargetWordWeight
		}
		if _, ok := s.knownWords[w]; ok {
			score -= s.p.KnownWordWeight
		}
	}
	return score
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}
