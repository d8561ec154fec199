package check

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/lexigate/pkg/curriculum"
	"github.com/japaniel/lexigate/pkg/text"
)

func phrasesOfLengths(lengths ...int) []curriculum.Phrase {
	out := make([]curriculum.Phrase, len(lengths))
	for i, n := range lengths {
		out[i] = curriculum.Phrase{UnitID: "S0001L01", Known: "k", Target: strings.TrimSpace(strings.Repeat("palabra ", n))}
	}
	return out
}

func TestDistributionConcrete(t *testing.T) {
	phrases := phrasesOfLengths(1, 1, 3, 3, 4, 5, 6, 7, 8, 9)
	res := Distribution("S0001L01", phrases, DefaultDistributionPolicy(), text.Default())
	assert.Equal(t, map[string]int{"1-2": 2, "3": 2, "4-5": 2, "6+": 4}, res.Histogram)
	assert.True(t, res.Met)
	assert.Empty(t, res.Shortfalls)
}

func TestDistributionShortfalls(t *testing.T) {
	phrases := phrasesOfLengths(1, 3, 3, 6)
	phrases = append(phrases, curriculum.Phrase{Target: "¡!"})
	res := Distribution("S0001L01", phrases, DefaultDistributionPolicy(), text.Default())
	assert.False(t, res.Met)
	assert.Equal(t, 1, res.Unclassified)
	assert.Equal(t, []Shortfall{
		{Class: "1-2", Want: 2, Got: 1},
		{Class: "4-5", Want: 2, Got: 0},
		{Class: "6+", Want: 4, Got: 1},
	}, res.Shortfalls)
}

func TestDistributionPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultDistributionPolicy().Validate())

	overlap := DistributionPolicy{Classes: []LengthClass{{Name: "a", Min: 1, Max: 3}, {Name: "b", Min: 3}}}
	assert.Error(t, overlap.Validate())

	twoOpen := DistributionPolicy{Classes: []LengthClass{{Name: "a", Min: 5}, {Name: "b", Min: 9}}}
	assert.Error(t, twoOpen.Validate())

	unknown := DistributionPolicy{Classes: []LengthClass{{Name: "a", Min: 1}}, Minimums: map[string]int{"z": 1}}
	assert.Error(t, unknown.Validate())

	bad := DistributionPolicy{Classes: []LengthClass{{Name: "a", Min: 4, Max: 2}}}
	assert.Error(t, bad.Validate())
}

func TestClassify(t *testing.T) {
	p := DefaultDistributionPolicy()
	assert.Equal(t, "1-2", p.Classify(2))
	assert.Equal(t, "6+", p.Classify(40))
	assert.Equal(t, "", p.Classify(0))
}
