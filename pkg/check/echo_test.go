package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/lexigate/pkg/curriculum"
)

func TestSeedEcho(t *testing.T) {
	s := seedWith("S0002", "Quiero hablar.", "Quiero", "hablar")
	s.Known = "I want to speak."
	echo := curriculum.Phrase{UnitID: "S0002L02", Known: s.Known, Target: s.Target, SeedEcho: true}

	ok := map[string][]curriculum.Phrase{
		"S0002L01": {{UnitID: "S0002L01", Known: "I want", Target: "Quiero"}},
		"S0002L02": {{UnitID: "S0002L02", Known: "to speak", Target: "hablar"}, echo},
	}
	assert.Empty(t, SeedEcho(s, ok))

	altered := echo
	altered.Target = "Quiero hablar"
	probs := SeedEcho(s, map[string][]curriculum.Phrase{"S0002L02": {altered}})
	require.Len(t, probs, 1)
	assert.Contains(t, probs[0].Detail, "differs")

	misplaced := map[string][]curriculum.Phrase{
		"S0002L01": {{UnitID: "S0002L01", Known: s.Known, Target: s.Target, SeedEcho: true}},
		"S0002L02": {{UnitID: "S0002L02", Known: "to speak", Target: "hablar"}},
	}
	probs = SeedEcho(s, misplaced)
	assert.Len(t, probs, 2)

	probs = SeedEcho(s, nil)
	require.Len(t, probs, 1)
	assert.Equal(t, "S0002L02", probs[0].UnitID)
}
