package langid

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/lexigate/pkg/curriculum"
)

func detector() *Detector {
	return NewDetector(NewScorer(SpanishEnglish()), 10, 3)
}

func TestScoreDirection(t *testing.T) {
	s := NewScorer(SpanishEnglish())
	assert.Greater(t, s.Score("¿Dónde está la estación?"), 10.0)
	assert.Less(t, s.Score("Where is the station?"), 0.0)
	assert.Equal(t, 0.0, s.Score(""))
}

func TestScoreCounts(t *testing.T) {
	p := Profile{
		TargetDiacritics: "ñ",
		TargetClusters:   []string{"ll"},
		TargetWords:      []string{"el"},
		KnownWords:       []string{"the"},
		DiacriticWeight:  1, ClusterWeight: 10, TargetWordWeight: 100, KnownWordWeight: 1000,
	}
	s := NewScorer(p)
	// one ñ, one ll, one "el", two "the"
	assert.Equal(t, 1.0+10+100-2000, s.Score("El niño calla the THE"))
}

func TestJudge(t *testing.T) {
	d := detector()

	ok := d.Judge(Pair{ID: "S0001", Known: "I want to speak Spanish", Target: "Quiero hablar español"})
	assert.Equal(t, Canonical, ok.Verdict)

	sw := d.Judge(Pair{ID: "S0001", Known: "Quiero hablar español con el niño", Target: "I want to speak Spanish with the boy"})
	assert.Equal(t, Swapped, sw.Verdict)
	assert.Greater(t, sw.Delta(), 10.0)
}

func TestJudgeUncertainBand(t *testing.T) {
	p := Profile{TargetWords: []string{"x"}, TargetWordWeight: 1}
	d := NewDetector(NewScorer(p), 10, 3)

	pair := func(n int) Pair {
		known := ""
		for i := 0; i < n; i++ {
			known += "x "
		}
		return Pair{ID: "p", Known: known, Target: "y"}
	}
	assert.Equal(t, Canonical, d.Judge(pair(7)).Verdict)
	assert.Equal(t, Uncertain, d.Judge(pair(8)).Verdict)
	assert.Equal(t, Uncertain, d.Judge(pair(10)).Verdict)
	assert.Equal(t, Swapped, d.Judge(pair(11)).Verdict)
}

func TestNotSwappedWithinMargin(t *testing.T) {
	d := detector()
	texts := []string{
		"", "hola", "hello", "el perro", "the dog", "¿Qué?", "I want", "Quiero",
		"la casa del niño está en la calle", "the house of the boy is in the street",
	}
	for _, a := range texts {
		for _, b := range texts {
			f := d.Judge(Pair{Known: a, Target: b})
			if f.KnownScore <= f.TargetScore+d.Margin {
				assert.NotEqual(t, Swapped, f.Verdict, "%q / %q", a, b)
			}
		}
	}
}

func TestCorrectIsIdempotent(t *testing.T) {
	d := detector()
	pairs := []Pair{
		{ID: "a", Known: "I want to speak Spanish", Target: "Quiero hablar español"},
		{ID: "b", Known: "Quiero hablar español con el niño", Target: "I want to speak Spanish with the boy"},
		{ID: "c", Known: "La ciudad está muy lejos", Target: "The city is very far"},
	}
	fixed, applied := d.Correct(pairs)
	require.Len(t, applied, 2)
	assert.Equal(t, "Quiero hablar español con el niño", fixed[1].Target)
	assert.Equal(t, pairs[0], fixed[0])

	again, applied2 := d.Correct(fixed)
	assert.Empty(t, applied2)
	assert.Empty(t, cmp.Diff(fixed, again))
	// input untouched
	assert.Equal(t, "Quiero hablar español con el niño", pairs[1].Known)
}

func TestOverrides(t *testing.T) {
	d := detector()
	d.Overrides = map[string]string{
		"short": "sí",
		"keep":  "Hola the",
	}
	f := d.Judge(Pair{ID: "short", Known: "sí", Target: "yes"})
	assert.Equal(t, Swapped, f.Verdict)
	assert.True(t, f.Overridden)

	fixed, applied := d.Correct([]Pair{{ID: "short", Known: "sí", Target: "yes"}})
	require.Len(t, applied, 1)
	_, applied = d.Correct(fixed)
	assert.Empty(t, applied)

	f = d.Judge(Pair{ID: "keep", Known: "the the the the", Target: "Hola the"})
	assert.Equal(t, Canonical, f.Verdict)
}

func TestCorrectCurriculum(t *testing.T) {
	c := &curriculum.Curriculum{
		Seeds: []curriculum.Seed{{
			ID: "S0001", Seq: 1,
			Known: "Quiero hablar español con el niño", Target: "I want to speak Spanish with the boy",
			Units: []curriculum.Unit{{ID: "S0001L01", SeedID: "S0001", Ordinal: 1, Kind: curriculum.Atomic,
				Known: "I want", Target: "Quiero"}},
		}},
		Phrases: []curriculum.Phrase{
			{UnitID: "S0001L01", Known: "I want", Target: "Quiero"},
			{UnitID: "S0001L01", Known: "¿Dónde está la estación?", Target: "Where is the station?"},
		},
	}
	fixed, applied := detector().CorrectCurriculum(c)
	require.Len(t, applied, 2)
	assert.Equal(t, "S0001", applied[0].ID)
	assert.Equal(t, PhraseID("S0001L01", 1), applied[1].ID)

	assert.Equal(t, "I want to speak Spanish with the boy", fixed.Seeds[0].Known)
	assert.Equal(t, "Where is the station?", fixed.Phrases[1].Known)
	assert.Equal(t, "Quiero", fixed.Seeds[0].Units[0].Target)
	// original untouched
	assert.Equal(t, "Quiero hablar español con el niño", c.Seeds[0].Known)

	_, again := detector().CorrectCurriculum(fixed)
	assert.Empty(t, again)
}

func TestCorrectCurriculumCopiesComponents(t *testing.T) {
	c := &curriculum.Curriculum{
		Seeds: []curriculum.Seed{{
			ID: "S0001", Seq: 1, Known: "I want to speak", Target: "Quiero hablar",
			Units: []curriculum.Unit{
				{ID: "S0001L01", SeedID: "S0001", Ordinal: 1, Kind: curriculum.Atomic, Known: "I want", Target: "Quiero"},
				{ID: "S0001L02", SeedID: "S0001", Ordinal: 2, Kind: curriculum.Composite,
					Known: "I want to speak", Target: "Quiero hablar", Components: []string{"S0001L01"}},
			},
		}},
	}
	fixed, _ := detector().CorrectCurriculum(c)
	require.Len(t, fixed.Seeds[0].Units, 2)
	fixed.Seeds[0].Units[1].Components[0] = "S0009L01"
	assert.Equal(t, []string{"S0001L01"}, c.Seeds[0].Units[1].Components)
}
