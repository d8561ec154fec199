package check

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/lexigate/pkg/curriculum"
)

func seedWith(id, target string, targets ...string) curriculum.Seed {
	s := curriculum.Seed{ID: id, Seq: 1, Known: "k", Target: target}
	for i, tgt := range targets {
		s.Units = append(s.Units, curriculum.Unit{
			ID: curriculum.FormatUnitID(id, i+1), SeedID: id, Ordinal: i + 1,
			Kind: curriculum.Atomic, Target: tgt, Known: "k",
		})
	}
	return s
}

func TestTiling(t *testing.T) {
	p := DefaultTilingPolicy()
	cases := []struct {
		name   string
		target string
		units  []string
		pass   bool
	}{
		{"exact", "Quiero hablar", []string{"Quiero", "hablar"}, true},
		{"terminal stripped both sides", "Quiero hablar.", []string{"Quiero", "hablar."}, true},
		{"question mark", "¿Quieres hablar?", []string{"¿Quieres", "hablar"}, true},
		{"missing word", "Quiero hablar español", []string{"Quiero", "hablar"}, false},
		{"case differs", "Quiero hablar", []string{"quiero", "hablar"}, false},
		{"inner comma lost", "Sí, quiero", []string{"Sí", "quiero"}, false},
		{"no units", "Quiero", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Tiling(seedWith("S0001", tc.target, tc.units...), p)
			assert.Equal(t, tc.pass, res.Pass)
			if !tc.pass {
				assert.Equal(t, strings.Join(tc.units, " "), res.Reconstructed)
			}
		})
	}
}

func TestTilingSkipsEmbeddedComponents(t *testing.T) {
	s := seedWith("S0003", "Me gusta mucho", "me", "gusta")
	s.Units = append(s.Units,
		curriculum.Unit{ID: "S0003L03", SeedID: "S0003", Ordinal: 3, Kind: curriculum.Composite,
			Target: "Me gusta", Known: "I like", Components: []string{"S0003L01", "S0003L02"}},
		curriculum.Unit{ID: "S0003L04", SeedID: "S0003", Ordinal: 4, Kind: curriculum.Atomic,
			Target: "mucho", Known: "a lot"},
	)
	assert.Len(t, TilingUnits(s), 2)
	assert.True(t, Tiling(s, DefaultTilingPolicy()).Pass)
}

func TestTilingCustomJoiner(t *testing.T) {
	s := seedWith("S0001", "猫が座った。", "猫", "が", "座っ", "た")
	p := DefaultTilingPolicy()
	p.TerminalPunctuation += "。"
	p.Joiner = ""
	assert.True(t, Tiling(s, p).Pass)
}

func TestSplitByUnitsRoundTrip(t *testing.T) {
	s := seedWith("S0001", "¿Dónde está el baño?", "¿Dónde", "está", "el", "baño")
	p := DefaultTilingPolicy()
	require.True(t, Tiling(s, p).Pass)

	parts, ok := SplitByUnits(s.Target, s, p.Joiner)
	require.True(t, ok)
	assert.Equal(t, []string{"¿Dónde", "está", "el", "baño?"}, parts)
	assert.Equal(t, s.Target, strings.Join(parts, p.Joiner))

	_, ok = SplitByUnits("¿Dónde", s, p.Joiner)
	assert.False(t, ok)
}

func TestStripTerminal(t *testing.T) {
	assert.Equal(t, "Hola", StripTerminal("Hola!! ", DefaultTerminalPunctuation))
	assert.Equal(t, "¡Hola", StripTerminal("¡Hola!", DefaultTerminalPunctuation))
	assert.Equal(t, "", StripTerminal("...", DefaultTerminalPunctuation))
}
