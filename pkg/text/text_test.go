package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeStripsPunctuationAndFoldsCase(t *testing.T) {
	n := Default()
	toks := n.Tokenize("¿Dónde está el Baño?")
	require.Len(t, toks, 4)
	assert.Equal(t, "Dónde", toks[0].Surface)
	assert.Equal(t, "dónde", toks[0].Key)
	assert.Equal(t, "Baño", toks[3].Surface)
	assert.Equal(t, "baño", toks[3].Key)
}

func TestTokenizeEmptyAndPunctuationOnly(t *testing.T) {
	n := Default()
	assert.Empty(t, n.Tokenize(""))
	assert.Empty(t, n.Tokenize("   "))
	assert.Empty(t, n.Tokenize("¡ ... !"))
}

func TestTokenizeKeepsApostrophe(t *testing.T) {
	n := Default()
	assert.Equal(t, []string{"l'eau", "froide"}, n.Keys("L'eau, froide."))
	assert.Equal(t, []string{"dijo", "hola", "don't"}, n.Keys("dijo 'hola' 'don't'"))
	assert.Empty(t, n.Keys("' ''"))
}

func TestFoldComposesAndFolds(t *testing.T) {
	assert.Equal(t, "\u00e9", Fold("e\u0301"))
	assert.Equal(t, "árbol", Fold("ÁRBOL"))
}

func TestCanonicalAndCount(t *testing.T) {
	n := Default()
	assert.Equal(t, "quiero hablar español", n.Canonical("Quiero  hablar, ¡español!"))
	assert.Equal(t, 3, n.Count("Quiero  hablar, ¡español!"))
}

func TestCustomPunctuation(t *testing.T) {
	n := NewNormalizer("-", nil)
	assert.Equal(t, []string{"a.b", "c"}, n.Keys("a.b- c-"))
	assert.True(t, n.IsPunct('-'))
	assert.False(t, n.IsPunct('.'))
}

func TestNewSegmenter(t *testing.T) {
	s, err := NewSegmenter("")
	require.NoError(t, err)
	assert.IsType(t, WhitespaceSegmenter{}, s)

	_, err = NewSegmenter("bogus")
	assert.Error(t, err)
}

func TestKagomeSegmenter(t *testing.T) {
	seg, err := NewKagomeSegmenter()
	require.NoError(t, err)

	n := NewNormalizer(DefaultPunctuation+"。、", seg)
	keys := n.Keys("猫が座った。")
	require.NotEmpty(t, keys)
	assert.Equal(t, "猫", keys[0])
	assert.Contains(t, keys, "が")
}
