package text

import (
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Segmenter names accepted by NewSegmenter.
const (
	SegmenterWhitespace = "whitespace"
	SegmenterKagome     = "kagome"
)

// KagomeSegmenter splits unspaced Japanese text into morphemes using the IPA
// dictionary. Use it for target languages written without spaces.
type KagomeSegmenter struct {
	t *tokenizer.Tokenizer
}

// NewKagomeSegmenter loads the IPA dictionary and builds a tokenizer.
func NewKagomeSegmenter() (*KagomeSegmenter, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &KagomeSegmenter{t: t}, nil
}

// Segment implements Segmenter. Whitespace and unknown dummy tokens are dropped.
func (k *KagomeSegmenter) Segment(s string) []string {
	var out []string
	for _, tok := range k.t.Tokenize(s) {
		if tok.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(tok.Surface) == "" {
			continue
		}
		out = append(out, tok.Surface)
	}
	return out
}

// NewSegmenter returns the segmenter registered under name.
// The empty name selects whitespace segmentation.
func NewSegmenter(name string) (Segmenter, error) {
	switch name {
	case "", SegmenterWhitespace:
		return WhitespaceSegmenter{}, nil
	case SegmenterKagome:
		return NewKagomeSegmenter()
	default:
		return nil, fmt.Errorf("unknown segmenter %q", name)
	}
}
