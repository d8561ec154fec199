package check

import (
	"strings"

	"github.com/japaniel/lexigate/pkg/registry"
	"github.com/japaniel/lexigate/pkg/text"
)

// ConflictClass triages an FD violation. Classes are for reporting only.
type ConflictClass string

const (
	// Trivial conflicts differ only in case.
	Trivial ConflictClass = "trivial"
	// VerbForm conflicts differ only by an infinitive marker or gerund suffix.
	VerbForm ConflictClass = "verb_form"
	// Polysemy is a genuine second meaning; resolve it by promoting to a
	// composite unit with disambiguating context.
	Polysemy ConflictClass = "polysemy"
)

// FCFSPolicy configures conflict classification.
type FCFSPolicy struct {
	InfinitiveMarker string
	GerundSuffix     string
}

// DefaultFCFSPolicy uses English verb markers for the known language.
func DefaultFCFSPolicy() FCFSPolicy {
	return FCFSPolicy{InfinitiveMarker: "to ", GerundSuffix: "ing"}
}

// FDViolation is a later unit whose known form disagrees with the first
// known form recorded for the same target form.
type FDViolation struct {
	TargetForm    string        `json:"target_form"`
	SeedID        string        `json:"seed_id"`
	UnitID        string        `json:"unit_id"`
	FirstUnitID   string        `json:"first_unit_id"`
	ExpectedKnown string        `json:"expected_known"`
	ActualKnown   string        `json:"actual_known"`
	Class         ConflictClass `json:"class"`
}

type firstSeen struct {
	unitID string
	known  string
}

// FCFS scans the atomic units of reg in Seq then ordinal order. The first
// known form seen for a normalized target form is canonical; each later
// unit with a different known form yields a violation. Seeds for which
// exclude returns true are skipped.
func FCFS(reg *registry.Registry, n *text.Normalizer, exclude func(seedID string) bool, p FCFSPolicy) []FDViolation {
	canon := make(map[string]firstSeen)
	var out []FDViolation
	for _, s := range reg.Seeds() {
		if exclude != nil && exclude(s.ID) {
			continue
		}
		for _, u := range s.Units {
			if u.IsComposite() {
				continue
			}
			form := n.Canonical(u.Target)
			if form == "" {
				continue
			}
			known := strings.TrimSpace(u.Known)
			first, ok := canon[form]
			if !ok {
				canon[form] = firstSeen{unitID: u.ID, known: known}
				continue
			}
			if first.known == known {
				continue
			}
			out = append(out, FDViolation{
				TargetForm:    form,
				SeedID:        s.ID,
				UnitID:        u.ID,
				FirstUnitID:   first.unitID,
				ExpectedKnown: first.known,
				ActualKnown:   known,
				Class:         p.Classify(first.known, known),
			})
		}
	}
	return out
}

// Classify triages a pair of conflicting known forms. Two forms are a
// verb_form conflict when, after dropping the infinitive marker, each word
// pair is equal or one word is the gerund of the other.
func (p FCFSPolicy) Classify(expected, actual string) ConflictClass {
	a, b := text.Fold(strings.TrimSpace(expected)), text.Fold(strings.TrimSpace(actual))
	if a == b {
		return Trivial
	}
	wa, wb := strings.Fields(p.dropMarker(a)), strings.Fields(p.dropMarker(b))
	if len(wa) != len(wb) {
		return Polysemy
	}
	for i := range wa {
		if wa[i] != wb[i] && !p.isGerundOf(wa[i], wb[i]) && !p.isGerundOf(wb[i], wa[i]) {
			return Polysemy
		}
	}
	return VerbForm
}

func (p FCFSPolicy) dropMarker(s string) string {
	if m := text.Fold(p.InfinitiveMarker); m != "" {
		s = strings.TrimPrefix(s, m)
	}
	return s
}

// isGerundOf reports whether ger is base plus the gerund suffix, allowing
// the silent e to drop (make, making) and a final consonant to double
// (run, running).
func (p FCFSPolicy) isGerundOf(ger, base string) bool {
	suffix := text.Fold(p.GerundSuffix)
	if suffix == "" || base == "" || !strings.HasSuffix(ger, suffix) {
		return false
	}
	stem := strings.TrimSuffix(ger, suffix)
	switch {
	case stem == base:
		return true
	case stem+"e" == base:
		return true
	}
	n := len(stem)
	return n >= 2 && stem[n-1] == stem[n-2] && !isVowel(stem[n-1]) && stem[:n-1] == base
}
func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
