package registry

import (
	"fmt"
	"sort"

	"github.com/japaniel/lexigate/pkg/curriculum"
	"github.com/japaniel/lexigate/pkg/text"
)

// Mode selects whether a unit's own vocabulary counts toward the whitelist
// that applies to it.
type Mode string

const (
	// StrictlyBefore admits only units of earlier seeds.
	StrictlyBefore Mode = "strictly_before"
	// IncludeSeed also admits every unit of the current seed.
	IncludeSeed Mode = "include_seed"
	// IncludeUnit also admits units of the current seed up to and including
	// the given ordinal.
	IncludeUnit Mode = "include_unit"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case StrictlyBefore, IncludeSeed, IncludeUnit:
		return m, nil
	}
	return "", fmt.Errorf("unknown whitelist mode %q", s)
}

type seedSpan struct {
	seq      int
	start    int
	ordinals []int // ordinals of units that received a position, ascending
}

// Accumulator is the running whitelist over a Registry. It is built by one
// sequential fold in Seq order and records, for every token key, the global
// unit position at which it was first taught. Any Whitelist is then a cutoff
// into that index, so queries never rescan the registry.
type Accumulator struct {
	first    map[string]int
	order    []string // keys in first-taught order
	orderPos []int    // position each key in order was first taught, non-decreasing
	spans    []seedSpan
	total    int
}

// NewAccumulator folds reg into an Accumulator. Seeds for which exclude
// returns true (e.g. tiling failures) contribute no tokens. A nil exclude
// admits every seed.
func NewAccumulator(reg *Registry, n *text.Normalizer, exclude func(seedID string) bool) *Accumulator {
	a := &Accumulator{first: make(map[string]int)}
	pos := 0
	for _, s := range reg.Seeds() {
		span := seedSpan{seq: s.Seq, start: pos}
		if exclude == nil || !exclude(s.ID) {
			for _, u := range s.Units {
				for _, k := range n.Keys(u.Target) {
					if _, seen := a.first[k]; seen {
						continue
					}
					a.first[k] = pos
					a.order = append(a.order, k)
					a.orderPos = append(a.orderPos, pos)
				}
				span.ordinals = append(span.ordinals, u.Ordinal)
				pos++
			}
		}
		a.spans = append(a.spans, span)
	}
	a.total = pos
	return a
}

// At returns the whitelist applicable at seq under mode. ordinal is only
// consulted for IncludeUnit. A seq absent from the registry gets the
// whitelist of its insertion point.
func (a *Accumulator) At(seq int, mode Mode, ordinal int) Whitelist {
	i := sort.Search(len(a.spans), func(i int) bool { return a.spans[i].seq >= seq })
	if i == len(a.spans) {
		return Whitelist{acc: a, cutoff: a.total}
	}
	span := a.spans[i]
	if span.seq != seq || mode == StrictlyBefore {
		return Whitelist{acc: a, cutoff: span.start}
	}
	if mode == IncludeSeed {
		return Whitelist{acc: a, cutoff: span.start + len(span.ordinals)}
	}
	n := sort.SearchInts(span.ordinals, ordinal+1)
	return Whitelist{acc: a, cutoff: span.start + n}
}

// ForUnit returns the whitelist applicable to unit u of the seed at seq.
func (a *Accumulator) ForUnit(seq int, u curriculum.Unit, mode Mode) Whitelist {
	return a.At(seq, mode, u.Ordinal)
}

// Final returns the whitelist of the whole registry.
func (a *Accumulator) Final() Whitelist { return Whitelist{acc: a, cutoff: a.total} }

// FirstTaught returns the global unit position at which key entered the
// whitelist.
func (a *Accumulator) FirstTaught(key string) (int, bool) {
	p, ok := a.first[key]
	return p, ok
}

// Whitelist is a read-only view of the tokens taught before a cutoff.
// It is cheap to copy and safe for concurrent use.
type Whitelist struct {
	acc    *Accumulator
	cutoff int
}

// Contains reports whether the comparison key has been taught.
func (w Whitelist) Contains(key string) bool {
	if w.acc == nil {
		return false
	}
	p, ok := w.acc.first[key]
	return ok && p < w.cutoff
}

// Len returns the number of distinct taught keys.
func (w Whitelist) Len() int {
	if w.acc == nil {
		return 0
	}
	return sort.SearchInts(w.acc.orderPos, w.cutoff)
}

// Tokens returns the taught keys in first-taught order.
func (w Whitelist) Tokens() []string {
	n := w.Len()
	out := make([]string, n)
	if n > 0 {
		copy(out, w.acc.order[:n])
	}
	return out
}
