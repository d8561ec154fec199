package check

import (
	"fmt"
	"math"

	"github.com/japaniel/lexigate/pkg/curriculum"
	"github.com/japaniel/lexigate/pkg/text"
)

// LengthClass is an inclusive token-count range. Max 0 means unbounded.
type LengthClass struct {
	Name string `json:"name" yaml:"name"`
	Min  int    `json:"min" yaml:"min"`
	Max  int    `json:"max,omitempty" yaml:"max"`
}

func (c LengthClass) upper() int {
	if c.Max == 0 {
		return math.MaxInt
	}
	return c.Max
}

// Holds reports whether n tokens fall in c.
func (c LengthClass) Holds(n int) bool {
	return n >= c.Min && (c.Max == 0 || n <= c.Max)
}

// DistributionPolicy lists length classes in display order and the minimum
// phrase count each class needs.
type DistributionPolicy struct {
	Classes  []LengthClass
	Minimums map[string]int
}

// DefaultDistributionPolicy is 1-2, 3, 4-5, 6+ with minimums 2, 2, 2, 4.
func DefaultDistributionPolicy() DistributionPolicy {
	return DistributionPolicy{
		Classes: []LengthClass{
			{Name: "1-2", Min: 1, Max: 2},
			{Name: "3", Min: 3, Max: 3},
			{Name: "4-5", Min: 4, Max: 5},
			{Name: "6+", Min: 6},
		},
		Minimums: map[string]int{"1-2": 2, "3": 2, "4-5": 2, "6+": 4},
	}
}

// Classify returns the name of the first class holding n tokens, or "".
func (p DistributionPolicy) Classify(n int) string {
	for _, c := range p.Classes {
		if c.Holds(n) {
			return c.Name
		}
	}
	return ""
}

// Validate rejects overlapping classes and minimums for unknown classes.
func (p DistributionPolicy) Validate() error {
	names := make(map[string]bool, len(p.Classes))
	for i, c := range p.Classes {
		if c.Min < 0 || (c.Max != 0 && c.Max < c.Min) {
			return fmt.Errorf("length class %q: bad range %d-%d", c.Name, c.Min, c.Max)
		}
		for _, prev := range p.Classes[:i] {
			if c.Min <= prev.upper() && prev.Min <= c.upper() {
				return fmt.Errorf("length classes %q and %q overlap", prev.Name, c.Name)
			}
		}
		names[c.Name] = true
	}
	for name := range p.Minimums {
		if !names[name] {
			return fmt.Errorf("minimum for unknown length class %q", name)
		}
	}
	return nil
}

// Shortfall is a class with fewer phrases than its minimum.
type Shortfall struct {
	Class string `json:"class"`
	Want  int    `json:"want"`
	Got   int    `json:"got"`
}

// DistributionResult is the per-unit length histogram.
type DistributionResult struct {
	UnitID       string         `json:"unit_id"`
	Histogram    map[string]int `json:"histogram"`
	Unclassified int            `json:"unclassified,omitempty"`
	Shortfalls   []Shortfall    `json:"shortfalls,omitempty"`
	Met          bool           `json:"met"`
}

// Distribution buckets phrases by target token count and compares the
// counts with the policy minimums. It never selects or discards phrases.
func Distribution(unitID string, phrases []curriculum.Phrase, p DistributionPolicy, n *text.Normalizer) DistributionResult {
	res := DistributionResult{UnitID: unitID, Histogram: make(map[string]int, len(p.Classes))}
	for _, c := range p.Classes {
		res.Histogram[c.Name] = 0
	}
	for _, ph := range phrases {
		name := p.Classify(n.Count(ph.Target))
		if name == "" {
			res.Unclassified++
			continue
		}
		res.Histogram[name]++
	}
	for _, c := range p.Classes {
		want := p.Minimums[c.Name]
		if got := res.Histogram[c.Name]; got < want {
			res.Shortfalls = append(res.Shortfalls, Shortfall{Class: c.Name, Want: want, Got: got})
		}
	}
	res.Met = len(res.Shortfalls) == 0
	return res
}
