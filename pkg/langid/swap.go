package langid

import (
	"fmt"

	"github.com/japaniel/lexigate/pkg/curriculum"
)

// Verdict is the outcome of judging one pair.
type Verdict string

const (
	Canonical Verdict = "canonical"
	Swapped   Verdict = "swapped"
	// Uncertain pairs lean toward swapped but sit inside the uncertainty
	// band below the margin. They are reported and never corrected.
	Uncertain Verdict = "uncertain"
)

// Pair is a (known, target) text pair at any granularity.
type Pair struct {
	ID     string `json:"id"`
	Known  string `json:"known"`
	Target string `json:"target"`
}

// Finding is the judgement of one pair.
type Finding struct {
	Pair
	KnownScore  float64 `json:"known_score"`
	TargetScore float64 `json:"target_score"`
	Verdict     Verdict `json:"verdict"`
	Overridden  bool    `json:"overridden,omitempty"`
}

// Delta is score(known) - score(target).
func (f Finding) Delta() float64 { return f.KnownScore - f.TargetScore }

// Detector judges pairs. A pair is swapped when score(known) exceeds
// score(target) by more than Margin.
type Detector struct {
	Scorer      *Scorer
	Margin      float64
	Uncertainty float64
	// Overrides maps a pair id to its manually confirmed target-language
	// text. An overridden pair is swapped exactly when its known field holds
	// that text.
	Overrides map[string]string
}

// NewDetector returns a Detector with no overrides.
func NewDetector(s *Scorer, margin, uncertainty float64) *Detector {
	return &Detector{Scorer: s, Margin: margin, Uncertainty: uncertainty}
}

// Judge scores both fields of p and returns the verdict.
func (d *Detector) Judge(p Pair) Finding {
	f := Finding{
		Pair:        p,
		KnownScore:  d.Scorer.Score(p.Known),
		TargetScore: d.Scorer.Score(p.Target),
		Verdict:     Canonical,
	}
	if confirmed, ok := d.Overrides[p.ID]; ok {
		f.Overridden = true
		if p.Known == confirmed && p.Target != confirmed {
			f.Verdict = Swapped
		}
		return f
	}
	switch delta := f.Delta(); {
	case delta > d.Margin:
		f.Verdict = Swapped
	case d.Uncertainty > 0 && delta > d.Margin-d.Uncertainty:
		f.Verdict = Uncertain
	}
	return f
}

// Scan returns the findings that are not canonical.
func (d *Detector) Scan(pairs []Pair) []Finding {
	var out []Finding
	for _, p := range pairs {
		if f := d.Judge(p); f.Verdict != Canonical {
			out = append(out, f)
		}
	}
	return out
}

// Correct returns a copy of pairs with swapped ones exchanged, and the
// findings that were applied. Only field order changes, never content.
func (d *Detector) Correct(pairs []Pair) ([]Pair, []Finding) {
	out := make([]Pair, len(pairs))
	var applied []Finding
	for i, p := range pairs {
		out[i] = p
		if f := d.Judge(p); f.Verdict == Swapped {
			out[i].Known, out[i].Target = p.Target, p.Known
			applied = append(applied, f)
		}
	}
	return out, applied
}

// PhraseID names the i-th phrase of a unit in swap findings.
func PhraseID(unitID string, i int) string { return fmt.Sprintf("%s/P%02d", unitID, i+1) }

// CurriculumPairs flattens c into pairs at seed, unit and phrase level.
func CurriculumPairs(c *curriculum.Curriculum) []Pair {
	var out []Pair
	for _, s := range c.Seeds {
		out = append(out, Pair{ID: s.ID, Known: s.Known, Target: s.Target})
		for _, u := range s.Units {
			out = append(out, Pair{ID: u.ID, Known: u.Known, Target: u.Target})
		}
	}
	perUnit := make(map[string]int)
	for _, p := range c.Phrases {
		out = append(out, Pair{ID: PhraseID(p.UnitID, perUnit[p.UnitID]), Known: p.Known, Target: p.Target})
		perUnit[p.UnitID]++
	}
	return out
}

// CorrectCurriculum returns a corrected deep copy of c and the applied
// findings. c is left untouched.
func (d *Detector) CorrectCurriculum(c *curriculum.Curriculum) (*curriculum.Curriculum, []Finding) {
	_, applied := d.Correct(CurriculumPairs(c))
	byID := make(map[string]Pair, len(applied))
	for _, f := range applied {
		byID[f.ID] = Pair{ID: f.ID, Known: f.Target, Target: f.Known}
	}

	out := &curriculum.Curriculum{
		Seeds:   make([]curriculum.Seed, len(c.Seeds)),
		Phrases: make([]curriculum.Phrase, len(c.Phrases)),
	}
	for i, s := range c.Seeds {
		if p, ok := byID[s.ID]; ok {
			s.Known, s.Target = p.Known, p.Target
		}
		units := make([]curriculum.Unit, len(s.Units))
		for j, u := range s.Units {
			if p, ok := byID[u.ID]; ok {
				u.Known, u.Target = p.Known, p.Target
			}
			if u.Components != nil {
				u.Components = append([]string(nil), u.Components...)
			}
			units[j] = u
		}
		s.Units = units
		out.Seeds[i] = s
	}
	perUnit := make(map[string]int)
	for i, ph := range c.Phrases {
		if p, ok := byID[PhraseID(ph.UnitID, perUnit[ph.UnitID])]; ok {
			ph.Known, ph.Target = p.Known, p.Target
		}
		perUnit[ph.UnitID]++
		out.Phrases[i] = ph
	}
	return out, applied
}
