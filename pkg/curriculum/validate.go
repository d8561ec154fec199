package curriculum

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// recordValidate checks per-record structure. Cross-record rules (ordering,
// references) are applied by Validate.
var recordValidate *validator.Validate

func init() {
	recordValidate = validator.New()
	_ = recordValidate.RegisterValidation("seedid", func(fl validator.FieldLevel) bool {
		return seedIDRe.MatchString(fl.Field().String())
	})
	_ = recordValidate.RegisterValidation("unitid", func(fl validator.FieldLevel) bool {
		return unitIDRe.MatchString(fl.Field().String())
	})
}

// IssueKind classifies a structural problem with one record.
type IssueKind string

const (
	IssueInvalid    IssueKind = "invalid"
	IssueDuplicate  IssueKind = "duplicate"
	IssueOutOfOrder IssueKind = "out_of_order"
	IssueMismatch   IssueKind = "mismatch"
	IssueDangling   IssueKind = "dangling_ref"
)

// LoadIssue is a structural error fatal to one record only.
type LoadIssue struct {
	Kind   IssueKind `json:"kind"`
	Record string    `json:"record"` // seed, unit or phrase
	ID     string    `json:"id"`
	Err    string    `json:"error"`
}

func (i LoadIssue) Error() string {
	return fmt.Sprintf("%s %s %s: %s", i.Record, i.ID, i.Kind, i.Err)
}

// Curriculum is a structurally valid set of records: seeds in strictly
// increasing Seq order, each with units sorted by ordinal, and phrases that
// reference accepted units.
type Curriculum struct {
	Seeds   []Seed
	Phrases []Phrase
}

// Validate applies record and cross-record rules to d. Invalid records are
// dropped and reported after any DecodeIssues; valid ones are returned.
// Validate never fails as a whole.
func (d *Document) Validate() (*Curriculum, []LoadIssue) {
	var (
		out      = &Curriculum{}
		issues   = append([]LoadIssue(nil), d.DecodeIssues...)
		seenSeed = make(map[string]bool)
		units    = make(map[string]Unit)
		lastSeq  int
		lastNum  = -1
	)
	issue := func(kind IssueKind, record, id string, err error) {
		issues = append(issues, LoadIssue{Kind: kind, Record: record, ID: id, Err: err.Error()})
	}

	for _, s := range d.Seeds {
		if err := recordValidate.Struct(s); err != nil {
			issue(IssueInvalid, "seed", s.ID, err)
			continue
		}
		if seenSeed[s.ID] {
			issue(IssueDuplicate, "seed", s.ID, fmt.Errorf("seed id already loaded"))
			continue
		}
		num, _ := strconv.Atoi(s.ID[1:])
		if s.Seq <= lastSeq {
			issue(IssueOutOfOrder, "seed", s.ID, fmt.Errorf("seq %d does not follow %d", s.Seq, lastSeq))
			continue
		}
		if num <= lastNum {
			issue(IssueOutOfOrder, "seed", s.ID, fmt.Errorf("id does not increase"))
			continue
		}
		seenSeed[s.ID] = true
		lastSeq, lastNum = s.Seq, num

		accepted := validateUnits(s, units, issue)
		s.Units = accepted
		out.Seeds = append(out.Seeds, s)
	}

	for _, p := range d.Phrases {
		if err := recordValidate.Struct(p); err != nil {
			issue(IssueInvalid, "phrase", p.UnitID, err)
			continue
		}
		if _, ok := units[p.UnitID]; !ok {
			issue(IssueDangling, "phrase", p.UnitID, fmt.Errorf("unknown unit"))
			continue
		}
		out.Phrases = append(out.Phrases, p)
	}
	return out, issues
}

// validateUnits checks the units of one accepted seed and registers the
// survivors in known.
func validateUnits(s Seed, known map[string]Unit, issue func(IssueKind, string, string, error)) []Unit {
	var parsed []Unit
	ordinals := make(map[int]bool)
	for _, u := range s.Units {
		if err := recordValidate.Struct(u); err != nil {
			issue(IssueInvalid, "unit", u.ID, err)
			continue
		}
		seedID, ord, err := ParseUnitID(u.ID)
		if err != nil {
			issue(IssueInvalid, "unit", u.ID, err)
			continue
		}
		if seedID != s.ID || (u.SeedID != "" && u.SeedID != s.ID) {
			issue(IssueMismatch, "unit", u.ID, fmt.Errorf("unit does not belong to seed %s", s.ID))
			continue
		}
		if u.Ordinal != 0 && u.Ordinal != ord {
			issue(IssueMismatch, "unit", u.ID, fmt.Errorf("ordinal %d disagrees with id", u.Ordinal))
			continue
		}
		if ordinals[ord] {
			issue(IssueDuplicate, "unit", u.ID, fmt.Errorf("ordinal %d repeated", ord))
			continue
		}
		if u.IsComposite() != (len(u.Components) > 0) {
			issue(IssueInvalid, "unit", u.ID, fmt.Errorf("kind %s with %d components", u.Kind, len(u.Components)))
			continue
		}
		ordinals[ord] = true
		u.SeedID, u.Ordinal = s.ID, ord
		parsed = append(parsed, u)
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Ordinal < parsed[j].Ordinal })

	accepted := parsed[:0]
	for _, u := range parsed {
		if err := checkComponents(u, known); err != nil {
			issue(IssueDangling, "unit", u.ID, err)
			continue
		}
		known[u.ID] = u
		accepted = append(accepted, u)
	}
	return accepted
}

// checkComponents requires every component to be an already-accepted atomic
// unit: one from an earlier seed or a lower ordinal of the same seed.
func checkComponents(u Unit, known map[string]Unit) error {
	for _, c := range u.Components {
		ref, ok := known[c]
		if !ok {
			return fmt.Errorf("component %s is not an earlier unit", c)
		}
		if ref.IsComposite() {
			return fmt.Errorf("component %s is not atomic", c)
		}
	}
	return nil
}

// ValidateUnit checks a single replacement unit against the record rules.
func ValidateUnit(u Unit) (Unit, error) {
	if err := recordValidate.Struct(u); err != nil {
		return u, err
	}
	seedID, ord, err := ParseUnitID(u.ID)
	if err != nil {
		return u, err
	}
	if u.SeedID != "" && u.SeedID != seedID {
		return u, fmt.Errorf("unit %s: seed id %s disagrees with id", u.ID, u.SeedID)
	}
	if u.IsComposite() != (len(u.Components) > 0) {
		return u, fmt.Errorf("unit %s: kind %s with %d components", u.ID, u.Kind, len(u.Components))
	}
	u.SeedID, u.Ordinal = seedID, ord
	return u, nil
}
