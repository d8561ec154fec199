// Package curriculum holds the typed records of a bilingual micro-curriculum:
// seed sentences, their vocabulary units ("legos"), and practice phrases.
package curriculum

import (
	"fmt"
	"regexp"
	"strconv"
)

// Kind distinguishes atomic units from composites built on other units.
type Kind string

const (
	Atomic    Kind = "atomic"
	Composite Kind = "composite"
)

// Seed is one bilingual sentence at curriculum position Seq.
// Seq order is the only ordering authority for whitelist and FD lookups.
type Seed struct {
	ID     string `json:"id" validate:"required,seedid"`
	Seq    int    `json:"seq" validate:"gt=0"`
	Known  string `json:"known" validate:"required"`
	Target string `json:"target" validate:"required"`
	Units  []Unit `json:"units,omitempty" validate:"-"`
}

// Unit is one decomposition unit of exactly one Seed.
type Unit struct {
	ID         string   `json:"id" validate:"required,unitid"`
	SeedID     string   `json:"seed_id,omitempty"`
	Ordinal    int      `json:"ordinal,omitempty"`
	Kind       Kind     `json:"kind" validate:"required,oneof=atomic composite"`
	Target     string   `json:"target" validate:"required"`
	Known      string   `json:"known" validate:"required"`
	Components []string `json:"components,omitempty" validate:"dive,unitid"`
}

// Phrase is a generated practice example tied to one Unit. Its length class
// is derived on demand and never stored.
type Phrase struct {
	UnitID   string `json:"unit_id" validate:"required,unitid"`
	Known    string `json:"known" validate:"required"`
	Target   string `json:"target" validate:"required"`
	SeedEcho bool   `json:"seed_echo,omitempty"`
}

var (
	seedIDRe = regexp.MustCompile(`^S\d{4,}$`)
	unitIDRe = regexp.MustCompile(`^(S\d{4,})L(\d{2,})$`)
)

// FormatUnitID builds the unit id for a seed id and ordinal, e.g. S0042L03.
func FormatUnitID(seedID string, ordinal int) string {
	return fmt.Sprintf("%sL%02d", seedID, ordinal)
}

// ParseUnitID splits a unit id into its seed id and ordinal.
func ParseUnitID(id string) (seedID string, ordinal int, err error) {
	m := unitIDRe.FindStringSubmatch(id)
	if m == nil {
		return "", 0, fmt.Errorf("malformed unit id %q", id)
	}
	ordinal, err = strconv.Atoi(m[2])
	if err != nil {
		return "", 0, fmt.Errorf("malformed unit ordinal in %q: %w", id, err)
	}
	return m[1], ordinal, nil
}

// IsComposite reports whether u is built from other units.
func (u Unit) IsComposite() bool { return u.Kind == Composite }
