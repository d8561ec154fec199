// Package registry is the append-only, seq-ordered ledger of taught
// vocabulary units and the whitelist accumulator built over it.
package registry

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/japaniel/lexigate/pkg/curriculum"
)

// ErrUnknownUnit is returned when a replacement targets a unit id that is not
// in the registry.
var ErrUnknownUnit = &RegistryError{"unknown unit"}

// RegistryError is a typed error for registry operations.
type RegistryError struct{ msg string }

func (e *RegistryError) Error() string { return e.msg }

// AuditEntry records one unit replacement.
type AuditEntry struct {
	ID     string          `json:"id"`
	UnitID string          `json:"unit_id"`
	Before curriculum.Unit `json:"before"`
	After  curriculum.Unit `json:"after"`
	Reason string          `json:"reason"`
	At     time.Time       `json:"at"`
}

type unitRef struct{ seed, unit int }

// Registry is an immutable snapshot of seeds and units in Seq order.
// Obtain one from a Builder; change one with ReplaceUnit.
type Registry struct {
	seeds []curriculum.Seed
	bySeq map[int]int
	byID  map[string]int
	units map[string]unitRef
	audit []AuditEntry
}

// Builder collects seeds in Seq order. A Registry cannot be queried until
// Build is called, so whitelist queries never see a partial ledger.
type Builder struct {
	seeds   []curriculum.Seed
	lastSeq int
	ids     map[string]bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{ids: make(map[string]bool)}
}

// Add appends a seed with its units. Seeds must arrive in strictly
// increasing Seq order with units sorted by ordinal.
func (b *Builder) Add(s curriculum.Seed) error {
	if s.Seq <= b.lastSeq {
		return fmt.Errorf("seed %s: seq %d does not follow %d", s.ID, s.Seq, b.lastSeq)
	}
	if b.ids[s.ID] {
		return fmt.Errorf("seed %s: already added", s.ID)
	}
	for i := 1; i < len(s.Units); i++ {
		if s.Units[i].Ordinal <= s.Units[i-1].Ordinal {
			return fmt.Errorf("seed %s: units not sorted by ordinal", s.ID)
		}
	}
	units := make([]curriculum.Unit, len(s.Units))
	copy(units, s.Units)
	s.Units = units
	b.seeds = append(b.seeds, s)
	b.ids[s.ID] = true
	b.lastSeq = s.Seq
	return nil
}

// Build freezes the collected seeds into a Registry.
func (b *Builder) Build() *Registry {
	seeds := make([]curriculum.Seed, len(b.seeds))
	copy(seeds, b.seeds)
	return newRegistry(seeds, nil)
}

// FromCurriculum builds a Registry from a validated curriculum.
func FromCurriculum(c *curriculum.Curriculum) (*Registry, error) {
	b := NewBuilder()
	for _, s := range c.Seeds {
		if err := b.Add(s); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

func newRegistry(seeds []curriculum.Seed, audit []AuditEntry) *Registry {
	r := &Registry{
		seeds: seeds,
		bySeq: make(map[int]int, len(seeds)),
		byID:  make(map[string]int, len(seeds)),
		units: make(map[string]unitRef),
		audit: audit,
	}
	for i, s := range seeds {
		r.bySeq[s.Seq] = i
		r.byID[s.ID] = i
		for j, u := range s.Units {
			r.units[u.ID] = unitRef{seed: i, unit: j}
		}
	}
	return r
}

// Len returns the number of seeds.
func (r *Registry) Len() int { return len(r.seeds) }

// Seeds returns the seeds in Seq order. Callers must not modify the result.
func (r *Registry) Seeds() []curriculum.Seed { return r.seeds }

// Seed looks up a seed by id.
func (r *Registry) Seed(id string) (curriculum.Seed, bool) {
	i, ok := r.byID[id]
	if !ok {
		return curriculum.Seed{}, false
	}
	return r.seeds[i], true
}

// SeedBySeq looks up a seed by its sequence position.
func (r *Registry) SeedBySeq(seq int) (curriculum.Seed, bool) {
	i, ok := r.bySeq[seq]
	if !ok {
		return curriculum.Seed{}, false
	}
	return r.seeds[i], true
}

// Unit looks up a unit by id.
func (r *Registry) Unit(id string) (curriculum.Unit, bool) {
	ref, ok := r.units[id]
	if !ok {
		return curriculum.Unit{}, false
	}
	return r.seeds[ref.seed].Units[ref.unit], true
}

// SeqOf returns the Seq of the seed owning unit id.
func (r *Registry) SeqOf(unitID string) (int, bool) {
	ref, ok := r.units[unitID]
	if !ok {
		return 0, false
	}
	return r.seeds[ref.seed].Seq, true
}

// Audit returns the replacement log, oldest first.
func (r *Registry) Audit() []AuditEntry { return r.audit }

// ReplaceUnit returns a new Registry in which the unit with u.ID is replaced
// by u. The receiver is left untouched so earlier whitelist and FD results
// stay reproducible.
func (r *Registry) ReplaceUnit(u curriculum.Unit, reason string) (*Registry, AuditEntry, error) {
	ref, ok := r.units[u.ID]
	if !ok {
		return nil, AuditEntry{}, fmt.Errorf("%w: %s", ErrUnknownUnit, u.ID)
	}
	u, err := curriculum.ValidateUnit(u)
	if err != nil {
		return nil, AuditEntry{}, fmt.Errorf("replace unit: %w", err)
	}
	if err := r.checkReplacement(ref, u); err != nil {
		return nil, AuditEntry{}, fmt.Errorf("replace unit %s: %w", u.ID, err)
	}

	seeds := make([]curriculum.Seed, len(r.seeds))
	copy(seeds, r.seeds)
	owner := seeds[ref.seed]
	units := make([]curriculum.Unit, len(owner.Units))
	copy(units, owner.Units)
	before := units[ref.unit]
	units[ref.unit] = u
	owner.Units = units
	seeds[ref.seed] = owner

	entry := AuditEntry{
		ID:     uuid.NewString(),
		UnitID: u.ID,
		Before: before,
		After:  u,
		Reason: reason,
		At:     time.Now().UTC(),
	}
	audit := make([]AuditEntry, len(r.audit), len(r.audit)+1)
	copy(audit, r.audit)
	audit = append(audit, entry)
	return newRegistry(seeds, audit), entry, nil
}

func (r *Registry) checkReplacement(ref unitRef, u curriculum.Unit) error {
	for _, c := range u.Components {
		cref, ok := r.units[c]
		if !ok || cref.seed > ref.seed || (cref.seed == ref.seed && cref.unit >= ref.unit) {
			return fmt.Errorf("component %s is not an earlier unit", c)
		}
		if r.seeds[cref.seed].Units[cref.unit].IsComposite() {
			return fmt.Errorf("component %s is not atomic", c)
		}
	}
	if !u.IsComposite() {
		return nil
	}
	for _, s := range r.seeds[ref.seed:] {
		for _, other := range s.Units {
			for _, c := range other.Components {
				if c == u.ID {
					return fmt.Errorf("unit is a component of %s and must stay atomic", other.ID)
				}
			}
		}
	}
	return nil
}
