package check

import (
	"fmt"

	"github.com/japaniel/lexigate/pkg/curriculum"
)

// EchoProblem describes a misplaced, missing or altered seed echo.
type EchoProblem struct {
	SeedID string `json:"seed_id"`
	UnitID string `json:"unit_id,omitempty"`
	Detail string `json:"detail"`
}

// SeedEcho checks that the final phrase of the seed's final unit is the only
// seed echo and that it repeats the seed pair verbatim. phrasesByUnit maps
// unit ids to their phrases in authored order.
func SeedEcho(seed curriculum.Seed, phrasesByUnit map[string][]curriculum.Phrase) []EchoProblem {
	if len(seed.Units) == 0 {
		return nil
	}
	var out []EchoProblem
	final := seed.Units[len(seed.Units)-1]
	for _, u := range seed.Units {
		phrases := phrasesByUnit[u.ID]
		for i, p := range phrases {
			last := u.ID == final.ID && i == len(phrases)-1
			switch {
			case p.SeedEcho && !last:
				out = append(out, EchoProblem{SeedID: seed.ID, UnitID: u.ID,
					Detail: fmt.Sprintf("phrase %d is marked as seed echo but is not the final phrase of the final unit", i)})
			case last && !p.SeedEcho:
				out = append(out, EchoProblem{SeedID: seed.ID, UnitID: u.ID,
					Detail: "final phrase of the final unit is not marked as seed echo"})
			case last && (p.Known != seed.Known || p.Target != seed.Target):
				out = append(out, EchoProblem{SeedID: seed.ID, UnitID: u.ID,
					Detail: fmt.Sprintf("seed echo %q / %q differs from seed pair %q / %q", p.Known, p.Target, seed.Known, seed.Target)})
			}
		}
	}
	if len(phrasesByUnit[final.ID]) == 0 {
		out = append(out, EchoProblem{SeedID: seed.ID, UnitID: final.ID, Detail: "final unit has no phrases"})
	}
	return out
}
