package audit

import (
	"time"

	"github.com/japaniel/lexigate/pkg/check"
	"github.com/japaniel/lexigate/pkg/curriculum"
	"github.com/japaniel/lexigate/pkg/langid"
	"github.com/japaniel/lexigate/pkg/registry"
)

// Finding kinds as stored in the findings table.
const (
	KindLoadIssue    = "load_issue"
	KindTiling       = "tiling"
	KindFD           = "fd"
	KindGate         = "gate"
	KindEcho         = "seed_echo"
	KindDistribution = "distribution"
	KindSwap         = "swap"
)

// Report is the outcome of one audit pass. Every section lists findings in
// curriculum order.
type Report struct {
	RunID                  string                     `json:"run_id"`
	StartedAt              time.Time                  `json:"started_at"`
	WhitelistMode          registry.Mode              `json:"whitelist_mode"`
	LoadIssues             []curriculum.LoadIssue     `json:"load_issues"`
	TilingFailures         []check.TilingResult       `json:"tiling_failures"`
	FDViolations           []check.FDViolation        `json:"fd_violations"`
	GateViolations         []check.GateResult         `json:"gate_violations"`
	EchoProblems           []check.EchoProblem        `json:"echo_problems"`
	DistributionShortfalls []check.DistributionResult `json:"distribution_shortfalls"`
	Swaps                  []langid.Finding           `json:"swaps"`
	Summary                Summary                    `json:"summary"`
}

// Summary counts the report sections.
type Summary struct {
	Seeds                  int `json:"seeds"`
	Units                  int `json:"units"`
	Phrases                int `json:"phrases"`
	LoadIssues             int `json:"load_issues"`
	TilingFailures         int `json:"tiling_failures"`
	FDViolations           int `json:"fd_violations"`
	FDTrivial              int `json:"fd_trivial"` // case-only, included in FDViolations
	GateViolations         int `json:"gate_violations"`
	GateSkipped            int `json:"gate_skipped"`
	EchoProblems           int `json:"echo_problems"`
	DistributionShortfalls int `json:"distribution_shortfalls"`
	Swapped                int `json:"swapped"`
	Uncertain              int `json:"uncertain"`
	// Clean is true when nothing but uncertain swaps and trivial FD
	// conflicts was found.
	Clean bool `json:"clean"`
}

func (r *Report) summarize() {
	s := &r.Summary
	s.LoadIssues = len(r.LoadIssues)
	s.TilingFailures = len(r.TilingFailures)
	s.FDViolations = len(r.FDViolations)
	s.FDTrivial = 0
	for _, v := range r.FDViolations {
		if v.Class == check.Trivial {
			s.FDTrivial++
		}
	}
	s.GateViolations = len(r.GateViolations)
	s.EchoProblems = len(r.EchoProblems)
	s.DistributionShortfalls = len(r.DistributionShortfalls)
	s.Swapped, s.Uncertain = 0, 0
	for _, f := range r.Swaps {
		switch f.Verdict {
		case langid.Swapped:
			s.Swapped++
		case langid.Uncertain:
			s.Uncertain++
		}
	}
	s.Clean = s.LoadIssues+s.TilingFailures+s.FDViolations-s.FDTrivial+s.GateViolations+
		s.EchoProblems+s.DistributionShortfalls+s.Swapped == 0
}

// Findings returns the number of persisted findings the report holds.
func (r *Report) Findings() int {
	return len(r.LoadIssues) + len(r.TilingFailures) + len(r.FDViolations) + len(r.GateViolations) +
		len(r.EchoProblems) + len(r.DistributionShortfalls) + len(r.Swaps)
}
