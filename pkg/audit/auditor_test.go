package audit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/japaniel/lexigate/pkg/check"
	"github.com/japaniel/lexigate/pkg/config"
	"github.com/japaniel/lexigate/pkg/curriculum"
	"github.com/japaniel/lexigate/pkg/langid"
	"github.com/japaniel/lexigate/pkg/registry"
)

func unit(id string, kind curriculum.Kind, target, known string, components ...string) curriculum.Unit {
	return curriculum.Unit{ID: id, Kind: kind, Target: target, Known: known, Components: components}
}

// fixture has one problem of each kind: an FD conflict (S0004), a tiling
// failure (S0005), two GATE failures and a swapped phrase (S0003), a missing
// seed echo (S0004) and a distribution shortfall (S0003L02).
func fixture(t *testing.T) *curriculum.Curriculum {
	t.Helper()
	doc := &curriculum.Document{
		Seeds: []curriculum.Seed{
			{ID: "S0001", Seq: 1, Known: "I want", Target: "Quiero", Units: []curriculum.Unit{
				unit("S0001L01", curriculum.Atomic, "Quiero", "I want"),
			}},
			{ID: "S0002", Seq: 2, Known: "I want to speak", Target: "Quiero hablar", Units: []curriculum.Unit{
				unit("S0002L01", curriculum.Atomic, "hablar", "to speak"),
				unit("S0002L02", curriculum.Composite, "Quiero hablar", "I want to speak", "S0001L01", "S0002L01"),
			}},
			{ID: "S0003", Seq: 3, Known: "I want to speak now", Target: "Quiero hablar ahora", Units: []curriculum.Unit{
				unit("S0003L01", curriculum.Atomic, "ahora", "now"),
				unit("S0003L02", curriculum.Composite, "Quiero hablar ahora", "I want to speak now", "S0001L01", "S0002L01", "S0003L01"),
			}},
			{ID: "S0004", Seq: 4, Known: "to talk", Target: "hablar", Units: []curriculum.Unit{
				unit("S0004L01", curriculum.Atomic, "hablar", "to talk"),
			}},
			{ID: "S0005", Seq: 5, Known: "The house", Target: "La casa", Units: []curriculum.Unit{
				unit("S0005L01", curriculum.Atomic, "casa", "house"),
			}},
		},
		Phrases: []curriculum.Phrase{
			{UnitID: "S0001L01", Known: "I want", Target: "Quiero", SeedEcho: true},
			{UnitID: "S0002L01", Known: "to speak", Target: "hablar"},
			{UnitID: "S0002L02", Known: "I want to speak", Target: "Quiero hablar", SeedEcho: true},
			{UnitID: "S0003L01", Known: "now", Target: "ahora mismo"},
			{UnitID: "S0003L02", Known: "Quiero hablar", Target: "I want to speak"},
			{UnitID: "S0003L02", Known: "I want to speak now", Target: "Quiero hablar ahora", SeedEcho: true},
			{UnitID: "S0004L01", Known: "to talk", Target: "hablar"},
			{UnitID: "S0005L01", Known: "The house", Target: "La casa", SeedEcho: true},
		},
	}
	c, issues := doc.Validate()
	require.Empty(t, issues)
	return c
}

func testAuditor(t *testing.T) *Auditor {
	t.Helper()
	a, err := NewAuditor(config.Default(), nil)
	require.NoError(t, err)
	a.Workers = 3
	a.Distribution = check.DistributionPolicy{
		Classes:  []check.LengthClass{{Name: "short", Min: 1, Max: 2}, {Name: "long", Min: 3}},
		Minimums: map[string]int{"short": 1},
	}
	a.Detector = langid.NewDetector(langid.NewScorer(langid.Profile{
		TargetWords:      []string{"quiero", "hablar", "ahora"},
		KnownWords:       []string{"i", "want", "to", "speak", "now"},
		TargetWordWeight: 5,
		KnownWordWeight:  5,
	}), 10, 3)
	return a
}

func TestRunReportsEveryFindingKind(t *testing.T) {
	defer goleak.VerifyNone(t)
	issues := []curriculum.LoadIssue{{Kind: curriculum.IssueInvalid, Record: "seed", ID: "S0099", Err: "missing target"}}

	report, err := testAuditor(t).Run(context.Background(), fixture(t), issues)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, registry.IncludeUnit, report.WhitelistMode)
	assert.Equal(t, issues, report.LoadIssues)

	require.Len(t, report.TilingFailures, 1)
	assert.Equal(t, "S0005", report.TilingFailures[0].SeedID)

	require.Len(t, report.FDViolations, 1)
	fd := report.FDViolations[0]
	assert.Equal(t, "S0004L01", fd.UnitID)
	assert.Equal(t, "S0002L01", fd.FirstUnitID)
	assert.Equal(t, check.Polysemy, fd.Class)

	require.Len(t, report.GateViolations, 2)
	assert.Equal(t, "S0003L01", report.GateViolations[0].UnitID)
	assert.Equal(t, []string{"mismo"}, report.GateViolations[0].Offending)
	assert.Equal(t, []string{"I", "want", "to", "speak"}, report.GateViolations[1].Offending)

	require.Len(t, report.EchoProblems, 1)
	assert.Equal(t, "S0004", report.EchoProblems[0].SeedID)

	require.Len(t, report.DistributionShortfalls, 1)
	assert.Equal(t, "S0003L02", report.DistributionShortfalls[0].UnitID)

	require.Len(t, report.Swaps, 1)
	assert.Equal(t, langid.PhraseID("S0003L02", 0), report.Swaps[0].ID)
	assert.Equal(t, langid.Swapped, report.Swaps[0].Verdict)

	assert.Equal(t, Summary{
		Seeds: 5, Units: 7, Phrases: 8,
		LoadIssues: 1, TilingFailures: 1, FDViolations: 1, GateViolations: 2, GateSkipped: 1,
		EchoProblems: 1, DistributionShortfalls: 1, Swapped: 1,
	}, report.Summary)
	assert.Equal(t, 8, report.Findings())
}

func TestSummaryIgnoresTrivialFDConflicts(t *testing.T) {
	r := &Report{
		FDViolations: []check.FDViolation{{UnitID: "S0002L01", Class: check.Trivial}},
		Swaps:        []langid.Finding{{Pair: langid.Pair{ID: "S0001"}, Verdict: langid.Uncertain}},
	}
	r.summarize()
	assert.Equal(t, 1, r.Summary.FDViolations)
	assert.Equal(t, 1, r.Summary.FDTrivial)
	assert.True(t, r.Summary.Clean)

	r.FDViolations = append(r.FDViolations, check.FDViolation{UnitID: "S0003L01", Class: check.VerbForm})
	r.summarize()
	assert.Equal(t, 1, r.Summary.FDTrivial)
	assert.False(t, r.Summary.Clean)
}

func TestRunStrictlyBeforeGatesOwnSeed(t *testing.T) {
	a := testAuditor(t)
	a.Mode = registry.StrictlyBefore
	report, err := a.Run(context.Background(), fixture(t), nil)
	require.NoError(t, err)
	// S0001's own echo is no longer covered, nor is S0002L01's "hablar".
	var units []string
	for _, g := range report.GateViolations {
		units = append(units, g.UnitID)
	}
	assert.Subset(t, units, []string{"S0001L01", "S0002L01", "S0003L01"})
}

func TestRunCleanCurriculum(t *testing.T) {
	c := &curriculum.Curriculum{
		Seeds: []curriculum.Seed{{ID: "S0001", Seq: 1, Known: "I want", Target: "Quiero.", Units: []curriculum.Unit{
			{ID: "S0001L01", SeedID: "S0001", Ordinal: 1, Kind: curriculum.Atomic, Target: "Quiero", Known: "I want"},
		}}},
		Phrases: []curriculum.Phrase{{UnitID: "S0001L01", Known: "I want", Target: "Quiero.", SeedEcho: true}},
	}
	report, err := testAuditor(t).Run(context.Background(), c, nil)
	require.NoError(t, err)
	assert.True(t, report.Summary.Clean, "%+v", report)
}

// reversePool queues jobs and runs them backwards on Close, so results reach
// the consumer in the worst possible order.
type reversePool struct {
	ctx  context.Context
	jobs []Job
}

func (p *reversePool) Start(ctx context.Context) { p.ctx = ctx }
func (p *reversePool) Submit(job Job) error      { return p.SubmitCtx(context.Background(), job) }
func (p *reversePool) SubmitCtx(ctx context.Context, job Job) error {
	p.jobs = append(p.jobs, job)
	return nil
}
func (p *reversePool) Close() {
	for i := len(p.jobs) - 1; i >= 0; i-- {
		_ = p.jobs[i](p.ctx)
	}
	p.jobs = nil
}

func TestRunKeepsSeedOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	// Every seed lacks phrases, so each yields one echo problem.
	c := &curriculum.Curriculum{}
	var want []string
	for i := 1; i <= 20; i++ {
		id := fmt.Sprintf("S%04d", i)
		word := fmt.Sprintf("w%d", i)
		c.Seeds = append(c.Seeds, curriculum.Seed{ID: id, Seq: i, Known: word, Target: word, Units: []curriculum.Unit{
			{ID: curriculum.FormatUnitID(id, 1), SeedID: id, Ordinal: 1, Kind: curriculum.Atomic, Target: word, Known: word},
		}})
		want = append(want, id)
	}

	a := testAuditor(t)
	a.PoolFactory = func(workers, queue int) WorkerPoolInterface { return &reversePool{} }
	var progress []int
	a.OnProgress = func(current, total int) { progress = append(progress, current) }

	report, err := a.Run(context.Background(), c, nil)
	require.NoError(t, err)
	var got []string
	for _, p := range report.EchoProblems {
		got = append(got, p.SeedID)
	}
	assert.Equal(t, want, got)
	require.Len(t, progress, 20)
	assert.Equal(t, 20, progress[19])
}

// failingPool always returns an error on Submit to simulate producer error.
type failingPool struct{}

func (f *failingPool) Start(ctx context.Context) {}
func (f *failingPool) Submit(job Job) error      { return errors.New("submit failed") }
func (f *failingPool) SubmitCtx(ctx context.Context, job Job) error {
	return errors.New("submit failed")
}
func (f *failingPool) Close() {}

func TestRunHandlesSubmitError(t *testing.T) {
	defer goleak.VerifyNone(t)
	a := testAuditor(t)
	a.PoolFactory = func(workers, queue int) WorkerPoolInterface { return &failingPool{} }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := a.Run(ctx, fixture(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submit failed")
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testAuditor(t).Run(ctx, fixture(t), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRejectsUnorderedCurriculum(t *testing.T) {
	c := &curriculum.Curriculum{Seeds: []curriculum.Seed{
		{ID: "S0002", Seq: 2, Known: "a", Target: "a"},
		{ID: "S0001", Seq: 1, Known: "b", Target: "b"},
	}}
	_, err := testAuditor(t).Run(context.Background(), c, nil)
	assert.Error(t, err)
}
