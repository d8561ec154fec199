// Package audit runs every content check over a curriculum snapshot and
// collects the findings into a Report.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/japaniel/lexigate/pkg/check"
	"github.com/japaniel/lexigate/pkg/config"
	"github.com/japaniel/lexigate/pkg/curriculum"
	"github.com/japaniel/lexigate/pkg/langid"
	"github.com/japaniel/lexigate/pkg/registry"
	"github.com/japaniel/lexigate/pkg/text"
)

// Auditor checks a curriculum for tiling, FD, GATE, seed echo, distribution
// and swap problems.
type Auditor struct {
	Normalizer   *text.Normalizer
	Tiling       check.TilingPolicy
	Mode         registry.Mode
	FCFS         check.FCFSPolicy
	Distribution check.DistributionPolicy
	Detector     *langid.Detector

	// Logger receives progress and summary messages. nil means no logging.
	Logger *zap.Logger
	// OnProgress is called with the number of seeds checked so far and the total.
	OnProgress func(current, total int)

	// Concurrency settings
	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewAuditor builds an Auditor from cfg.
func NewAuditor(cfg *config.Config, logger *zap.Logger) (*Auditor, error) {
	n, err := cfg.Normalizer()
	if err != nil {
		return nil, err
	}
	return &Auditor{
		Normalizer:   n,
		Tiling:       cfg.TilingPolicy(),
		Mode:         cfg.WhitelistMode(),
		FCFS:         cfg.FCFSPolicy(),
		Distribution: cfg.DistributionPolicy(),
		Detector:     cfg.Detector(),
		Logger:       logger,
		Workers:      cfg.Workers,
	}, nil
}

func (a *Auditor) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// seedResult holds the findings of one seed before they are merged in order.
type seedResult struct {
	index        int
	gate         []check.GateResult
	gateSkipped  int
	echo         []check.EchoProblem
	distribution []check.DistributionResult
}

// Run audits c. issues are the structural problems found while loading c and
// are copied into the report. Invariant violations are findings, not errors;
// Run only fails if c is not seq-ordered or ctx is canceled.
func (a *Auditor) Run(ctx context.Context, c *curriculum.Curriculum, issues []curriculum.LoadIssue) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := a.logger()
	reg, err := registry.FromCurriculum(c)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	report := &Report{
		RunID:         uuid.NewString(),
		StartedAt:     time.Now().UTC(),
		WhitelistMode: a.Mode,
		LoadIssues:    issues,
	}
	report.Summary.Seeds = reg.Len()
	report.Summary.Phrases = len(c.Phrases)
	log.Info("audit started",
		zap.String("run_id", report.RunID),
		zap.Int("seeds", reg.Len()),
		zap.String("whitelist_mode", string(a.Mode)),
		zap.Int("workers", a.Workers))

	// Tiling decides which seeds feed the whitelist, so it runs first.
	excluded := make(map[string]bool)
	for _, s := range reg.Seeds() {
		report.Summary.Units += len(s.Units)
		if res := check.Tiling(s, a.Tiling); !res.Pass {
			excluded[s.ID] = true
			report.TilingFailures = append(report.TilingFailures, res)
			log.Debug("tiling failed", zap.String("seed", s.ID),
				zap.String("expected", res.Expected), zap.String("reconstructed", res.Reconstructed))
		}
	}
	exclude := func(seedID string) bool { return excluded[seedID] }

	acc := registry.NewAccumulator(reg, a.Normalizer, exclude)
	report.FDViolations = check.FCFS(reg, a.Normalizer, exclude, a.FCFS)

	phrasesByUnit := make(map[string][]curriculum.Phrase)
	for _, p := range c.Phrases {
		phrasesByUnit[p.UnitID] = append(phrasesByUnit[p.UnitID], p)
	}

	if err := a.checkSeeds(ctx, reg.Seeds(), acc, excluded, phrasesByUnit, report); err != nil {
		return nil, err
	}

	if a.Detector != nil {
		report.Swaps = a.Detector.Scan(langid.CurriculumPairs(c))
	}

	report.summarize()
	log.Info("audit finished",
		zap.String("run_id", report.RunID),
		zap.Int("tiling_failures", report.Summary.TilingFailures),
		zap.Int("fd_violations", report.Summary.FDViolations),
		zap.Int("gate_violations", report.Summary.GateViolations),
		zap.Int("echo_problems", report.Summary.EchoProblems),
		zap.Int("distribution_shortfalls", report.Summary.DistributionShortfalls),
		zap.Int("swapped", report.Summary.Swapped),
		zap.Int("uncertain", report.Summary.Uncertain),
		zap.Bool("clean", report.Summary.Clean))
	return report, nil
}

// checkSeeds fans the per-seed checks out on the worker pool and merges the
// results into report in seed order.
func (a *Auditor) checkSeeds(ctx context.Context, seeds []curriculum.Seed, acc *registry.Accumulator,
	excluded map[string]bool, phrasesByUnit map[string][]curriculum.Phrase, report *Report) error {
	total := len(seeds)
	if total == 0 {
		return nil
	}
	workers := a.Workers
	if workers <= 0 {
		workers = 1
	}
	var wp WorkerPoolInterface
	if a.PoolFactory != nil {
		wp = a.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}
	resultCh := make(chan seedResult, workers*2)

	g, gctx := errgroup.WithContext(ctx)
	wp.Start(gctx)

	// Producer: one job per seed. Closing the pool waits for running jobs,
	// after which nothing sends on resultCh.
	g.Go(func() error {
		defer func() {
			wp.Close()
			close(resultCh)
		}()
		for i, s := range seeds {
			idx, seed := i, s
			job := func(ctx context.Context) error {
				res := a.checkSeed(idx, seed, acc, excluded[seed.ID], phrasesByUnit)
				select {
				case resultCh <- res:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if err := wp.SubmitCtx(gctx, job); err != nil {
				return fmt.Errorf("submit seed %s: %w", seed.ID, err)
			}
		}
		return nil
	})

	// Consumer: re-order results so the report follows Seq order.
	g.Go(func() error {
		buffer := make(map[int]seedResult)
		nextIdx := 0
		for res := range resultCh {
			buffer[res.index] = res
			for {
				item, ok := buffer[nextIdx]
				if !ok {
					break
				}
				delete(buffer, nextIdx)
				report.GateViolations = append(report.GateViolations, item.gate...)
				report.Summary.GateSkipped += item.gateSkipped
				report.EchoProblems = append(report.EchoProblems, item.echo...)
				report.DistributionShortfalls = append(report.DistributionShortfalls, item.distribution...)
				nextIdx++
				if a.OnProgress != nil {
					a.OnProgress(nextIdx, total)
				}
			}
		}
		if nextIdx != total {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("audit: %d of %d seeds checked", nextIdx, total)
		}
		return nil
	})

	return g.Wait()
}

// checkSeed runs the GATE, seed echo and distribution checks for one seed.
// Phrases of an excluded seed are not gated: its units never entered the
// whitelist, so every phrase would fail.
func (a *Auditor) checkSeed(index int, seed curriculum.Seed, acc *registry.Accumulator, excluded bool,
	phrasesByUnit map[string][]curriculum.Phrase) seedResult {
	res := seedResult{index: index}
	for _, u := range seed.Units {
		phrases := phrasesByUnit[u.ID]
		if excluded {
			res.gateSkipped += len(phrases)
		} else {
			wl := acc.ForUnit(seed.Seq, u, a.Mode)
			for _, p := range phrases {
				if g := check.Gate(p, wl, a.Normalizer); !g.Pass {
					res.gate = append(res.gate, g)
				}
			}
		}
		if d := check.Distribution(u.ID, phrases, a.Distribution, a.Normalizer); !d.Met {
			res.distribution = append(res.distribution, d)
		}
	}
	res.echo = check.SeedEcho(seed, phrasesByUnit)
	return res
}
