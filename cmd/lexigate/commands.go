package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/lexigate/pkg/audit"
	"github.com/japaniel/lexigate/pkg/curriculum"
	"github.com/japaniel/lexigate/pkg/db"
	"github.com/japaniel/lexigate/pkg/langid"
	"github.com/japaniel/lexigate/pkg/registry"
)

// errFindings is returned by check --fail-on-findings when the report is not clean.
var errFindings = errors.New("audit found problems")

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <curriculum.json>",
		Short: "Validate a curriculum file and store it in the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, issues, err := a.loadCurriculum(args[0])
			if err != nil {
				return err
			}
			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := db.SaveCurriculum(conn, c); err != nil {
				return fmt.Errorf("save curriculum: %w", err)
			}
			units := 0
			for _, s := range c.Seeds {
				units += len(s.Units)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d seeds, %d units, %d phrases into %s (%d records dropped).\n",
				len(c.Seeds), units, len(c.Phrases), a.dbPath, len(issues))
			return nil
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	var persist, failOnFindings bool
	var output string
	cmd := &cobra.Command{
		Use:   "check [curriculum.json]",
		Short: "Run every content check and print the report as JSON",
		Long: `Runs tiling, FCFS, GATE, seed echo, distribution and swap checks.
With a file argument the curriculum is read from that file; without one it is
read from the database.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				c      *curriculum.Curriculum
				issues []curriculum.LoadIssue
				err    error
			)
			if len(args) == 1 {
				c, issues, err = a.loadCurriculum(args[0])
				if err != nil {
					return err
				}
			} else {
				conn, err := a.openDB()
				if err != nil {
					return err
				}
				c, err = db.LoadCurriculum(conn)
				conn.Close()
				if err != nil {
					return fmt.Errorf("load curriculum: %w", err)
				}
			}

			auditor, err := audit.NewAuditor(a.cfg, a.logger)
			if err != nil {
				return err
			}
			report, err := auditor.Run(cmd.Context(), c, issues)
			if err != nil {
				return err
			}

			if persist {
				conn, err := a.openDB()
				if err != nil {
					return err
				}
				err = audit.Persist(cmd.Context(), conn, report, 100)
				conn.Close()
				if err != nil {
					return err
				}
				a.logger.Info("findings stored", zap.String("run_id", report.RunID), zap.Int("findings", report.Findings()))
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			if err := writeJSON(out, report); err != nil {
				return err
			}
			if failOnFindings && !report.Summary.Clean {
				return errFindings
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&persist, "persist", false, "Store the findings in the database")
	cmd.Flags().BoolVar(&failOnFindings, "fail-on-findings", false, "Exit non-zero unless the report is clean")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to this file instead of stdout")
	return cmd
}

func (a *app) swapsCmd() *cobra.Command {
	var apply string
	var scores bool
	cmd := &cobra.Command{
		Use:   "swaps <curriculum.json>",
		Short: "Detect and optionally correct swapped known/target fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := a.loadCurriculum(args[0])
			if err != nil {
				return err
			}
			d := a.cfg.Detector()
			out := cmd.OutOrStdout()

			if scores {
				return printScores(cmd, d, langid.CurriculumPairs(c))
			}
			if apply == "" {
				return writeJSON(out, d.Scan(langid.CurriculumPairs(c)))
			}

			fixed, applied := d.CorrectCurriculum(c)
			for _, f := range applied {
				a.logger.Info("swap corrected", zap.String("id", f.ID), zap.Float64("delta", f.Delta()))
			}
			w := out
			if apply != "-" {
				file, err := os.Create(apply)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			if err := fixed.Write(w); err != nil {
				return fmt.Errorf("write corrected curriculum: %w", err)
			}
			if apply != "-" {
				fmt.Fprintf(out, "Corrected %d swapped pairs; wrote %s.\n", len(applied), apply)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&apply, "apply", "", `Write the corrected curriculum to this path ("-" for stdout)`)
	cmd.Flags().BoolVar(&scores, "scores", false, "Print per-pair scores sorted by delta, for calibrating the margin")
	return cmd
}

// printScores lists every pair with its scores, largest delta first.
func printScores(cmd *cobra.Command, d *langid.Detector, pairs []langid.Pair) error {
	findings := make([]langid.Finding, 0, len(pairs))
	for _, p := range pairs {
		findings = append(findings, d.Judge(p))
	}
	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Delta() > findings[j].Delta() })

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tKNOWN\tTARGET\tDELTA\tVERDICT\n")
	for _, f := range findings {
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%.1f\t%s\n", f.ID, f.KnownScore, f.TargetScore, f.Delta(), f.Verdict)
	}
	fmt.Fprintf(tw, "margin=%.1f uncertainty=%.1f\n", d.Margin, d.Uncertainty)
	return tw.Flush()
}

func (a *app) replaceUnitCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "replace-unit <unit.json>",
		Short: "Replace one stored unit and record the change",
		Long: `Reads a single unit as JSON, checks it against the stored curriculum and
replaces the unit with the same id. The before and after states are kept in
the unit_replacements table.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var u curriculum.Unit
			if err := json.Unmarshal(raw, &u); err != nil {
				return fmt.Errorf("parse unit: %w", err)
			}
			u, err = curriculum.ValidateUnit(u)
			if err != nil {
				return err
			}

			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()

			c, err := db.LoadCurriculum(conn)
			if err != nil {
				return fmt.Errorf("load curriculum: %w", err)
			}
			reg, err := registry.FromCurriculum(c)
			if err != nil {
				return err
			}
			_, entry, err := reg.ReplaceUnit(u, reason)
			if err != nil {
				return err
			}
			if err := db.ReplaceUnit(conn, entry); err != nil {
				return err
			}
			a.logger.Info("unit replaced", zap.String("unit", entry.UnitID), zap.String("entry", entry.ID))
			return writeJSON(cmd.OutOrStdout(), entry)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Why the unit is replaced")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [unit-id]",
		Short: "List recorded unit replacements",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unitID := ""
			if len(args) == 1 {
				unitID = args[0]
			}
			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()
			entries, err := db.ListReplacements(conn, unitID)
			if err != nil {
				return err
			}
			if entries == nil {
				entries = []registry.AuditEntry{}
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		},
	}
}
