package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/japaniel/lexigate/pkg/curriculum"
	"github.com/japaniel/lexigate/pkg/db"
)

// Persist stores report as an audit run with one row per finding.
func Persist(ctx context.Context, conn *sql.DB, report *Report, batchSize int) error {
	if err := db.CreateAuditRun(conn, report.RunID, report.StartedAt, report.Summary.Seeds); err != nil {
		return fmt.Errorf("create audit run: %w", err)
	}

	fw := NewFindingWriter(conn, batchSize)
	write := func(kind, id string, v interface{}) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		detail, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s finding: %w", kind, err)
		}
		seedID, unitID := splitRecordID(id)
		return fw.Write(db.Finding{RunID: report.RunID, Kind: kind, SeedID: seedID, UnitID: unitID, Detail: string(detail)})
	}

	err := func() error {
		for _, f := range report.LoadIssues {
			if err := write(KindLoadIssue, f.ID, f); err != nil {
				return err
			}
		}
		for _, f := range report.TilingFailures {
			if err := write(KindTiling, f.SeedID, f); err != nil {
				return err
			}
		}
		for _, f := range report.FDViolations {
			if err := write(KindFD, f.UnitID, f); err != nil {
				return err
			}
		}
		for _, f := range report.GateViolations {
			if err := write(KindGate, f.UnitID, f); err != nil {
				return err
			}
		}
		for _, f := range report.EchoProblems {
			id := f.UnitID
			if id == "" {
				id = f.SeedID
			}
			if err := write(KindEcho, id, f); err != nil {
				return err
			}
		}
		for _, f := range report.DistributionShortfalls {
			if err := write(KindDistribution, f.UnitID, f); err != nil {
				return err
			}
		}
		for _, f := range report.Swaps {
			if err := write(KindSwap, f.ID, f); err != nil {
				return err
			}
		}
		return nil
	}()
	if closeErr := fw.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("persist findings: %w", err)
	}
	return db.FinishAuditRun(conn, report.RunID, fw.Written())
}

// splitRecordID maps a seed, unit or phrase id (S0001, S0001L02,
// S0001L02/P03) to its seed and unit ids.
func splitRecordID(id string) (seedID, unitID string) {
	head, _, _ := strings.Cut(id, "/")
	if s, _, err := curriculum.ParseUnitID(head); err == nil {
		return s, head
	}
	return head, ""
}
