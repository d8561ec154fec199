package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/japaniel/lexigate/pkg/curriculum"
	"github.com/japaniel/lexigate/pkg/registry"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Finding is one persisted audit finding. Detail holds the JSON encoding of
// the checker's result.
type Finding struct {
	ID     int64
	RunID  string
	Kind   string
	SeedID string
	UnitID string
	Detail string
}

// UpsertSeed inserts a seed or updates its texts.
func UpsertSeed(db DBExecutor, s curriculum.Seed) error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("seed id must be non-empty")
	}
	_, err := db.Exec(`INSERT INTO seeds (id, seq, known, target) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET seq = excluded.seq, known = excluded.known, target = excluded.target`,
		s.ID, s.Seq, s.Known, s.Target)
	if err != nil {
		return fmt.Errorf("upsert seed %s: %w", s.ID, err)
	}
	return nil
}

// UpsertUnit inserts a unit or replaces its contents.
func UpsertUnit(db DBExecutor, u curriculum.Unit) error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("unit id must be non-empty")
	}
	comps := u.Components
	if comps == nil {
		comps = []string{}
	}
	raw, err := json.Marshal(comps)
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT INTO units (id, seed_id, ordinal, kind, target, known, components) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET kind = excluded.kind, target = excluded.target,
		  known = excluded.known, components = excluded.components`,
		u.ID, u.SeedID, u.Ordinal, string(u.Kind), u.Target, u.Known, string(raw))
	if err != nil {
		return fmt.Errorf("upsert unit %s: %w", u.ID, err)
	}
	return nil
}

// ReplacePhrases stores the phrases of one unit, dropping any stored before.
func ReplacePhrases(db DBExecutor, unitID string, phrases []curriculum.Phrase) error {
	if _, err := db.Exec(`DELETE FROM phrases WHERE unit_id = ?`, unitID); err != nil {
		return err
	}
	for i, p := range phrases {
		if _, err := db.Exec(`INSERT INTO phrases (unit_id, position, known, target, seed_echo) VALUES (?, ?, ?, ?, ?)`,
			unitID, i, p.Known, p.Target, boolToInt(p.SeedEcho)); err != nil {
			return fmt.Errorf("insert phrase %d of %s: %w", i, unitID, err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SaveCurriculum writes c inside one transaction.
func SaveCurriculum(conn *sql.DB, c *curriculum.Curriculum) error {
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	for _, s := range c.Seeds {
		if err := UpsertSeed(tx, s); err != nil {
			return err
		}
		for _, u := range s.Units {
			if err := UpsertUnit(tx, u); err != nil {
				return err
			}
		}
	}
	byUnit := make(map[string][]curriculum.Phrase)
	var order []string
	for _, p := range c.Phrases {
		if _, ok := byUnit[p.UnitID]; !ok {
			order = append(order, p.UnitID)
		}
		byUnit[p.UnitID] = append(byUnit[p.UnitID], p)
	}
	for _, unitID := range order {
		if err := ReplacePhrases(tx, unitID, byUnit[unitID]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadCurriculum reads every stored record: seeds in seq order, units in
// ordinal order, phrases in authored order per unit.
func LoadCurriculum(db DBExecutor) (*curriculum.Curriculum, error) {
	out := &curriculum.Curriculum{}
	rows, err := db.Query(`SELECT id, seq, known, target FROM seeds ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	for rows.Next() {
		var s curriculum.Seed
		if err := rows.Scan(&s.ID, &s.Seq, &s.Known, &s.Target); err != nil {
			rows.Close()
			return nil, err
		}
		index[s.ID] = len(out.Seeds)
		out.Seeds = append(out.Seeds, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.Query(`SELECT id, seed_id, ordinal, kind, target, known, components FROM units ORDER BY seed_id, ordinal`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var u curriculum.Unit
		var kind, comps string
		if err := rows.Scan(&u.ID, &u.SeedID, &u.Ordinal, &kind, &u.Target, &u.Known, &comps); err != nil {
			rows.Close()
			return nil, err
		}
		u.Kind = curriculum.Kind(kind)
		if err := json.Unmarshal([]byte(comps), &u.Components); err != nil {
			rows.Close()
			return nil, fmt.Errorf("unit %s components: %w", u.ID, err)
		}
		if len(u.Components) == 0 {
			u.Components = nil
		}
		i, ok := index[u.SeedID]
		if !ok {
			continue
		}
		out.Seeds[i].Units = append(out.Seeds[i].Units, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.Query(`SELECT p.unit_id, p.known, p.target, p.seed_echo FROM phrases p
		JOIN units u ON u.id = p.unit_id JOIN seeds s ON s.id = u.seed_id
		ORDER BY s.seq, u.ordinal, p.position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p curriculum.Phrase
		var echo int
		if err := rows.Scan(&p.UnitID, &p.Known, &p.Target, &echo); err != nil {
			return nil, err
		}
		p.SeedEcho = echo != 0
		out.Phrases = append(out.Phrases, p)
	}
	return out, rows.Err()
}

// RecordReplacement appends an entry to the unit replacement log.
func RecordReplacement(db DBExecutor, e registry.AuditEntry) error {
	before, err := json.Marshal(e.Before)
	if err != nil {
		return err
	}
	after, err := json.Marshal(e.After)
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT INTO unit_replacements (id, unit_id, before, after, reason, replaced_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.UnitID, string(before), string(after), e.Reason, e.At)
	return err
}

// ReplaceUnit stores the replacement unit and its log entry atomically.
func ReplaceUnit(conn *sql.DB, e registry.AuditEntry) error {
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()
	if err := UpsertUnit(tx, e.After); err != nil {
		return err
	}
	if err := RecordReplacement(tx, e); err != nil {
		return fmt.Errorf("record replacement: %w", err)
	}
	return tx.Commit()
}

// ListReplacements returns the replacement log for a unit, oldest first.
// An empty unitID lists every entry.
func ListReplacements(db DBExecutor, unitID string) ([]registry.AuditEntry, error) {
	rows, err := db.Query(`SELECT id, unit_id, before, after, reason, replaced_at FROM unit_replacements
		WHERE ? = '' OR unit_id = ? ORDER BY replaced_at, rowid`, unitID, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []registry.AuditEntry
	for rows.Next() {
		var e registry.AuditEntry
		var before, after string
		var reason sql.NullString
		if err := rows.Scan(&e.ID, &e.UnitID, &before, &after, &reason, &e.At); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(before), &e.Before); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(after), &e.After); err != nil {
			return nil, err
		}
		if reason.Valid {
			e.Reason = reason.String
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateAuditRun registers a new audit run.
func CreateAuditRun(db DBExecutor, runID string, startedAt time.Time, seedCount int) error {
	_, err := db.Exec(`INSERT INTO audit_runs (id, started_at, seed_count) VALUES (?, ?, ?)`, runID, startedAt, seedCount)
	return err
}

// FinishAuditRun stamps a run with its finish time and finding count.
func FinishAuditRun(db DBExecutor, runID string, findings int) error {
	_, err := db.Exec(`UPDATE audit_runs SET finished_at = ?, findings = ? WHERE id = ?`, time.Now().UTC(), findings, runID)
	return err
}

// InsertFinding stores one finding.
func InsertFinding(db DBExecutor, f Finding) error {
	if f.RunID == "" {
		return fmt.Errorf("finding must belong to a run")
	}
	_, err := db.Exec(`INSERT INTO findings (run_id, kind, seed_id, unit_id, detail) VALUES (?, ?, ?, ?, ?)`,
		f.RunID, f.Kind, nullableString(f.SeedID), nullableString(f.UnitID), f.Detail)
	return err
}

// nullableString returns nil for "" else the value.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// CountFindings returns the number of findings per kind for a run.
func CountFindings(db DBExecutor, runID string) (map[string]int, error) {
	rows, err := db.Query(`SELECT kind, COUNT(*) FROM findings WHERE run_id = ? GROUP BY kind`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[kind] = n
	}
	return out, rows.Err()
}

// GetFindings returns the findings of a run, optionally filtered by kind.
func GetFindings(db DBExecutor, runID, kind string) ([]Finding, error) {
	rows, err := db.Query(`SELECT id, run_id, kind, IFNULL(seed_id, ''), IFNULL(unit_id, ''), detail FROM findings
		WHERE run_id = ? AND (? = '' OR kind = ?) ORDER BY id`, runID, kind, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Finding
	for rows.Next() {
		var f Finding
		if err := rows.Scan(&f.ID, &f.RunID, &f.Kind, &f.SeedID, &f.UnitID, &f.Detail); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
