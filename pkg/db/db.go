package db

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// migrationsSQL creates the lexigate schema. Statements are idempotent.
const migrationsSQL = `
CREATE TABLE IF NOT EXISTS seeds (
	id     TEXT PRIMARY KEY,
	seq    INTEGER NOT NULL UNIQUE,
	known  TEXT NOT NULL,
	target TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS units (
	id         TEXT PRIMARY KEY,
	seed_id    TEXT NOT NULL REFERENCES seeds(id),
	ordinal    INTEGER NOT NULL,
	kind       TEXT NOT NULL CHECK (kind IN ('atomic', 'composite')),
	target     TEXT NOT NULL,
	known      TEXT NOT NULL,
	components TEXT NOT NULL DEFAULT '[]',
	UNIQUE (seed_id, ordinal)
);

CREATE TABLE IF NOT EXISTS phrases (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	unit_id   TEXT NOT NULL REFERENCES units(id),
	position  INTEGER NOT NULL,
	known     TEXT NOT NULL,
	target    TEXT NOT NULL,
	seed_echo INTEGER NOT NULL DEFAULT 0,
	UNIQUE (unit_id, position)
);

CREATE TABLE IF NOT EXISTS unit_replacements (
	id          TEXT PRIMARY KEY,
	unit_id     TEXT NOT NULL REFERENCES units(id),
	before      TEXT NOT NULL,
	after       TEXT NOT NULL,
	reason      TEXT,
	replaced_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_unit_replacements_unit ON unit_replacements(unit_id);

CREATE TABLE IF NOT EXISTS audit_runs (
	id          TEXT PRIMARY KEY,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	seed_count  INTEGER NOT NULL DEFAULT 0,
	findings    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS findings (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  TEXT NOT NULL REFERENCES audit_runs(id),
	kind    TEXT NOT NULL,
	seed_id TEXT,
	unit_id TEXT,
	detail  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id, kind)
`

// InitDB runs migrations on the given DB connection.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(migrationsSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
