package store

import (
	"database/sql"
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations are applied in order; Version must increase by one each step.
var migrations = []migration{
	{
		Version:     1,
		Description: "intakes: caffeine dose journal",
		SQL: `
CREATE TABLE intakes (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    id         TEXT NOT NULL UNIQUE,
    taken_at   INTEGER NOT NULL, -- unix nanoseconds
    amount_mg  REAL NOT NULL CHECK (amount_mg > 0),
    label      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX idx_intakes_taken_at ON intakes(taken_at, seq);
`,
	},
}

const createSchemaVersions = `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    description TEXT NOT NULL,
    applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
)`

// migrate applies every migration newer than the recorded schema version
// and returns how many ran.
func (db *DB) migrate() (int, error) {
	if _, err := db.Exec(createSchemaVersions); err != nil {
		return 0, fmt.Errorf("create schema_versions: %w", err)
	}
	current, err := db.SchemaVersion()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if current > len(migrations) {
		return 0, fmt.Errorf("journal schema version %d is newer than this build (%d)", current, len(migrations))
	}

	applied := 0
	for _, m := range migrations[current:] {
		if err := db.apply(m); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// apply runs one migration and records it in the same transaction.
func (db *DB) apply(m migration) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(m.SQL); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if _, err = tx.Exec(
		"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
		m.Version, m.Description,
	); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	return nil
}

// SchemaVersion returns the highest applied migration, 0 for a new journal.
func (db *DB) SchemaVersion() (int, error) {
	var version sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_versions").Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}
