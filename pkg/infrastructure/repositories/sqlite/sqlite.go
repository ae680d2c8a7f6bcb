// Package sqlite persists scenarios and versions in a single SQLite file.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS scenarios (
	id          TEXT PRIMARY KEY,
	trial_code  TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS scenario_versions (
	id           TEXT PRIMARY KEY,
	scenario_id  TEXT NOT NULL REFERENCES scenarios(id),
	version      INTEGER NOT NULL,
	label        TEXT NOT NULL DEFAULT '',
	created_by   TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL,
	payload_hash TEXT NOT NULL,
	canonical    BLOB NOT NULL,
	UNIQUE (scenario_id, version)
);

CREATE INDEX IF NOT EXISTS idx_versions_scenario
	ON scenario_versions(scenario_id, version);
`

// Open opens (creating if needed) the database file with foreign keys on
// and applies the schema. Transactions take the write lock up front:
// AppendVersion reads the latest version number inside its transaction, and
// a deferred transaction upgrading to a write lock mid-flight fails with
// SQLITE_BUSY without waiting on busy_timeout.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
