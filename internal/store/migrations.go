package store

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS entries (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    platform TEXT NOT NULL,
    category TEXT NOT NULL,
    goal TEXT NOT NULL,
    description TEXT,
    content TEXT NOT NULL,
    key_insights TEXT,
    tags TEXT,
    embedding TEXT,
    quality_score REAL DEFAULT 0,
    source_type TEXT,
    extraction_method TEXT,
    confidence_score REAL DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ingestion_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_id TEXT REFERENCES entries(id),
    source_type TEXT NOT NULL,
    overall_score REAL DEFAULT 0,
    approved INTEGER DEFAULT 0,
    duplicate_of TEXT,
    ingested_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_entries_platform ON entries(platform);
CREATE INDEX IF NOT EXISTS idx_entries_goal ON entries(goal);
CREATE INDEX IF NOT EXISTS idx_entries_category ON entries(category);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
