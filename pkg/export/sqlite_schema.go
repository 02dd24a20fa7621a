package export

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is stored in the meta table of every exported database.
const SchemaVersion = 1

// CreateSchema creates all tables and indexes in the database.
func CreateSchema(db *sql.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"generations", `
			CREATE TABLE IF NOT EXISTS generations (
				position INTEGER PRIMARY KEY,
				title TEXT NOT NULL
			)`},
		// id is not unique; reused ids are exported as they appear.
		{"people", `
			CREATE TABLE IF NOT EXISTS people (
				pk INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT,
				name TEXT NOT NULL,
				father_id TEXT,
				birth_year INTEGER,
				death_year INTEGER,
				info TEXT,
				generation INTEGER NOT NULL,
				position INTEGER NOT NULL,
				FOREIGN KEY (generation) REFERENCES generations(position)
			)`},
		{"meta", `
			CREATE TABLE IF NOT EXISTS meta (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)`},
		{"idx_people_id", `CREATE INDEX IF NOT EXISTS idx_people_id ON people(id)`},
		{"idx_people_father", `CREATE INDEX IF NOT EXISTS idx_people_father ON people(father_id)`},
		{"idx_people_order", `CREATE INDEX IF NOT EXISTS idx_people_order ON people(generation, position)`},
	}
	for _, s := range stmts {
		if _, err := db.Exec(s.sql); err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}

// CreateFTSIndex creates and fills the FTS5 table over names and info.
func CreateFTSIndex(db *sql.DB) error {
	ftsSQL := `
		CREATE VIRTUAL TABLE IF NOT EXISTS people_fts USING fts5(
			name,
			info,
			content='people',
			content_rowid='pk',
			tokenize='unicode61'
		)
	`
	if _, err := db.Exec(ftsSQL); err != nil {
		return fmt.Errorf("create FTS5 table: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO people_fts(people_fts) VALUES('rebuild')`); err != nil {
		return fmt.Errorf("populate FTS index: %w", err)
	}
	return nil
}

// OptimizeDatabase compacts the database for distribution.
func OptimizeDatabase(db *sql.DB, pageSize int) error {
	if pageSize <= 0 {
		pageSize = 4096
	}
	pragmas := []string{
		`PRAGMA journal_mode=DELETE`,
		fmt.Sprintf(`PRAGMA page_size=%d`, pageSize),
		`VACUUM`,
		`ANALYZE`,
		`PRAGMA optimize`,
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	_, _ = db.Exec(`INSERT INTO people_fts(people_fts) VALUES('optimize')`)
	return nil
}

// InsertMetaValue upserts a key in the meta table.
func InsertMetaValue(db *sql.DB, key, value string) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value)
	return err
}
