// Package export writes the family record store to other formats: a SQLite
// database for offline querying, an SVG snapshot of the tree, and Markdown.
package export

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/familytree/pkg/model"
	"github.com/vanderheijden86/familytree/pkg/version"
)

// SQLiteExportConfig controls the exported database.
type SQLiteExportConfig struct {
	// Title is stored in the meta table (e.g. "陈氏族谱").
	Title string
	// IncludeFTS builds a people_fts full-text index. Default: true
	IncludeFTS bool
	// PageSize is the SQLite page size. Default: 4096
	PageSize int
}

// DefaultSQLiteExportConfig returns sensible defaults.
func DefaultSQLiteExportConfig() SQLiteExportConfig {
	return SQLiteExportConfig{IncludeFTS: true, PageSize: 4096}
}

// SQLiteExporter writes FamilyData to a SQLite database.
type SQLiteExporter struct {
	Data   model.FamilyData
	Config SQLiteExportConfig
	now    func() time.Time
}

// NewSQLiteExporter creates an exporter for data with default config.
func NewSQLiteExporter(data model.FamilyData) *SQLiteExporter {
	return &SQLiteExporter{
		Data:   data,
		Config: DefaultSQLiteExportConfig(),
		now:    time.Now,
	}
}

// Export writes the database to path, replacing any existing file.
func (e *SQLiteExporter) Export(path string) error {
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	dbClosed := false
	defer func() {
		if !dbClosed {
			db.Close()
		}
	}()

	if err := CreateSchema(db); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if err := e.insertPeople(db); err != nil {
		return fmt.Errorf("insert people: %w", err)
	}
	if e.Config.IncludeFTS {
		if err := CreateFTSIndex(db); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: FTS5 not available: %v\n", err)
		}
	}
	if err := e.insertMeta(db); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}
	if err := OptimizeDatabase(db, e.Config.PageSize); err != nil {
		return fmt.Errorf("optimize database: %w", err)
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	dbClosed = true
	return nil
}

func (e *SQLiteExporter) insertPeople(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	genStmt, err := tx.Prepare(`INSERT INTO generations (position, title) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer genStmt.Close()

	personStmt, err := tx.Prepare(`
		INSERT INTO people (id, name, father_id, birth_year, death_year, info, generation, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer personStmt.Close()

	for gi, g := range e.Data.Generations {
		if _, err := genStmt.Exec(gi, g.Title); err != nil {
			return fmt.Errorf("generation %q: %w", g.Title, err)
		}
		pos := 0
		for _, p := range g.People {
			if p == nil {
				continue
			}
			_, err := personStmt.Exec(
				nullString(p.ID), p.Name, nullString(p.FatherID),
				nullInt(p.BirthYear), nullInt(p.DeathYear), nullString(p.Info),
				gi, pos,
			)
			if err != nil {
				return fmt.Errorf("person %q: %w", p.Name, err)
			}
			pos++
		}
	}
	return tx.Commit()
}

func (e *SQLiteExporter) insertMeta(db *sql.DB) error {
	hash, err := DataHash(e.Data)
	if err != nil {
		return err
	}
	now := time.Now
	if e.now != nil {
		now = e.now
	}
	meta := [][2]string{
		{"schema_version", strconv.Itoa(SchemaVersion)},
		{"ftv_version", version.Version},
		{"exported_at", now().UTC().Format(time.RFC3339)},
		{"data_hash", hash},
		{"person_count", strconv.Itoa(e.Data.PersonCount())},
		{"generation_count", strconv.Itoa(len(e.Data.Generations))},
	}
	if e.Config.Title != "" {
		meta = append(meta, [2]string{"title", e.Config.Title})
	}
	for _, kv := range meta {
		if err := InsertMetaValue(db, kv[0], kv[1]); err != nil {
			return fmt.Errorf("meta %s: %w", kv[0], err)
		}
	}
	return nil
}

// DataHash returns a short content hash of data's JSON encoding.
func DataHash(data model.FamilyData) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("hash data: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:16], nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
