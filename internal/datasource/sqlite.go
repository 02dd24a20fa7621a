package datasource

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/familytree/pkg/model"
)

// SQLiteReader provides read access to a database written by the SQLite export.
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite source read-only.
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	return &SQLiteReader{db: db, path: source.Path}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// HasFamilySchema reports whether the database has the exported tables.
func (r *SQLiteReader) HasFamilySchema(ctx context.Context) bool {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('generations', 'people')`,
	).Scan(&n)
	return err == nil && n == 2
}

// LoadFamily reads the flat record store in document order.
func (r *SQLiteReader) LoadFamily(ctx context.Context) (model.FamilyData, error) {
	if !r.HasFamilySchema(ctx) {
		return model.Empty(), fmt.Errorf("%s: not a family database (missing generations/people tables)", r.path)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT position, title FROM generations ORDER BY position`)
	if err != nil {
		return model.Empty(), fmt.Errorf("query generations: %w", err)
	}
	data := model.Empty()
	index := make(map[int64]int)
	for rows.Next() {
		var pos int64
		var title string
		if err := rows.Scan(&pos, &title); err != nil {
			rows.Close()
			return model.Empty(), fmt.Errorf("scan generation: %w", err)
		}
		index[pos] = len(data.Generations)
		data.Generations = append(data.Generations, model.Generation{Title: title, People: []*model.Person{}})
	}
	if err := rows.Close(); err != nil {
		return model.Empty(), err
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT id, name, father_id, birth_year, death_year, info, generation
		FROM people
		ORDER BY generation, position
	`)
	if err != nil {
		return model.Empty(), fmt.Errorf("query people: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, father, info sql.NullString
			name             string
			birth, death     sql.NullInt64
			gen              int64
		)
		if err := rows.Scan(&id, &name, &father, &birth, &death, &info, &gen); err != nil {
			return model.Empty(), fmt.Errorf("scan person: %w", err)
		}
		gi, ok := index[gen]
		if !ok {
			return model.Empty(), fmt.Errorf("person %q references unknown generation %d", name, gen)
		}
		p := &model.Person{ID: id.String, Name: name, FatherID: father.String, Info: info.String}
		if birth.Valid {
			p.BirthYear = model.IntPtr(int(birth.Int64))
		}
		if death.Valid {
			p.DeathYear = model.IntPtr(int(death.Int64))
		}
		data.Generations[gi].People = append(data.Generations[gi].People, p)
	}
	if err := rows.Err(); err != nil {
		return model.Empty(), err
	}
	return data, nil
}

// Meta returns the key/value pairs from the meta table.
func (r *SQLiteReader) Meta(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("query meta: %w", err)
	}
	defer rows.Close()
	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}
