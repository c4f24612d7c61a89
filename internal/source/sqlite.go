package source

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/wo-matcher/internal/model"
)

// SQLiteQuery is the default query for SQLite sources.
const SQLiteQuery = `SELECT wo_number AS "WO #", CAST(total AS TEXT) AS "Total", location AS "Location", description AS "Description" FROM work_orders ORDER BY wo_number`

// SQLite reads rows from a query against a SQLite database file.
type SQLite struct {
	db    *sql.DB
	query string
}

// NewSQLite opens the database at dsn. An empty query uses SQLiteQuery.
func NewSQLite(dsn, query string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "sqlite: exec pragma")
	}
	if query == "" {
		query = SQLiteQuery
	}
	return &SQLite{db: db, query: query}, nil
}

// Rows implements Source.
func (s *SQLite) Rows(ctx context.Context) ([]model.Row, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query work orders")
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: columns")
	}

	out := []model.Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan work order")
		}
		row := make(model.Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = vals[i]
			}
		}
		out = append(out, row)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate work orders")
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
