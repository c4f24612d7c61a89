package source

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/wo-matcher/internal/model"
)

// DefaultQuery selects work orders with the default column names. Totals are
// cast to text so numeric columns keep their exact form.
const DefaultQuery = `SELECT wo_number AS "WO #", total::text AS "Total", location AS "Location", description AS "Description" FROM work_orders ORDER BY wo_number`

// pool is the subset of pgxpool.Pool used by Postgres.
type pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Postgres reads rows from a query against a PostgreSQL database.
type Postgres struct {
	pool  pool
	query string
}

// NewPostgres connects to dsn. An empty query uses DefaultQuery.
func NewPostgres(ctx context.Context, dsn, query string) (*Postgres, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgres(p, query), nil
}

func newPostgres(p pool, query string) *Postgres {
	if query == "" {
		query = DefaultQuery
	}
	return &Postgres{pool: p, query: query}
}

// Rows implements Source.
func (p *Postgres) Rows(ctx context.Context) ([]model.Row, error) {
	rows, err := p.pool.Query(ctx, p.query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query work orders")
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan work orders")
	}

	out := make([]model.Row, len(maps))
	for i, m := range maps {
		out[i] = model.Row(m)
	}
	return out, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
