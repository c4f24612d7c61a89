package source

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/wo-matcher/internal/model"
)

func seedSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	_, err = db.Exec(`CREATE TABLE work_orders (
		wo_number   TEXT PRIMARY KEY,
		total       REAL,
		location    TEXT,
		description TEXT
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO work_orders VALUES
		('A5966', 450.0, 'Unit 5966 Oak St', 'Concrete repair'),
		('B1200', 1200.5, 'Building C', NULL)`)
	require.NoError(t, err)
	return path
}

func TestSQLite_Rows(t *testing.T) {
	t.Parallel()

	src, err := NewSQLite(seedSQLite(t), "")
	require.NoError(t, err)
	defer src.Close() //nolint:errcheck

	rows, err := src.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	orders := model.WorkOrdersFromRows(rows, model.DefaultColumns())
	assert.Equal(t, "A5966", orders[0].ID)
	assert.InDelta(t, 450.0, orders[0].Amount(), 1e-9)
	assert.InDelta(t, 1200.5, orders[1].Amount(), 1e-9)
	assert.Empty(t, orders[1].Description)
}

func TestSQLite_ViaOpen(t *testing.T) {
	t.Parallel()

	src, err := Open(context.Background(), Config{Path: seedSQLite(t)})
	require.NoError(t, err)
	s, ok := src.(*SQLite)
	require.True(t, ok)
	defer s.Close() //nolint:errcheck

	orders, err := Load(context.Background(), s, model.DefaultColumns(), true)
	require.NoError(t, err)
	require.Len(t, orders, 2)
}

func TestSQLite_BadQuery(t *testing.T) {
	t.Parallel()

	src, err := NewSQLite(seedSQLite(t), "SELECT * FROM missing_table")
	require.NoError(t, err)
	defer src.Close() //nolint:errcheck

	_, err = src.Rows(context.Background())
	require.Error(t, err)
}
