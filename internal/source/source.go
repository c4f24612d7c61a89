// Package source loads raw work-order rows from spreadsheets, structured
// files and SQL databases.
package source

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/wo-matcher/internal/model"
)

// Source yields raw rows keyed by column name.
type Source interface {
	Rows(ctx context.Context) ([]model.Row, error)
}

// Func adapts a plain function to Source.
type Func func(ctx context.Context) ([]model.Row, error)

// Rows calls f.
func (f Func) Rows(ctx context.Context) ([]model.Row, error) { return f(ctx) }

// Kind names a source implementation.
type Kind string

// Supported source kinds.
const (
	KindCSV      Kind = "csv"
	KindXLSX     Kind = "xlsx"
	KindYAML     Kind = "yaml"
	KindJSON     Kind = "json"
	KindPostgres Kind = "postgres"
	KindSQLite   Kind = "sqlite"
)

// Config selects and configures a source.
type Config struct {
	Kind      Kind   `mapstructure:"kind" yaml:"kind"`
	Path      string `mapstructure:"path" yaml:"path"`
	Sheet     string `mapstructure:"sheet" yaml:"sheet"`
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	DSN       string `mapstructure:"dsn" yaml:"dsn"`
	Query     string `mapstructure:"query" yaml:"query"`
}

// ResolvedKind returns Kind, or the kind implied by the file extension of
// Path when Kind is empty.
func (c Config) ResolvedKind() Kind {
	if c.Kind != "" {
		return Kind(strings.ToLower(string(c.Kind)))
	}
	switch strings.ToLower(filepath.Ext(c.Path)) {
	case ".csv", ".tsv":
		return KindCSV
	case ".xlsx":
		return KindXLSX
	case ".yaml", ".yml":
		return KindYAML
	case ".json":
		return KindJSON
	case ".db", ".sqlite", ".sqlite3":
		return KindSQLite
	}
	if strings.HasPrefix(c.DSN, "postgres://") || strings.HasPrefix(c.DSN, "postgresql://") {
		return KindPostgres
	}
	return ""
}

// Open builds the configured source. Database sources hold a connection and
// implement io.Closer.
func Open(ctx context.Context, cfg Config) (Source, error) {
	switch k := cfg.ResolvedKind(); k {
	case KindCSV:
		src := &CSV{Path: cfg.Path}
		if cfg.Delimiter != "" {
			src.Delimiter = []rune(cfg.Delimiter)[0]
		} else if strings.EqualFold(filepath.Ext(cfg.Path), ".tsv") {
			src.Delimiter = '\t'
		}
		return src, nil
	case KindXLSX:
		return &XLSX{Path: cfg.Path, Sheet: cfg.Sheet}, nil
	case KindYAML, KindJSON:
		return &Structured{Path: cfg.Path}, nil
	case KindPostgres:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Path
		}
		return NewPostgres(ctx, dsn, cfg.Query)
	case KindSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Path
		}
		return NewSQLite(dsn, cfg.Query)
	default:
		return nil, eris.Errorf("source: unsupported kind %q", k)
	}
}

// Load reads src and converts each row to a WorkOrder. With specialOnly, only
// special-category orders are returned.
func Load(ctx context.Context, src Source, cols model.Columns, specialOnly bool) ([]model.WorkOrder, error) {
	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "source: read rows")
	}

	orders := model.WorkOrdersFromRows(rows, cols)
	total := len(orders)
	if specialOnly {
		orders = model.FilterSpecial(orders)
	}

	zap.L().Info("source: loaded work orders",
		zap.Int("rows", total),
		zap.Int("kept", len(orders)),
		zap.Bool("special_only", specialOnly),
	)
	return orders, nil
}

// tableRows keys each record by the header. Short records are padded with
// empty cells and fully blank records are skipped.
func tableRows(header []string, records [][]string) []model.Row {
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = strings.TrimSpace(h)
	}

	rows := make([]model.Row, 0, len(records))
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		row := make(model.Row, len(keys))
		for i, k := range keys {
			if k == "" {
				continue
			}
			if i < len(rec) {
				row[k] = rec[i]
			} else {
				row[k] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
