package source

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/wo-matcher/internal/model"
)

// CSV reads a delimited file whose first record is the header.
type CSV struct {
	Path      string
	Delimiter rune // default ','
}

// Rows implements Source.
func (c *CSV) Rows(ctx context.Context) ([]model.Row, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open file")
	}
	defer f.Close() //nolint:errcheck

	return ReadCSV(ctx, f, c.Delimiter)
}

// ReadCSV parses delimited text from r. A zero delimiter means ','.
func ReadCSV(ctx context.Context, r io.Reader, delimiter rune) ([]model.Row, error) {
	reader := csv.NewReader(r)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable fields

	var header []string
	var records [][]string
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "csv: context cancelled")
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}

		if header == nil {
			header = record
			continue
		}
		records = append(records, record)
	}

	if header == nil {
		return []model.Row{}, nil
	}
	return tableRows(header, records), nil
}
