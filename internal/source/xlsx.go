package source

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/wo-matcher/internal/model"
)

// XLSX reads one worksheet whose first row is the header.
type XLSX struct {
	Path  string
	Sheet string // default: first sheet
}

// Rows implements Source.
func (x *XLSX) Rows(ctx context.Context) ([]model.Row, error) {
	f, err := xlsx.OpenFile(x.Path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := x.sheet(f)
	if err != nil {
		return nil, err
	}

	var header []string
	var records [][]string
	for _, row := range sheet.Rows {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "xlsx: context cancelled")
		}
		if row == nil {
			continue
		}
		cells := rowToStrings(row)
		if header == nil {
			if blank(cells) {
				continue
			}
			header = cells
			continue
		}
		records = append(records, cells)
	}

	if header == nil {
		return []model.Row{}, nil
	}
	return tableRows(header, records), nil
}

func (x *XLSX) sheet(f *xlsx.File) (*xlsx.Sheet, error) {
	if x.Sheet != "" {
		sheet, ok := f.Sheet[x.Sheet]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", x.Sheet)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
