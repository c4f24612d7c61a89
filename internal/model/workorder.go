package model

import (
	"strings"

	"github.com/sells-group/wo-matcher/internal/normalize"
)

// Row is one raw record from a work-order source, keyed by column header.
type Row map[string]any

// Columns names the source columns that hold each logical work-order field.
type Columns struct {
	ID          string `mapstructure:"id" json:"id" yaml:"id"`
	Total       string `mapstructure:"total" json:"total" yaml:"total"`
	Location    string `mapstructure:"location" json:"location" yaml:"location"`
	Description string `mapstructure:"description" json:"description" yaml:"description"`
}

// DefaultColumns returns the header names used by the billing spreadsheet.
func DefaultColumns() Columns {
	return Columns{
		ID:          "WO #",
		Total:       "Total",
		Location:    "Location",
		Description: "Description",
	}
}

// withDefaults fills any empty column name from DefaultColumns.
func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	if strings.TrimSpace(c.ID) == "" {
		c.ID = d.ID
	}
	if strings.TrimSpace(c.Total) == "" {
		c.Total = d.Total
	}
	if strings.TrimSpace(c.Location) == "" {
		c.Location = d.Location
	}
	if strings.TrimSpace(c.Description) == "" {
		c.Description = d.Description
	}
	return c
}

// WorkOrder is a candidate billing record. Total keeps the source text; the
// parsed amount is computed once at construction.
type WorkOrder struct {
	ID          string `json:"id"`
	Total       string `json:"total"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Raw         Row    `json:"-"`

	amount float64
}

// NewWorkOrder builds a WorkOrder from a raw row. Missing or mistyped cells
// become empty strings, so a malformed row yields a degenerate record rather
// than an error.
func NewWorkOrder(row Row, cols Columns) WorkOrder {
	cols = cols.withDefaults()
	field := func(key string) string {
		if row == nil {
			return ""
		}
		return strings.TrimSpace(normalize.SafeString(row[key]))
	}

	wo := WorkOrder{
		ID:          field(cols.ID),
		Total:       field(cols.Total),
		Location:    field(cols.Location),
		Description: field(cols.Description),
		Raw:         row,
	}
	wo.amount = normalize.ParseAmount(wo.Total)
	return wo
}

// Amount returns the numeric value of Total, or 0 when it cannot be parsed.
func (w WorkOrder) Amount() float64 {
	return w.amount
}

// IsSpecialCategory reports whether the identifier starts with a letter.
func (w WorkOrder) IsSpecialCategory() bool {
	return normalize.IsSpecialCategoryID(w.ID)
}

// WorkOrdersFromRows converts every row, in order.
func WorkOrdersFromRows(rows []Row, cols Columns) []WorkOrder {
	out := make([]WorkOrder, 0, len(rows))
	for _, r := range rows {
		out = append(out, NewWorkOrder(r, cols))
	}
	return out
}

// FilterSpecial keeps only special-category work orders, preserving order.
func FilterSpecial(orders []WorkOrder) []WorkOrder {
	out := make([]WorkOrder, 0, len(orders))
	for _, wo := range orders {
		if wo.IsSpecialCategory() {
			out = append(out, wo)
		}
	}
	return out
}
