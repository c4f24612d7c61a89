// Package export renders a MatchingResult in its JSON wire form, with
// currency amounts fixed to two decimal places.
package export

import (
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/wo-matcher/internal/model"
)

// Document is the exported form of a MatchingResult.
type Document struct {
	RunID          string   `json:"run_id,omitempty"`
	Success        bool     `json:"success"`
	Summary        string   `json:"summary"`
	Error          string   `json:"error,omitempty"`
	Stats          Stats    `json:"stats"`
	Matches        []Match  `json:"matches"`
	UnmatchedItems []string `json:"unmatched_items"`
	RawResponse    string   `json:"raw_response,omitempty"`
}

// Stats are derived counts, informational only.
type Stats struct {
	Total      int `json:"total_matches"`
	High       int `json:"high_confidence"`
	Medium     int `json:"medium_confidence"`
	Unmatched  int `json:"unmatched"`
	Unresolved int `json:"unresolved"`
}

// Match is one exported match.
type Match struct {
	EmailItem       string         `json:"email_item"`
	WorkOrderID     string         `json:"work_order_id"`
	Confidence      int            `json:"confidence"`
	ConfidenceLevel string         `json:"confidence_level"`
	ColorCode       string         `json:"color_code"`
	Evidence        model.Evidence `json:"evidence"`
	Amounts         Amounts        `json:"amount_comparison"`
	WorkOrder       *WorkOrder     `json:"work_order,omitempty"`
}

// Amounts holds two-decimal currency strings. PercentDifference is omitted
// when the work-order amount is zero and the email amount is not.
type Amounts struct {
	EmailAmount       string  `json:"email_amount"`
	WOAmount          string  `json:"wo_amount"`
	Difference        string  `json:"difference"`
	PercentDifference *string `json:"percent_difference,omitempty"`
}

// WorkOrder is the resolved candidate record.
type WorkOrder struct {
	ID          string `json:"id"`
	Total       string `json:"total"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// FromResult converts r to its exported form.
func FromResult(r *model.MatchingResult) Document {
	doc := Document{
		RunID:          r.RunID,
		Success:        r.Success,
		Summary:        r.Summary,
		Error:          r.Error,
		Matches:        make([]Match, 0, len(r.Matches)),
		UnmatchedItems: append([]string{}, r.UnmatchedItems...),
		RawResponse:    r.RawResponse,
		Stats: Stats{
			Total:      r.TotalMatchCount(),
			High:       len(r.HighConfidenceMatches()),
			Medium:     len(r.MediumConfidenceMatches()),
			Unmatched:  r.UnmatchedCount(),
			Unresolved: len(r.UnresolvedMatches()),
		},
	}
	for _, m := range r.Matches {
		em := Match{
			EmailItem:       m.EmailItem,
			WorkOrderID:     m.WorkOrderID,
			Confidence:      m.Confidence,
			ConfidenceLevel: m.ConfidenceLevel(),
			ColorCode:       m.ColorCode(),
			Evidence:        m.Evidence,
			Amounts: Amounts{
				EmailAmount: money(m.AmountComparison.EmailAmount),
				WOAmount:    money(m.AmountComparison.WOAmount),
				Difference:  money(m.AmountComparison.Difference),
			},
		}
		if pct := m.AmountComparison.PercentDifference(); !math.IsInf(pct, 0) {
			s := money(pct)
			em.Amounts.PercentDifference = &s
		}
		if wo := m.WorkOrder; wo != nil {
			em.WorkOrder = &WorkOrder{
				ID:          wo.ID,
				Total:       wo.Total,
				Location:    wo.Location,
				Description: wo.Description,
			}
		}
		doc.Matches = append(doc.Matches, em)
	}
	return doc
}

// Result converts d back to a MatchingResult. Amounts keep two decimals.
func (d Document) Result() (*model.MatchingResult, error) {
	r := &model.MatchingResult{
		RunID:          d.RunID,
		Success:        d.Success,
		Summary:        d.Summary,
		Error:          d.Error,
		Matches:        make([]model.Match, 0, len(d.Matches)),
		UnmatchedItems: append([]string{}, d.UnmatchedItems...),
		RawResponse:    d.RawResponse,
	}
	for i, em := range d.Matches {
		var amounts model.AmountComparison
		var err error
		if amounts.EmailAmount, err = parseMoney(em.Amounts.EmailAmount); err != nil {
			return nil, eris.Wrapf(err, "export: match %d email_amount", i)
		}
		if amounts.WOAmount, err = parseMoney(em.Amounts.WOAmount); err != nil {
			return nil, eris.Wrapf(err, "export: match %d wo_amount", i)
		}
		if amounts.Difference, err = parseMoney(em.Amounts.Difference); err != nil {
			return nil, eris.Wrapf(err, "export: match %d difference", i)
		}

		m := model.Match{
			EmailItem:        em.EmailItem,
			WorkOrderID:      em.WorkOrderID,
			Confidence:       em.Confidence,
			Evidence:         em.Evidence,
			AmountComparison: amounts,
		}
		if wo := em.WorkOrder; wo != nil {
			rebuilt := model.NewWorkOrder(model.Row{
				"id": wo.ID, "total": wo.Total, "location": wo.Location, "description": wo.Description,
			}, model.Columns{ID: "id", Total: "total", Location: "location", Description: "description"})
			m.WorkOrder = &rebuilt
		}
		r.Matches = append(r.Matches, m)
	}
	return r, nil
}

// Encode renders r as indented JSON.
func Encode(r *model.MatchingResult) ([]byte, error) {
	if r == nil {
		return nil, eris.New("export: nil result")
	}
	data, err := json.MarshalIndent(FromResult(r), "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal result")
	}
	return data, nil
}

// Decode parses data produced by Encode.
func Decode(data []byte) (*model.MatchingResult, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "export: unmarshal result")
	}
	return doc.Result()
}

func money(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero.StringFixed(2)
	}
	return decimal.NewFromFloat(f).StringFixed(2)
}

func parseMoney(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid amount %q", s)
	}
	return d.Round(2).InexactFloat64(), nil
}
