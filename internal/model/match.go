package model

import "math"

// Confidence band floors.
const (
	VeryHighConfidence = 85
	HighConfidence     = 70
	MediumConfidence   = 50
)

// Evidence is the explanation attached to a proposed match.
type Evidence struct {
	PrimarySignals    []string `json:"primary_signals"`
	SupportingSignals []string `json:"supporting_signals"`
	ScoreBreakdown    string   `json:"score_breakdown"`
	Concerns          []string `json:"concerns"`
}

// AmountComparison compares the billed amount against the work-order amount.
type AmountComparison struct {
	EmailAmount float64 `json:"email_amount"`
	WOAmount    float64 `json:"wo_amount"`
	Difference  float64 `json:"difference"`
}

// PercentDifference returns |Difference| as a percentage of WOAmount. With a
// zero work-order amount it is +Inf when the email amount is non-zero, else 0.
func (a AmountComparison) PercentDifference() float64 {
	if a.WOAmount == 0 {
		if a.EmailAmount != 0 {
			return math.Inf(1)
		}
		return 0
	}
	return math.Abs(a.Difference/a.WOAmount) * 100
}

// IsExactMatch reports whether the amounts agree to within a cent.
func (a AmountComparison) IsExactMatch() bool {
	return math.Abs(a.Difference) < 0.01
}

// IsCloseMatch reports whether the amounts are within 15 percent.
func (a AmountComparison) IsCloseMatch() bool {
	return a.PercentDifference() <= 15.0
}

// Match pairs one billing line with a candidate work order.
type Match struct {
	EmailItem        string           `json:"email_item"`
	WorkOrderID      string           `json:"work_order_id"`
	Confidence       int              `json:"confidence"`
	Evidence         Evidence         `json:"evidence"`
	AmountComparison AmountComparison `json:"amount_comparison"`

	// WorkOrder is nil when WorkOrderID did not resolve to a candidate.
	WorkOrder *WorkOrder `json:"-"`
}

// ConfidenceLevel names the band the confidence falls in.
func (m Match) ConfidenceLevel() string {
	switch {
	case m.Confidence >= VeryHighConfidence:
		return "Very High"
	case m.Confidence >= HighConfidence:
		return "High"
	case m.Confidence >= MediumConfidence:
		return "Medium"
	default:
		return "Low"
	}
}

// ColorCode is a display hint for the confidence band.
func (m Match) ColorCode() string {
	switch {
	case m.Confidence >= VeryHighConfidence:
		return "green"
	case m.Confidence >= HighConfidence:
		return "lightgreen"
	case m.Confidence >= MediumConfidence:
		return "yellow"
	default:
		return "lightcoral"
	}
}

// Resolved reports whether the match points at a known work order.
func (m Match) Resolved() bool {
	return m.WorkOrder != nil
}
