// Package reconcile joins validated match entries back to the candidate work
// orders and assembles the final MatchingResult.
package reconcile

import (
	"github.com/sells-group/wo-matcher/internal/contract"
	"github.com/sells-group/wo-matcher/internal/model"
	"github.com/sells-group/wo-matcher/internal/normalize"
)

// Reconcile builds a successful result from a validated payload. Entries whose
// identifier does not resolve are kept with a nil WorkOrder.
func Reconcile(p *contract.Payload, orders []model.WorkOrder) *model.MatchingResult {
	if p == nil {
		return Failed(nil, "")
	}

	lookup := make(map[string]*model.WorkOrder, len(orders))
	for i := range orders {
		lookup[orders[i].ID] = &orders[i]
	}

	matches := make([]model.Match, 0, len(p.Matches))
	for _, e := range p.Matches {
		id := normalize.StripIDPrefix(e.WorkOrderID)
		m := model.Match{
			EmailItem:        e.EmailItem,
			WorkOrderID:      id,
			Confidence:       e.Confidence,
			Evidence:         evidence(e.Evidence),
			AmountComparison: amounts(e.AmountComparison),
		}
		if wo, ok := lookup[id]; ok {
			cp := *wo
			m.WorkOrder = &cp
		}
		matches = append(matches, m)
	}

	unmatched := make([]string, len(p.UnmatchedItems))
	copy(unmatched, p.UnmatchedItems)

	return &model.MatchingResult{
		Matches:        matches,
		UnmatchedItems: unmatched,
		Summary:        p.Summary,
		Success:        true,
	}
}

// Failed builds the result for a run whose gateway call or payload failed.
func Failed(err error, raw string) *model.MatchingResult {
	return model.NewFailedResult(err, raw)
}

func evidence(m map[string]any) model.Evidence {
	return model.Evidence{
		PrimarySignals:    normalize.SafeStrings(m["primary_signals"]),
		SupportingSignals: normalize.SafeStrings(m["supporting_signals"]),
		ScoreBreakdown:    normalize.SafeString(m["score_breakdown"]),
		Concerns:          normalize.SafeStrings(m["concerns"]),
	}
}

func amounts(m map[string]any) model.AmountComparison {
	return model.AmountComparison{
		EmailAmount: normalize.SafeFloat(m["email_amount"]),
		WOAmount:    normalize.SafeFloat(m["wo_amount"]),
		Difference:  normalize.SafeFloat(m["difference"]),
	}
}
