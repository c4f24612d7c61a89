package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/wo-matcher/internal/contract"
	"github.com/sells-group/wo-matcher/internal/model"
)

func orders() []model.WorkOrder {
	return model.WorkOrdersFromRows([]model.Row{
		{"WO #": "A5966", "Total": "$450.00", "Location": "Unit 5966", "Description": "Concrete repair"},
		{"WO #": "A7001", "Total": "$1,200.00", "Location": "Bldg 3", "Description": "Roof"},
		{"WO #": "A7001", "Total": "$1,250.00", "Location": "Bldg 3", "Description": "Roof revised"},
	}, model.DefaultColumns())
}

func TestReconcile_ResolvesAndStripsPrefix(t *testing.T) {
	t.Parallel()

	p := &contract.Payload{
		Matches: []contract.Entry{{
			EmailItem:   "Unit 5966: Concrete repair $450.00",
			WorkOrderID: "WO#A5966",
			Confidence:  95,
			Evidence: map[string]any{
				"primary_signals":    []any{"exact unit match: 5966"},
				"supporting_signals": []any{"exact amount", "job type: concrete"},
				"score_breakdown":    "50 + 30 + 15 = 95%",
			},
			AmountComparison: map[string]any{"email_amount": 450.0, "wo_amount": "450.00", "difference": 0.0},
		}},
		UnmatchedItems: []string{"Gutters $80"},
		Summary:        "1 high-confidence match",
	}

	r := Reconcile(p, orders())
	require.True(t, r.Success)
	require.Len(t, r.Matches, 1)

	m := r.Matches[0]
	assert.Equal(t, "A5966", m.WorkOrderID)
	require.NotNil(t, m.WorkOrder)
	assert.Equal(t, "Concrete repair", m.WorkOrder.Description)
	assert.True(t, m.AmountComparison.IsExactMatch())
	assert.InDelta(t, 450.0, m.AmountComparison.WOAmount, 1e-9)
	assert.Equal(t, []string{"exact unit match: 5966"}, m.Evidence.PrimarySignals)
	assert.Len(t, m.Evidence.SupportingSignals, 2)
	assert.Equal(t, []string{}, m.Evidence.Concerns)
	assert.Equal(t, "Very High", m.ConfidenceLevel())

	assert.Equal(t, []string{"Gutters $80"}, r.UnmatchedItems)
	assert.Equal(t, "1 high-confidence match", r.Summary)
	assert.Empty(t, r.Error)
}

func TestReconcile_UnresolvedIdentifier(t *testing.T) {
	t.Parallel()

	p := &contract.Payload{
		Matches: []contract.Entry{{
			EmailItem:   "Unit 9999 $100",
			WorkOrderID: "Z9999",
			Confidence:  60,
			Evidence:    map[string]any{"score_breakdown": "50 + 10"},
		}},
		UnmatchedItems: []string{},
		Summary:        "review",
	}

	r := Reconcile(p, orders())
	require.True(t, r.Success)
	require.Len(t, r.Matches, 1)
	assert.Nil(t, r.Matches[0].WorkOrder)
	assert.False(t, r.Matches[0].Resolved())
	assert.Equal(t, 60, r.Matches[0].Confidence)
	assert.Equal(t, "50 + 10", r.Matches[0].Evidence.ScoreBreakdown)
	assert.Len(t, r.UnresolvedMatches(), 1)
}

func TestReconcile_DuplicateIDLastWins(t *testing.T) {
	t.Parallel()

	p := &contract.Payload{
		Matches: []contract.Entry{{WorkOrderID: "A7001", Confidence: 70, Evidence: map[string]any{}}},
	}

	r := Reconcile(p, orders())
	require.Len(t, r.Matches, 1)
	require.NotNil(t, r.Matches[0].WorkOrder)
	assert.Equal(t, "Roof revised", r.Matches[0].WorkOrder.Description)
}

func TestReconcile_NonNumericAmounts(t *testing.T) {
	t.Parallel()

	p := &contract.Payload{
		Matches: []contract.Entry{{
			WorkOrderID:      "A5966",
			Confidence:       55,
			Evidence:         map[string]any{"primary_signals": "unit"},
			AmountComparison: map[string]any{"email_amount": "n/a", "wo_amount": nil, "difference": []any{}},
		}},
	}

	r := Reconcile(p, orders())
	require.Len(t, r.Matches, 1)
	assert.Equal(t, model.AmountComparison{}, r.Matches[0].AmountComparison)
	assert.Equal(t, []string{"unit"}, r.Matches[0].Evidence.PrimarySignals)
}

func TestReconcile_DoesNotAliasInputs(t *testing.T) {
	t.Parallel()

	wos := orders()
	p := &contract.Payload{
		Matches:        []contract.Entry{{WorkOrderID: "A5966", Confidence: 90, Evidence: map[string]any{}}},
		UnmatchedItems: []string{"x"},
	}

	r := Reconcile(p, wos)
	wos[0].Description = "changed"
	p.UnmatchedItems[0] = "y"

	assert.Equal(t, "Concrete repair", r.Matches[0].WorkOrder.Description)
	assert.Equal(t, []string{"x"}, r.UnmatchedItems)
}

func TestFailed(t *testing.T) {
	t.Parallel()

	r := Failed(errors.New("contract: missing required field: unmatched_items"), `{"matches": []}`)
	assert.False(t, r.Success)
	assert.Empty(t, r.Matches)
	assert.Empty(t, r.UnmatchedItems)
	assert.Contains(t, r.Error, "unmatched_items")
	assert.Equal(t, `{"matches": []}`, r.RawResponse)

	assert.False(t, Reconcile(nil, nil).Success)
}
