package matcher

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/wo-matcher/internal/contract"
	"github.com/sells-group/wo-matcher/internal/gateway"
	"github.com/sells-group/wo-matcher/internal/metrics"
	"github.com/sells-group/wo-matcher/internal/model"
	"github.com/sells-group/wo-matcher/internal/sanitize"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const concreteRepair = "Unit 5966: Concrete repair $450.00"

const exactReply = `Here is the analysis:
{
  "matches": [
    {
      "email_item": "Unit 5966: Concrete repair $450.00",
      "work_order_id": "WO# A5966",
      "confidence": 92,
      "evidence": {
        "primary_signals": ["Exact unit match: 5966"],
        "supporting_signals": ["Exact amount $450.00", "Job type: concrete"],
        "score_breakdown": "Unit(50) + Amount(30) + Job(15) = 95",
        "concerns": []
      },
      "amount_comparison": {"email_amount": 450.00, "wo_amount": "450.00", "difference": 0}
    }
  ],
  "unmatched_items": [],
  "summary": "1 high confidence match"
}`

func testOrders() []model.WorkOrder {
	cols := model.DefaultColumns()
	return model.WorkOrdersFromRows([]model.Row{
		{"WO #": "A5966", "Total": "$450.00", "Location": "Unit 5966 Oak St", "Description": "Concrete repair"},
		{"WO #": "B1200", "Total": "$1,200.00", "Location": "Building C", "Description": "Roof patch"},
	}, cols)
}

func reply(s string) gateway.Func {
	return func(context.Context, string) (string, error) { return s, nil }
}

func TestEngine_ExactMatch(t *testing.T) {
	t.Parallel()

	var instruction string
	gw := gateway.Func(func(_ context.Context, in string) (string, error) {
		instruction = in
		return exactReply, nil
	})

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e := New(gw, Options{CaptureRaw: true, Metrics: m})

	res, err := e.Match(context.Background(), concreteRepair, testOrders(), 1)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, exactReply, res.RawResponse)

	require.Len(t, res.Matches, 1)
	got := res.Matches[0]
	assert.Equal(t, "A5966", got.WorkOrderID)
	assert.GreaterOrEqual(t, got.Confidence, 80)
	require.NotNil(t, got.WorkOrder)
	assert.Equal(t, "Concrete repair", got.WorkOrder.Description)
	assert.True(t, got.AmountComparison.IsExactMatch())
	assert.Equal(t, "Very High", got.ConfidenceLevel())
	assert.Empty(t, res.UnmatchedItems)

	assert.Contains(t, instruction, concreteRepair)
	assert.Contains(t, instruction, "WO#A5966 | $450.00")
	assert.Contains(t, instruction, "Expected matches to find: 1")

	assert.InDelta(t, 1, testutil.ToFloat64(m.Runs.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Matches.WithLabelValues("Very High")), 0)
}

func TestEngine_NoMatch(t *testing.T) {
	t.Parallel()

	text := "Invoice\nUnit 9999: Pool resurfacing $8,000.00\nThanks for the work"
	gw := reply(`{"matches": [], "unmatched_items": ["Unit 9999: Pool resurfacing $8,000.00"], "summary": "No matches found"}`)

	res, err := New(gw, Options{}).Match(context.Background(), text, testOrders(), 0)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Matches)
	assert.Equal(t, []string{"Unit 9999: Pool resurfacing $8,000.00"}, res.UnmatchedItems)
	assert.Equal(t, "No matches found", res.Summary)
	assert.Empty(t, res.RawResponse)
}

func TestEngine_ContractViolation(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	raw := "I could not find any matches for these items."
	e := New(reply(raw), Options{CaptureRaw: true, Metrics: m})

	res, err := e.Match(context.Background(), concreteRepair, testOrders(), 1)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, model.FailedSummary, res.Summary)
	assert.Empty(t, res.Matches)
	assert.Empty(t, res.UnmatchedItems)
	assert.Equal(t, raw, res.RawResponse)
	assert.Contains(t, res.Error, "contract")
	assert.InDelta(t, 1, testutil.ToFloat64(m.Runs.WithLabelValues("contract_violation")), 0)
}

func TestEngine_GatewayUnavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{"unavailable", &gateway.UnavailableError{Attempts: 3, Err: errors.New("503")}},
		{"empty response", gateway.ErrEmptyResponse},
		{"other error", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reg := prometheus.NewRegistry()
			m := metrics.New(reg)
			gw := gateway.Func(func(context.Context, string) (string, error) { return "", tt.err })

			res, err := New(gw, Options{Metrics: m}).Match(context.Background(), concreteRepair, testOrders(), 1)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Error)
			assert.Empty(t, res.RawResponse)
			assert.InDelta(t, 1, testutil.ToFloat64(m.Runs.WithLabelValues("gateway_unavailable")), 0)
		})
	}
}

func TestEngine_InputRejected(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	gw := gateway.Func(func(context.Context, string) (string, error) {
		calls.Add(1)
		return exactReply, nil
	})

	res, err := New(gw, Options{}).Match(context.Background(), "too short", testOrders(), 1)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, ClassInputRejected, Classify(err))
	assert.Zero(t, calls.Load())
}

func TestEngine_DroppedAndUnresolved(t *testing.T) {
	t.Parallel()

	raw := `{
  "matches": [
    {"email_item": "Unit 5966: Concrete repair $450.00", "work_order_id": "A5966", "confidence": 150, "evidence": {}},
    {"email_item": "missing evidence", "work_order_id": "B1200", "confidence": 60},
    {"email_item": "Roof work $99", "work_order_id": "Z0000", "confidence": 55, "evidence": {"concerns": ["id not in list"]}}
  ],
  "unmatched_items": [],
  "summary": "partial"
}`
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	res, err := New(reply(raw), Options{Metrics: m}).Match(context.Background(), concreteRepair, testOrders(), 2)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, 100, res.Matches[0].Confidence)
	assert.True(t, res.Matches[0].Resolved())
	assert.False(t, res.Matches[1].Resolved())
	assert.Len(t, res.UnresolvedMatches(), 1)

	assert.InDelta(t, 1, testutil.ToFloat64(m.DroppedEntries), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Unresolved), 0)
}

func TestEngine_ExpectedCountFallback(t *testing.T) {
	t.Parallel()

	var instruction string
	gw := gateway.Func(func(_ context.Context, in string) (string, error) {
		instruction = in
		return exactReply, nil
	})
	e := New(gw, Options{DefaultExpected: 7})

	text := "Unit 5966: Concrete repair $450.00\nUnit 6010: Drywall patch $120.00"
	_, err := e.Match(context.Background(), text, testOrders(), 0)
	require.NoError(t, err)
	assert.Contains(t, instruction, "Expected matches to find: 2")

	_, err = e.Match(context.Background(), "Concrete and drywall, 450 dollars total", testOrders(), -1)
	require.NoError(t, err)
	assert.Contains(t, instruction, "Expected matches to find: 7")
}

func TestEngine_SimplePrompt(t *testing.T) {
	t.Parallel()

	var instruction string
	gw := gateway.Func(func(_ context.Context, in string) (string, error) {
		instruction = in
		return exactReply, nil
	})
	e := New(gw, Options{SimplePrompt: true})

	text := "Unit 5966: Concrete repair $450.00\nUnit 6010: Drywall patch $120.00"
	res, err := e.Match(context.Background(), text, testOrders(), 0)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, strings.HasPrefix(instruction, "Match these billing items to work orders:"))
	assert.Contains(t, instruction, "- Unit 5966: Concrete repair $450.00\n- Unit 6010: Drywall patch $120.00")
	assert.Contains(t, instruction, "WO#A5966 | $450.00")
	assert.NotContains(t, instruction, "Expected matches to find")

	_, err = e.Match(context.Background(), "Concrete and drywall, 450 dollars total", testOrders(), 0)
	require.NoError(t, err)
	assert.Contains(t, instruction, "Expected matches to find: 5", "no billing lines falls back to the full instruction")
}

func TestPreview(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", preview("short"))
	long := strings.Repeat("é", 250)
	got := preview(long)
	assert.Equal(t, strings.Repeat("é", 200)+"...", got)
}

func TestEngine_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	gw := gateway.Func(func(context.Context, string) (string, error) {
		calls.Add(1)
		return exactReply, nil
	})

	res, err := New(gw, Options{}).Match(ctx, concreteRepair, testOrders(), 1)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestEngine_CanceledDuringCall(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	gw := gateway.Func(func(ctx context.Context, string) (string, error) {
		cancel()
		return "", ctx.Err()
	})

	res, err := New(gw, Options{}).Match(ctx, concreteRepair, testOrders(), 1)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_RunsAreIndependent(t *testing.T) {
	t.Parallel()

	e := New(reply(exactReply), Options{})
	a, err := e.Match(context.Background(), concreteRepair, testOrders(), 1)
	require.NoError(t, err)
	b, err := e.Match(context.Background(), concreteRepair, testOrders(), 1)
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	a.Matches[0].WorkOrder.Description = "changed"
	assert.Equal(t, "Concrete repair", b.Matches[0].WorkOrder.Description)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassNone},
		{"rejected", &sanitize.RejectedError{Reasons: []string{"empty"}}, ClassInputRejected},
		{"unavailable", &gateway.UnavailableError{Err: errors.New("x")}, ClassGatewayUnavailable},
		{"empty response", gateway.ErrEmptyResponse, ClassGatewayUnavailable},
		{"contract", &contract.Error{Kind: contract.MissingField, Field: "summary"}, ClassContractViolation},
		{"other", errors.New("boom"), ClassUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestOutcome(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "success", outcome(ClassNone))
	assert.Equal(t, "input_rejected", outcome(ClassInputRejected))
	assert.False(t, strings.Contains(outcome(ClassUnknown), " "))
}
