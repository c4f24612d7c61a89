package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/wo-matcher/internal/gateway"
	"github.com/sells-group/wo-matcher/internal/matcher"
	"github.com/sells-group/wo-matcher/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const billingText = "Unit 5966: Concrete repair $450.00"

const matchReply = `{
  "matches": [
    {
      "email_item": "Unit 5966: Concrete repair $450.00",
      "work_order_id": "A5966",
      "confidence": 92,
      "evidence": {"primary_signals": ["Exact unit match"], "supporting_signals": [], "score_breakdown": "Unit(50) + Amount(30)", "concerns": []},
      "amount_comparison": {"email_amount": 450, "wo_amount": 450, "difference": 0}
    },
    {
      "email_item": "Unit 5966: Concrete repair $450.00",
      "work_order_id": "B1200",
      "confidence": 30,
      "evidence": {"concerns": ["amount far off"]}
    }
  ],
  "unmatched_items": [],
  "summary": "1 strong match"
}`

func testOrders() []model.WorkOrder {
	return model.WorkOrdersFromRows([]model.Row{
		{"WO #": "A5966", "Total": "$450.00", "Location": "Unit 5966 Oak St", "Description": "Concrete repair"},
		{"WO #": "B1200", "Total": "$1,200.00", "Location": "Building C", "Description": "Roof patch"},
	}, model.DefaultColumns())
}

func engineReplying(reply string, err error) *matcher.Engine {
	return matcher.New(gateway.Func(func(context.Context, string) (string, error) {
		return reply, err
	}), matcher.Options{})
}

func engineGateway(reply string) gateway.Gateway {
	return gateway.Func(func(context.Context, string) (string, error) { return reply, nil })
}
