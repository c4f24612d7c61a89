package prompt

import (
	"strings"

	"github.com/sells-group/wo-matcher/internal/model"
)

// BuildSimple renders a short instruction with the default limits.
func BuildSimple(items []string, orders []model.WorkOrder) string {
	return NewBuilder().BuildSimple(items, orders)
}

// BuildSimple renders a short fallback instruction for billing items that
// were already extracted from the email.
func (b Builder) BuildSimple(items []string, orders []model.WorkOrder) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}

	var sb strings.Builder
	sb.WriteString("Match these billing items to work orders:\n\n")
	sb.WriteString("BILLING ITEMS:\n")
	sb.WriteString(strings.Join(lines, "\n"))
	sb.WriteString("\n\nWORK ORDERS:\n")
	sb.WriteString(b.FormatOrders(orders))
	sb.WriteString("\n\nReturn JSON with matches array. Use confidence 0-100 based on how well unit numbers, addresses, amounts, and job types align.")
	return sb.String()
}
