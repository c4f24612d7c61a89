package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sells-group/wo-matcher/internal/model"
)

// Default candidate rendering limits.
const (
	DefaultMaxCandidates    = 100
	DefaultLocationWidth    = 50
	DefaultDescriptionWidth = 80
)

// Builder renders instructions. The zero value uses the default limits.
type Builder struct {
	MaxCandidates    int
	LocationWidth    int
	DescriptionWidth int
}

// NewBuilder returns a Builder with the default limits.
func NewBuilder() Builder {
	return Builder{
		MaxCandidates:    DefaultMaxCandidates,
		LocationWidth:    DefaultLocationWidth,
		DescriptionWidth: DefaultDescriptionWidth,
	}
}

// Build renders an instruction with the default limits.
func Build(freeText string, orders []model.WorkOrder, expectedCount int) string {
	return NewBuilder().Build(freeText, orders, expectedCount)
}

// Build renders the full matching instruction. Output depends only on the
// arguments and the builder limits.
func (b Builder) Build(freeText string, orders []model.WorkOrder, expectedCount int) string {
	b = b.withDefaults()

	var sb strings.Builder
	sb.WriteString("You are an expert at matching construction billing emails to work order data for a general contractor.\n\n")
	sb.WriteString("TASK: Analyze the email billing text and find the best matches from the available work orders using a blended confidence scoring system.\n\n")

	sb.WriteString("EMAIL BILLING TEXT:\n")
	sb.WriteString(freeText)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "AVAILABLE WORK ORDERS (%d alpha-numeric work orders for special clients):\n", len(orders))
	sb.WriteString(b.FormatOrders(orders))
	sb.WriteString("\n\n")

	sb.WriteString("CONFIDENCE SCORING SYSTEM:\n")
	sb.WriteString("Use these weighted signals to calculate blended confidence scores:\n\n")
	writeRubric(&sb)

	sb.WriteString("CONFIDENCE BANDS:\n")
	for _, band := range Bands {
		if band.Min == 0 {
			fmt.Fprintf(&sb, "• Below %d%%: %s\n", band.Max+1, band.Label)
			continue
		}
		fmt.Fprintf(&sb, "• %d-%d%%: %s\n", band.Min, band.Max, band.Label)
	}
	sb.WriteString("\n")

	sb.WriteString(exampleScoring)
	sb.WriteString("\n\n")

	if expectedCount > 0 {
		fmt.Fprintf(&sb, "Expected matches to find: %d (a hint, not a hard limit)\n\n", expectedCount)
	} else {
		sb.WriteString("Expected matches to find: unknown (report every billing item you can match)\n\n")
	}

	sb.WriteString("OUTPUT FORMAT:\nReturn a JSON object with this exact structure:\n\n")
	sb.WriteString(WireSchema)
	sb.WriteString("\n\n")

	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	for i, line := range instructions() {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, line)
	}
	sb.WriteString("\nBegin analysis:")
	return sb.String()
}

// FormatOrders renders at most MaxCandidates one-line summaries and a count
// of the remainder.
func (b Builder) FormatOrders(orders []model.WorkOrder) string {
	b = b.withDefaults()
	if len(orders) == 0 {
		return "No work orders available"
	}

	shown := orders
	if len(shown) > b.MaxCandidates {
		shown = shown[:b.MaxCandidates]
	}

	lines := make([]string, 0, len(shown)+1)
	for _, wo := range shown {
		lines = append(lines, b.FormatOrder(wo))
	}
	if rest := len(orders) - len(shown); rest > 0 {
		lines = append(lines, fmt.Sprintf("... and %d more work orders available", rest))
	}
	return strings.Join(lines, "\n")
}

// FormatOrder renders a single candidate as
// "WO#<id> | $<amount> | <location> | <description>".
func (b Builder) FormatOrder(wo model.WorkOrder) string {
	b = b.withDefaults()
	amount := "N/A"
	if wo.Total != "" {
		amount = "$" + strconv.FormatFloat(wo.Amount(), 'f', 2, 64)
	}
	return fmt.Sprintf("WO#%s | %s | %s | %s",
		orNA(wo.ID),
		amount,
		truncate(orNA(wo.Location), b.LocationWidth),
		truncate(orNA(wo.Description), b.DescriptionWidth),
	)
}

func (b Builder) withDefaults() Builder {
	if b.MaxCandidates <= 0 {
		b.MaxCandidates = DefaultMaxCandidates
	}
	if b.LocationWidth <= 0 {
		b.LocationWidth = DefaultLocationWidth
	}
	if b.DescriptionWidth <= 0 {
		b.DescriptionWidth = DefaultDescriptionWidth
	}
	return b
}

func writeRubric(sb *strings.Builder) {
	for _, c := range Rubric {
		if c.Stacking == HighestOnly {
			fmt.Fprintf(sb, "%s (Max %d points, only highest applies):\n", c.Heading, c.MaxPoints())
		} else {
			fmt.Fprintf(sb, "%s (Additive):\n", c.Heading)
		}
		for _, s := range c.Signals {
			prefix := ""
			if c.Stacking == Additive {
				prefix = "+"
			}
			fmt.Fprintf(sb, "• %s: %s%d points → %s\n", s.Label, prefix, s.Points, s.Example)
		}
		sb.WriteString("\n")
	}
}

func instructions() []string {
	return []string{
		"Extract ALL billing line items from the email (look for amounts, unit numbers, job descriptions)",
		"Calculate blended confidence scores by summing the applicable weighted signals",
		fmt.Sprintf("Only return matches with confidence ≥ %d%%", MatchThreshold),
		"Show your scoring logic in the evidence.score_breakdown field",
		"Put every billing item below the threshold, or with no candidate, in unmatched_items",
		"Be thorough but realistic with confidence scoring",
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

const exampleScoring = `EXAMPLE SCORING:
Email: "Unit 5996: plumbing repair $450"
Work Order: Unit "5996", "Plumbing backup", "$450.00"
Score: 50 (exact unit) + 30 (exact amount) + 15 (exact job) = 95%`

// WireSchema is the response shape the service is asked to return.
const WireSchema = `{
  "matches": [
    {
      "email_item": "extracted billing line item from email",
      "work_order_id": "WO123",
      "confidence": 85,
      "evidence": {
        "primary_signals": ["exact unit match: 5996"],
        "supporting_signals": ["exact amount: $450", "job type: plumbing"],
        "score_breakdown": "50 (unit) + 30 (amount) + 15 (job) = 95%",
        "concerns": []
      },
      "amount_comparison": {
        "email_amount": 450.00,
        "wo_amount": 450.00,
        "difference": 0.00
      }
    }
  ],
  "unmatched_items": ["billing items that couldn't be matched with sufficient confidence"],
  "summary": "X high-confidence matches found, Y items need manual review"
}`
