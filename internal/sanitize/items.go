package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/wo-matcher/internal/normalize"
)

// Item is one billing line recognized in sanitized text.
type Item struct {
	FullText    string  `json:"full_text"`
	Unit        string  `json:"unit,omitempty"`
	Description string  `json:"description"`
	AmountText  string  `json:"amount_text"`
	Amount      float64 `json:"amount"`
}

const amountExpr = `\$\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`

// linePatterns are tried in order; each yields unit, description and amount
// submatch indexes (unit may be -1).
var linePatterns = []struct {
	re                 *regexp.Regexp
	unit, desc, amount int
}{
	{regexp.MustCompile(`(?i)(?:unit\s+(\w+)\s*:?\s*)?([^$\n]+?)\s*` + amountExpr), 1, 2, 3},
	{regexp.MustCompile(`([^$\n:]+?)\s*:?\s*` + amountExpr), -1, 1, 2},
	{regexp.MustCompile(`([^$\n-]+?)\s*-\s*` + amountExpr), -1, 1, 2},
}

var totalLine = regexp.MustCompile(`(?i)\b(?:grand\s+total|subtotal|total|sum|amount\s+due)\b`)

// ExtractItems returns at most one billing item per line. Lines shorter than
// ten characters, totals, and items without a positive amount are skipped.
func ExtractItems(text string) []Item {
	items := []Item{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) < 10 {
			continue
		}
		if item, ok := parseLine(line); ok {
			items = append(items, item)
		}
	}
	return items
}

func parseLine(line string) (Item, bool) {
	for _, p := range linePatterns {
		m := p.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		item := Item{
			FullText:    line,
			Description: strings.TrimSpace(strings.TrimRight(strings.TrimSpace(m[p.desc]), ":-")),
			AmountText:  m[p.amount],
			Amount:      normalize.ParseAmount(m[p.amount]),
		}
		if p.unit >= 0 {
			item.Unit = strings.TrimSpace(m[p.unit])
		}
		if utf8.RuneCountInString(item.Description) > 5 && item.Amount > 0 && !totalLine.MatchString(item.Description) {
			return item, true
		}
	}
	return Item{}, false
}
