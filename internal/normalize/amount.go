// Package normalize turns free-form currency strings, identifiers and loosely
// typed payload values into canonical Go values. Every function here is total:
// garbage in yields a zero value out, never a panic or an error.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ParseAmount strips everything except digits, '.' and '-' from raw and
// parses the remainder. Unparseable input yields 0.
func ParseAmount(raw string) float64 {
	clean := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, raw)

	switch clean {
	case "", "-", ".":
		return 0
	}

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// IsSpecialCategoryID reports whether id starts with an ASCII letter. Purely
// numeric work orders belong to regular clients and are not matched.
func IsSpecialCategoryID(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	c := id[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// idPrefix matches decorative labels such as "WO#", "WO #", "Work Order:" or a
// bare "#". A label needs an explicit separator so "WO123" is left alone.
var idPrefix = regexp.MustCompile(`(?i)^\s*(?:(?:wo|work\s*order)\s*(?:#|no\.|:)\s*|#\s*)`)

// StripIDPrefix removes a decorative label from a work order identifier.
func StripIDPrefix(id string) string {
	return strings.TrimSpace(idPrefix.ReplaceAllString(id, ""))
}
