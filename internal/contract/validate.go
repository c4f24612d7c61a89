// Package contract turns a raw text response into a structurally valid match
// payload. Whole-payload problems are errors; problems with a single match
// entry drop that entry and keep the rest.
package contract

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/wo-matcher/internal/normalize"
)

// Entry is one structurally valid match proposal. Identifier prefixes and
// amount coercion are left to the reconciler.
type Entry struct {
	EmailItem        string
	WorkOrderID      string
	Confidence       int
	Evidence         map[string]any
	AmountComparison map[string]any
}

// Dropped records a match entry that failed the structural check.
type Dropped struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Payload is the validated content of a response.
type Payload struct {
	Matches        []Entry
	UnmatchedItems []string
	Summary        string
	Dropped        []Dropped
}

// Extract returns the span from the first '{' to the last '}' in raw.
func Extract(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

// Validate extracts and checks the JSON object embedded in raw.
func Validate(raw string) (*Payload, error) {
	span, ok := Extract(raw)
	if !ok {
		return nil, &Error{Kind: NoStructuredPayload}
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(span), &doc); err != nil {
		return nil, &Error{Kind: MalformedPayload, Err: eris.Wrap(err, "contract: decode payload")}
	}

	matches, err := arrayField(doc, "matches")
	if err != nil {
		return nil, err
	}
	unmatched, err := arrayField(doc, "unmatched_items")
	if err != nil {
		return nil, err
	}
	rawSummary, ok := doc["summary"]
	if !ok {
		return nil, &Error{Kind: MissingField, Field: "summary"}
	}
	summary, ok := rawSummary.(string)
	if !ok {
		return nil, &Error{Kind: InvalidField, Field: "summary"}
	}

	p := &Payload{
		Matches:        make([]Entry, 0, len(matches)),
		UnmatchedItems: make([]string, 0, len(unmatched)),
		Summary:        summary,
	}

	for i, item := range matches {
		entry, reason := parseEntry(item)
		if reason != "" {
			p.Dropped = append(p.Dropped, Dropped{Index: i, Reason: reason})
			continue
		}
		p.Matches = append(p.Matches, entry)
	}

	for _, item := range unmatched {
		switch item.(type) {
		case nil, map[string]any, []any:
			continue
		}
		p.UnmatchedItems = append(p.UnmatchedItems, normalize.SafeString(item))
	}

	return p, nil
}

func arrayField(doc map[string]any, key string) ([]any, error) {
	v, ok := doc[key]
	if !ok {
		return nil, &Error{Kind: MissingField, Field: key}
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, &Error{Kind: InvalidField, Field: key}
	}
	return arr, nil
}

// parseEntry returns the entry, or a non-empty reason when it must be dropped.
func parseEntry(item any) (Entry, string) {
	obj, ok := item.(map[string]any)
	if !ok {
		return Entry{}, "entry is not an object"
	}
	for _, key := range EntryFields {
		if _, ok := obj[key]; !ok {
			return Entry{}, "missing field: " + key
		}
	}
	if err := checkEntry(obj); err != nil {
		return Entry{}, err.Error()
	}

	evidence, _ := obj["evidence"].(map[string]any)
	amounts, _ := obj["amount_comparison"].(map[string]any)
	if amounts == nil {
		amounts = map[string]any{}
	}

	return Entry{
		EmailItem:        strings.TrimSpace(normalize.SafeString(obj["email_item"])),
		WorkOrderID:      strings.TrimSpace(normalize.SafeString(obj["work_order_id"])),
		Confidence:       normalize.ClampConfidence(obj["confidence"]),
		Evidence:         evidence,
		AmountComparison: amounts,
	}, ""
}
