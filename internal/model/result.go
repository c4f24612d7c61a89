package model

// MatchingResult is the outcome of one matching run. A failed result never
// carries matches or unmatched items.
type MatchingResult struct {
	RunID          string   `json:"run_id,omitempty"`
	Matches        []Match  `json:"matches"`
	UnmatchedItems []string `json:"unmatched_items"`
	Summary        string   `json:"summary"`
	Success        bool     `json:"success"`
	Error          string   `json:"error,omitempty"`
	RawResponse    string   `json:"raw_response,omitempty"`
}

// FailedSummary is the summary text carried by every failed result.
const FailedSummary = "Matching failed"

// NewFailedResult builds a failed result from err. raw may be empty.
func NewFailedResult(err error, raw string) *MatchingResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &MatchingResult{
		Matches:        []Match{},
		UnmatchedItems: []string{},
		Summary:        FailedSummary,
		Success:        false,
		Error:          msg,
		RawResponse:    raw,
	}
}

// TotalMatchCount returns the number of matches.
func (r *MatchingResult) TotalMatchCount() int {
	return len(r.Matches)
}

// UnmatchedCount returns the number of unmatched billing items.
func (r *MatchingResult) UnmatchedCount() int {
	return len(r.UnmatchedItems)
}

// HighConfidenceMatches returns matches with confidence of at least 70.
func (r *MatchingResult) HighConfidenceMatches() []Match {
	return r.filter(func(m Match) bool { return m.Confidence >= HighConfidence })
}

// MediumConfidenceMatches returns matches that need review (50 to 69).
func (r *MatchingResult) MediumConfidenceMatches() []Match {
	return r.filter(func(m Match) bool {
		return m.Confidence >= MediumConfidence && m.Confidence < HighConfidence
	})
}

// AboveThreshold returns matches whose confidence is at least min.
func (r *MatchingResult) AboveThreshold(min int) []Match {
	return r.filter(func(m Match) bool { return m.Confidence >= min })
}

// UnresolvedMatches returns matches whose identifier did not resolve.
func (r *MatchingResult) UnresolvedMatches() []Match {
	return r.filter(func(m Match) bool { return !m.Resolved() })
}

func (r *MatchingResult) filter(keep func(Match) bool) []Match {
	out := []Match{}
	for _, m := range r.Matches {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}
