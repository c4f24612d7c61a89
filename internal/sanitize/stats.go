package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Stats summarizes text for diagnostics.
type Stats struct {
	TotalLength      int     `json:"total_length"`
	LineCount        int     `json:"line_count"`
	NonEmptyLines    int     `json:"non_empty_lines"`
	WordCount        int     `json:"word_count"`
	AvgLineLength    float64 `json:"avg_line_length"`
	CurrencyMentions int     `json:"currency_mentions"`
	NumberMentions   int     `json:"number_mentions"`
	SpecialCharRatio float64 `json:"special_char_ratio"`
	WhitespaceRatio  float64 `json:"whitespace_ratio"`
}

var (
	currencyMention = regexp.MustCompile(`\$\s*\d+`)
	numberMention   = regexp.MustCompile(`\b\d+\b`)
	nonWordChar     = regexp.MustCompile(`[^\w\s]`)
	whitespaceChar  = regexp.MustCompile(`\s`)
)

// ComputeStats returns Stats for text. Empty text yields zero Stats.
func ComputeStats(text string) Stats {
	if text == "" {
		return Stats{}
	}
	lines := strings.Split(text, "\n")
	n := float64(utf8.RuneCountInString(text))

	st := Stats{
		TotalLength:      utf8.RuneCountInString(text),
		LineCount:        len(lines),
		NonEmptyLines:    len(nonEmptyLines(text)),
		WordCount:        len(strings.Fields(text)),
		CurrencyMentions: len(currencyMention.FindAllStringIndex(text, -1)),
		NumberMentions:   len(numberMention.FindAllStringIndex(text, -1)),
		SpecialCharRatio: float64(len(nonWordChar.FindAllStringIndex(text, -1))) / n,
		WhitespaceRatio:  float64(len(whitespaceChar.FindAllStringIndex(text, -1))) / n,
	}
	total := 0
	for _, l := range lines {
		total += utf8.RuneCountInString(l)
	}
	st.AvgLineLength = float64(total) / float64(len(lines))
	return st
}
