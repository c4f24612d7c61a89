// Package sanitize validates and cleans free billing text before it is
// embedded in an instruction.
package sanitize

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Default length limits, in characters.
const (
	DefaultMinLength = 20
	DefaultMaxLength = 10000
)

// Options controls validation strictness.
type Options struct {
	MinLength int
	MaxLength int
	// Strict rejects over-long or suspicious input instead of truncating or
	// warning.
	Strict bool
	// RequireCurrency rejects text with no currency amount.
	RequireCurrency bool
}

// DefaultOptions returns strict validation that requires a currency amount.
func DefaultOptions() Options {
	return Options{
		MinLength:       DefaultMinLength,
		MaxLength:       DefaultMaxLength,
		Strict:          true,
		RequireCurrency: true,
	}
}

// Result is cleaned text plus the non-fatal findings.
type Result struct {
	Text            string   `json:"text"`
	OriginalLength  int      `json:"original_length"`
	SanitizedLength int      `json:"sanitized_length"`
	Truncated       bool     `json:"truncated"`
	Warnings        []string `json:"warnings"`
}

// RejectedError lists every reason the input was refused.
type RejectedError struct {
	Reasons []string
}

func (e *RejectedError) Error() string {
	return "sanitize: input rejected: " + strings.Join(e.Reasons, "; ")
}

var (
	suspiciousPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?is)data:.*base64`),
		regexp.MustCompile(`(?s)<!--.*?-->`),
		regexp.MustCompile(`(?is)<iframe[^>]*>.*?</iframe>`),
	}
	suspiciousNames = []string{"script tag", "javascript url", "base64 data url", "html comment", "iframe tag"}

	specialChars   = regexp.MustCompile("[<>{}\\[\\]();'\"`]")
	htmlTag        = regexp.MustCompile(`<[^>]+>`)
	leftoverEntity = regexp.MustCompile(`&[a-zA-Z0-9#]+;`)
	manyNewlines   = regexp.MustCompile(`\n{3,}`)
	manySpaces     = regexp.MustCompile(`[ \t]{2,}`)

	currencyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$\s*\d+(?:,\d{3})*(?:\.\d{2})?`),
		regexp.MustCompile(`(?i)\d+(?:,\d{3})*(?:\.\d{2})?\s*dollars?`),
	}
	billingKeywords = regexp.MustCompile(`(?i)\b(invoice|bill|charge|cost|price|total|amount|materials|labor|work|repair|service|unit)\b`)
)

// maxSpecialRatio is the share of injection-prone characters tolerated.
const maxSpecialRatio = 0.1

// longLine is the length past which a line is reported as a formatting issue.
const longLine = 200

// Sanitizer applies Options to free text.
type Sanitizer struct {
	opts Options
}

// New returns a Sanitizer, filling unset limits from the defaults.
func New(opts Options) *Sanitizer {
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	return &Sanitizer{opts: opts}
}

// Sanitize validates text and returns its cleaned form. Any fatal problem is
// reported as a *RejectedError.
func (s *Sanitizer) Sanitize(text string) (*Result, error) {
	res := &Result{
		OriginalLength: utf8.RuneCountInString(text),
		Warnings:       []string{},
	}

	if strings.TrimSpace(text) == "" {
		return nil, &RejectedError{Reasons: []string{"input text is empty"}}
	}

	if n := res.OriginalLength; n > s.opts.MaxLength {
		if s.opts.Strict {
			return nil, &RejectedError{Reasons: []string{
				fmt.Sprintf("text too long (%d chars), maximum allowed: %d", n, s.opts.MaxLength),
			}}
		}
		text = string([]rune(text)[:s.opts.MaxLength])
		res.Truncated = true
		res.Warnings = append(res.Warnings, fmt.Sprintf("text truncated to %d chars", s.opts.MaxLength))
	}
	if n := utf8.RuneCountInString(text); n < s.opts.MinLength {
		return nil, &RejectedError{Reasons: []string{
			fmt.Sprintf("text too short (%d chars), minimum required: %d", n, s.opts.MinLength),
		}}
	}

	if issues := SecurityIssues(text); len(issues) > 0 {
		if s.opts.Strict {
			return nil, &RejectedError{Reasons: issues}
		}
		res.Warnings = append(res.Warnings, issues...)
	}

	text = html.UnescapeString(text)
	text = norm.NFKC.String(text)
	text = htmlTag.ReplaceAllString(text, "")
	text = leftoverEntity.ReplaceAllString(text, "")
	text = cleanFormatting(text)

	if !HasCurrency(text) {
		if s.opts.RequireCurrency {
			return nil, &RejectedError{Reasons: []string{"no currency amounts detected"}}
		}
		res.Warnings = append(res.Warnings, "no currency amounts detected, this may not be billing text")
	}
	res.Warnings = append(res.Warnings, structureWarnings(text)...)

	if utf8.RuneCountInString(text) < s.opts.MinLength {
		return nil, &RejectedError{Reasons: []string{"text became too short after sanitization"}}
	}

	res.Text = text
	res.SanitizedLength = utf8.RuneCountInString(text)
	return res, nil
}

// SecurityIssues returns a description of each suspicious construct in text.
func SecurityIssues(text string) []string {
	var issues []string
	for i, re := range suspiciousPatterns {
		if re.MatchString(text) {
			issues = append(issues, "suspicious pattern detected: "+suspiciousNames[i])
		}
	}
	if n := utf8.RuneCountInString(text); n > 0 {
		ratio := float64(len(specialChars.FindAllStringIndex(text, -1))) / float64(n)
		if ratio > maxSpecialRatio {
			issues = append(issues, fmt.Sprintf("high ratio of special characters: %.2f%%", ratio*100))
		}
	}
	return issues
}

// HasCurrency reports whether text contains a dollar amount.
func HasCurrency(text string) bool {
	for _, re := range currencyPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func cleanFormatting(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	text = manySpaces.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func structureWarnings(text string) []string {
	var warnings []string

	seen := map[string]bool{}
	for _, m := range billingKeywords.FindAllString(text, -1) {
		seen[strings.ToLower(m)] = true
	}
	if len(seen) < 2 {
		warnings = append(warnings, "few billing-related keywords detected")
	}

	lines := nonEmptyLines(text)
	if len(lines) < 3 {
		warnings = append(warnings, "text has very few lines, billing emails usually list several items")
	}

	long := 0
	for _, l := range lines {
		if utf8.RuneCountInString(l) > longLine {
			long++
		}
	}
	if long > 0 {
		warnings = append(warnings, fmt.Sprintf("%d extremely long lines detected, formatting may be broken", long))
	}
	return warnings
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
