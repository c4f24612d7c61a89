// Package prompt renders the instruction sent to the text-comprehension
// service: the billing text, a bounded candidate list and the scoring rubric.
package prompt

// Stacking describes how the signals in a category combine.
type Stacking string

const (
	// HighestOnly means at most one signal in the category counts.
	HighestOnly Stacking = "highest-only"
	// Additive means every applicable signal in the category counts.
	Additive Stacking = "additive"
)

// Signal is one weighted piece of evidence in the rubric.
type Signal struct {
	Key     string
	Label   string
	Points  int
	Example string
}

// Category groups signals that share a stacking rule.
type Category struct {
	Name     string
	Heading  string
	Stacking Stacking
	Signals  []Signal
}

// MaxPoints returns the most a category can contribute.
func (c Category) MaxPoints() int {
	total, best := 0, 0
	for _, s := range c.Signals {
		total += s.Points
		if s.Points > best {
			best = s.Points
		}
	}
	if c.Stacking == HighestOnly {
		return best
	}
	return total
}

// Band is a named confidence range. Max is inclusive.
type Band struct {
	Min   int
	Max   int
	Label string
}

// Rubric is the fixed scoring table. The weights are part of the audit trail
// for every run and must not be tuned per request.
var Rubric = []Category{
	{
		Name:     "identity",
		Heading:  "EXACT MATCH SIGNALS",
		Stacking: HighestOnly,
		Signals: []Signal{
			{Key: "exact_unit", Label: "Exact unit match", Points: 50, Example: `"Unit 5996" matches "Unit 5996"`},
			{Key: "exact_address", Label: "Exact address match", Points: 50, Example: `"5878 Southern Ave" matches "5878 Southern Ave"`},
			{Key: "building_identifier", Label: "Building identifier", Points: 45, Example: `"Building A" matches "Building A"`},
			{Key: "property_name", Label: "Property name match", Points: 45, Example: `"New Endeavor" matches "New Endeavor Women's Shelter"`},
		},
	},
	{
		Name:     "amount",
		Heading:  "AMOUNT SIGNALS",
		Stacking: Additive,
		Signals: []Signal{
			{Key: "exact_amount", Label: "Exact amount", Points: 30, Example: "$450.00 = $450.00"},
			{Key: "close_amount", Label: "Close amount (10-15% diff)", Points: 20, Example: "$450 ≈ $425-475"},
			{Key: "rough_amount", Label: "Rough amount (20-30% diff)", Points: 10, Example: "$450 ≈ $350-550"},
		},
	},
	{
		Name:     "job_type",
		Heading:  "JOB TYPE SIGNALS",
		Stacking: Additive,
		Signals: []Signal{
			{Key: "exact_job", Label: "Exact job description", Points: 15, Example: `"drain backup" matches "back up in the unit"`},
			{Key: "job_category", Label: "Job category match", Points: 10, Example: `"plumbing" matches "Plumbing There is a back up"`},
			{Key: "general_work", Label: "General work type", Points: 5, Example: `"repair" matches "repaired, plastered and painted"`},
		},
	},
	{
		Name:     "location",
		Heading:  "LOCATION SIGNALS",
		Stacking: Additive,
		Signals: []Signal{
			{Key: "address_fragment", Label: "Address fragment", Points: 15, Example: `"56th St" partially matches "5878 Southern Ave"`},
			{Key: "general_area", Label: "General area", Points: 5, Example: `"SE DC" matches "Washington DC 20019"`},
		},
	},
}

// Bands lists the confidence bands from highest to lowest.
var Bands = []Band{
	{Min: 85, Max: 100, Label: "Very high confidence (auto-accept quality)"},
	{Min: 70, Max: 84, Label: "High confidence (likely correct)"},
	{Min: 50, Max: 69, Label: "Medium confidence (review recommended)"},
	{Min: 0, Max: 49, Label: "Low confidence (excluded from matches)"},
}

// MatchThreshold is the lowest blended score reported as a match.
const MatchThreshold = 50
