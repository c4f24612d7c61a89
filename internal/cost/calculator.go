// Package cost estimates the USD cost of provider calls.
package cost

// Rates holds pricing for each Claude model, keyed by model id.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Usage is the token count of one call.
type Usage struct {
	Input      int64
	Output     int64
	CacheWrite int64
	CacheRead  int64
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator. Models missing from rates fall back to
// DefaultRates.
func NewCalculator(rates Rates) *Calculator {
	merged := Rates{Anthropic: make(map[string]ModelRate)}
	for k, v := range DefaultRates().Anthropic {
		merged.Anthropic[k] = v
	}
	for k, v := range rates.Anthropic {
		merged.Anthropic[k] = v
	}
	return &Calculator{rates: merged}
}

// Known reports whether model has a rate.
func (c *Calculator) Known(model string) bool {
	_, ok := c.rates.Anthropic[model]
	return ok
}

// Claude computes the cost of a Claude call. Unknown models cost 0.
func (c *Calculator) Claude(model string, u Usage) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}
	in := (float64(u.Input) / 1e6) * rate.Input
	out := (float64(u.Output) / 1e6) * rate.Output
	cw := (float64(u.CacheWrite) / 1e6) * rate.Input * rate.CacheWriteMul
	cr := (float64(u.CacheRead) / 1e6) * rate.Input * rate.CacheReadMul
	return in + out + cw + cr
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-opus-4-6": {
				Input: 15.00, Output: 75.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
	}
}
