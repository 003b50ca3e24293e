package cost

import "go.uber.org/zap"

// Rates holds per-model token pricing keyed by model id.
type Rates struct {
	Models map[string]ModelRate `yaml:"models" mapstructure:"models"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates. Models missing
// from rates fall back to DefaultRates.
func NewCalculator(rates Rates) *Calculator {
	merged := DefaultRates()
	for model, r := range rates.Models {
		merged.Models[model] = r
	}
	return &Calculator{rates: merged}
}

// Estimate returns the USD cost of one call. Unknown models cost 0.
func (c *Calculator) Estimate(model string, input, output int64) float64 {
	rate, ok := c.rates.Models[model]
	if !ok {
		return 0
	}
	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	return inCost + outCost
}

// Log records token usage and estimated cost for a call.
func (c *Calculator) Log(provider, model, stage string, input, output int64) float64 {
	usd := c.Estimate(model, input, output)
	zap.L().Info("cost attribution",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.String("stage", stage),
		zap.Int64("input_tokens", input),
		zap.Int64("output_tokens", output),
		zap.Float64("estimated_cost_usd", usd),
	)
	return usd
}

// DefaultRates returns list prices for the catalog models.
func DefaultRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"claude-opus-4-6":            {Input: 15.00, Output: 75.00},
			"claude-opus-4-5-20250929":   {Input: 5.00, Output: 25.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
			"claude-sonnet-4-20250514":   {Input: 3.00, Output: 15.00},
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},

			"gpt-5.2":      {Input: 1.75, Output: 14.00},
			"gpt-5.1":      {Input: 1.25, Output: 10.00},
			"gpt-5":        {Input: 1.25, Output: 10.00},
			"gpt-4.1":      {Input: 2.00, Output: 8.00},
			"gpt-4.1-mini": {Input: 0.40, Output: 1.60},
			"gpt-4.1-nano": {Input: 0.10, Output: 0.40},
			"o3":           {Input: 2.00, Output: 8.00},
			"o4-mini":      {Input: 1.10, Output: 4.40},

			"gemini-2.5-pro":   {Input: 1.25, Output: 10.00},
			"gemini-2.5-flash": {Input: 0.30, Output: 2.50},
			"gemini-2.0-flash": {Input: 0.10, Output: 0.40},
		},
	}
}
