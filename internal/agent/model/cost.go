package model

import (
	"github.com/cloudwego/eino/schema"
)

// Pricing is the USD cost per 1M text tokens for a model.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// pricingTable covers the models this engine runs: the response model and
// the insight model, plus pro for ad-hoc experiments. Unknown models price
// at zero rather than guessing.
var pricingTable = map[string]Pricing{
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
	"gemini-2.5-pro":        {InputPerM: 1.25, OutputPerM: 10.00},
}

// CostEnabled reports whether per-call cost should be computed and logged.
func CostEnabled() bool {
	return true
}

// ResolvePricing returns the pricing for a model, zero when unknown.
func ResolvePricing(model string) Pricing {
	if p, ok := pricingTable[model]; ok {
		return p
	}
	return Pricing{}
}

// ComputeCost converts token usage to USD using per-1M pricing.
func ComputeCost(usage *schema.TokenUsage, p Pricing) (inputCost, outputCost, total float64) {
	if usage == nil {
		return 0, 0, 0
	}
	inputCost = p.InputPerM * float64(usage.PromptTokens) / 1_000_000.0
	outputCost = p.OutputPerM * float64(usage.CompletionTokens) / 1_000_000.0
	total = inputCost + outputCost
	return
}
