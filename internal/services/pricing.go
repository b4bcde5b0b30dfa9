package services

import (
	"strings"

	"github.com/outreachforge/backend/pkg/logger"
)

// TokenUsage holds the token counts reported by a vendor for one call.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
}

func (u TokenUsage) Total() int {
	return u.Prompt + u.Completion
}

// modelRate is USD per million tokens.
type modelRate struct {
	input  float64
	output float64
}

var modelRates = map[string]modelRate{
	"gpt-4o":       {2.50, 10.00},
	"gpt-4o-mini":  {0.15, 0.60},
	"gpt-4.1":      {2.00, 8.00},
	"gpt-4.1-mini": {0.40, 1.60},
	"o3":           {2.00, 8.00},
	"o3-mini":      {1.10, 4.40},

	"grok-3":             {3.00, 15.00},
	"grok-3-mini":        {0.30, 0.50},
	"grok-2-vision-1212": {2.00, 10.00},

	"claude-opus-4-1":           {15.00, 75.00},
	"claude-sonnet-4-20250514":  {3.00, 15.00},
	"claude-3-5-haiku-20241022": {0.80, 4.00},

	"gemini-2.5-pro":   {1.25, 10.00},
	"gemini-2.5-flash": {0.30, 2.50},
}

// CalculateCost maps (model, usage) to a dollar figure from the static rate
// table. Local ollama models cost nothing. Any other unknown model yields
// zero with a warning so the gap is visible without failing the call.
func CalculateCost(model string, usage TokenUsage) float64 {
	if strings.HasPrefix(model, "ollama/") {
		return 0
	}

	rate, ok := modelRates[model]
	if !ok {
		logger.Warnf("[Pricing] No rate for model %q, reporting zero cost", model)
		return 0
	}

	return float64(usage.Prompt)/1e6*rate.input + float64(usage.Completion)/1e6*rate.output
}
