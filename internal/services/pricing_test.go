package services

import (
	"math"
	"testing"
)

func TestCalculateCost_KnownModels(t *testing.T) {
	tests := []struct {
		name     string
		model    string
		usage    TokenUsage
		expected float64
	}{
		{
			name:     "gpt-4o one million each",
			model:    "gpt-4o",
			usage:    TokenUsage{Prompt: 1_000_000, Completion: 1_000_000},
			expected: 12.50,
		},
		{
			name:     "gpt-4o-mini small call",
			model:    "gpt-4o-mini",
			usage:    TokenUsage{Prompt: 2000, Completion: 500},
			expected: 2000.0/1e6*0.15 + 500.0/1e6*0.60,
		},
		{
			name:     "claude sonnet",
			model:    "claude-sonnet-4-20250514",
			usage:    TokenUsage{Prompt: 10000, Completion: 2000},
			expected: 10000.0/1e6*3.00 + 2000.0/1e6*15.00,
		},
		{
			name:     "grok-3",
			model:    "grok-3",
			usage:    TokenUsage{Prompt: 1000, Completion: 1000},
			expected: 1000.0/1e6*3.00 + 1000.0/1e6*15.00,
		},
		{
			name:     "zero usage is zero cost",
			model:    "gpt-4o",
			usage:    TokenUsage{},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateCost(tt.model, tt.usage)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("CalculateCost() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestCalculateCost_UnknownModelIsZero(t *testing.T) {
	got := CalculateCost("totally-fake-model", TokenUsage{Prompt: 1000, Completion: 1000})
	if got != 0 {
		t.Errorf("unknown model cost = %v, expected 0", got)
	}
}

func TestCalculateCost_OllamaIsFree(t *testing.T) {
	got := CalculateCost("ollama/llama3.1", TokenUsage{Prompt: 50000, Completion: 20000})
	if got != 0 {
		t.Errorf("ollama model cost = %v, expected 0", got)
	}
}

func TestCalculateCost_NonNegative(t *testing.T) {
	for model := range modelRates {
		cost := CalculateCost(model, TokenUsage{Prompt: 12345, Completion: 6789})
		if cost < 0 {
			t.Errorf("cost for %s is negative: %v", model, cost)
		}
	}
}

func TestTokenUsage_Total(t *testing.T) {
	u := TokenUsage{Prompt: 100, Completion: 50}
	if u.Total() != 150 {
		t.Errorf("Total() = %d, expected 150", u.Total())
	}
}

func TestEveryPricedModelHasCaps(t *testing.T) {
	for model := range modelRates {
		if _, err := CapsForModel(model); err != nil {
			t.Errorf("priced model %q has no capability entry: %v", model, err)
		}
	}
}
