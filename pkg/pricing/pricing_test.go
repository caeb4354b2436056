package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCost(t *testing.T) {
	tests := []struct {
		name             string
		model            string
		tokensPrompt     int
		tokensCompletion int
		expected         string
	}{
		{
			name:             "gpt-4 standard call",
			model:            "gpt-4",
			tokensPrompt:     1000,
			tokensCompletion: 500,
			expected:         "0.060000",
		},
		{
			name:             "gpt-3.5-turbo small call",
			model:            "gpt-3.5-turbo",
			tokensPrompt:     200,
			tokensCompletion: 100,
			expected:         "0.000500",
		},
		{
			name:             "claude-3-opus large call",
			model:            "claude-3-opus",
			tokensPrompt:     2000,
			tokensCompletion: 1000,
			expected:         "0.105000",
		},
		{
			name:             "claude-3-sonnet",
			model:            "claude-3-sonnet",
			tokensPrompt:     1000,
			tokensCompletion: 1000,
			expected:         "0.018000",
		},
		{
			name:             "unknown model costs zero",
			model:            "llama-7b",
			tokensPrompt:     5000,
			tokensCompletion: 5000,
			expected:         "0.000000",
		},
		{
			name:             "zero tokens cost zero",
			model:            "gpt-4",
			tokensPrompt:     0,
			tokensCompletion: 0,
			expected:         "0.000000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cost := Cost(tt.model, tt.tokensPrompt, tt.tokensCompletion)
			assert.Equal(t, tt.expected, cost.StringFixed(6))
		})
	}
}

func TestCostIsDeterministic(t *testing.T) {
	first := Cost("gpt-4", 123, 456)
	second := Cost("gpt-4", 123, 456)
	assert.True(t, first.Equal(second))
}

func TestCostExactDecimal(t *testing.T) {
	// 1 prompt token of gpt-3.5-turbo is 0.0000015 USD; rounding to the
	// stored scale of six places must not drift.
	cost := Cost("gpt-3.5-turbo", 1, 0)
	assert.True(t, cost.Equal(decimal.RequireFromString("0.000002")), "got %s", cost)
}
