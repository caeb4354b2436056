// Package pricing derives the USD cost of an LLM call from a static
// per-model price table. The table is versioned with the binary; price
// changes ship as deploys, so stored costs reflect the table that was
// live at ingest time.
package pricing

import "github.com/shopspring/decimal"

// Rates holds the USD price per 1000 tokens for one model.
type Rates struct {
	Prompt     decimal.Decimal
	Completion decimal.Decimal
}

var perThousand = decimal.NewFromInt(1000)

var table = map[string]Rates{
	"gpt-4":           {Prompt: dec("0.03"), Completion: dec("0.06")},
	"gpt-3.5-turbo":   {Prompt: dec("0.0015"), Completion: dec("0.002")},
	"claude-3-opus":   {Prompt: dec("0.015"), Completion: dec("0.075")},
	"claude-3-sonnet": {Prompt: dec("0.003"), Completion: dec("0.015")},
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Cost returns the USD cost of a call, rounded to six decimal places to
// match the stored column scale. Unknown models cost zero; pricing never
// rejects an event.
func Cost(model string, tokensPrompt, tokensCompletion int) decimal.Decimal {
	rates, ok := table[model]
	if !ok {
		return decimal.Zero
	}
	promptCost := decimal.NewFromInt(int64(tokensPrompt)).Div(perThousand).Mul(rates.Prompt)
	completionCost := decimal.NewFromInt(int64(tokensCompletion)).Div(perThousand).Mul(rates.Completion)
	return promptCost.Add(completionCost).Round(6)
}
