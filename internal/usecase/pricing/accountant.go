// Package pricing estimates the monetary cost of generation calls from a
// static per-model rate table.
package pricing

import "github.com/kailas-cloud/reciperag/internal/domain"

// Rate is the price per 1000 prompt and per 1000 completion tokens, in dollars.
type Rate struct {
	PromptPer1K     float64
	CompletionPer1K float64
}

// defaultRates is the compiled-in table, overridable from config.
var defaultRates = map[string]Rate{
	"openai/gpt-3.5-turbo": {PromptPer1K: 0.0015, CompletionPer1K: 0.002},
	"openai/gpt-4o":        {PromptPer1K: 0.03, CompletionPer1K: 0.06},
	"openai/gpt-4o-mini":   {PromptPer1K: 0.03, CompletionPer1K: 0.06},
}

// Accountant maps a model choice and token usage to a cost estimate.
type Accountant struct {
	rates map[string]Rate
}

// New creates a cost accountant. Overrides are keyed by the full
// "<provider>/<model>" string and take precedence over the built-in table.
func New(overrides map[string]Rate) *Accountant {
	rates := make(map[string]Rate, len(defaultRates)+len(overrides))
	for k, v := range defaultRates {
		rates[k] = v
	}
	for k, v := range overrides {
		rates[k] = v
	}
	return &Accountant{rates: rates}
}

// Estimate returns the estimated cost in dollars. Locally hosted providers
// and model identifiers absent from the rate table cost exactly zero; this
// undercounts unknown paid models, a documented approximation rather than an
// error condition.
func (a *Accountant) Estimate(choice domain.ModelChoice, usage domain.TokenUsage) float64 {
	if choice.Provider() == domain.ProviderOllama {
		return 0
	}
	rate, ok := a.rates[choice.String()]
	if !ok {
		return 0
	}
	return (float64(usage.PromptTokens)*rate.PromptPer1K +
		float64(usage.CompletionTokens)*rate.CompletionPer1K) / 1000
}
