package rag

import (
	"context"

	"github.com/kailas-cloud/reciperag/internal/domain"
)

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Retriever fetches candidate recipes from the search index.
type Retriever interface {
	SearchText(ctx context.Context, query string) ([]domain.RecipeDocument, error)
	SearchKNN(ctx context.Context, vector []float32) ([]domain.RecipeDocument, error)
}

// Generator dispatches a chat completion to a provider.
type Generator interface {
	Generate(ctx context.Context, choice domain.ModelChoice, messages []domain.Message) (domain.ChatResult, error)
}

// Evaluator judges an answer's relevance to its question.
type Evaluator interface {
	Evaluate(ctx context.Context, question, answer string) (domain.Evaluation, error)
}

// CostEstimator maps a model choice and token usage to a dollar estimate.
type CostEstimator interface {
	Estimate(choice domain.ModelChoice, usage domain.TokenUsage) float64
}
