package eval

import (
	"context"

	"github.com/kailas-cloud/reciperag/internal/domain"
)

// Generator dispatches a chat completion to a provider.
type Generator interface {
	Generate(ctx context.Context, choice domain.ModelChoice, messages []domain.Message) (domain.ChatResult, error)
}
