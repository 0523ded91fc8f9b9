// Package rag orchestrates the answer pipeline: retrieve, prompt, generate,
// judge, cost.
package rag

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reciperag/internal/domain"
	"github.com/kailas-cloud/reciperag/internal/domain/search/mode"
	"github.com/kailas-cloud/reciperag/internal/metrics"
)

// Service runs the synchronous answer pipeline. All collaborators are
// injected at construction; the service itself holds no invocation-scoped
// state, so concurrent Answer calls are independent.
type Service struct {
	embed   Embedder
	recipes Retriever
	gen     Generator
	eval    Evaluator
	cost    CostEstimator
	logger  *zap.Logger
}

// New creates the pipeline orchestrator.
func New(
	embed Embedder, recipes Retriever, gen Generator,
	eval Evaluator, cost CostEstimator, logger *zap.Logger,
) *Service {
	return &Service{
		embed:   embed,
		recipes: recipes,
		gen:     gen,
		eval:    eval,
		cost:    cost,
		logger:  logger,
	}
}

// Answer runs the full pipeline for one query. Every call recomputes
// everything from scratch; any component failure aborts the pipeline and
// partial results are discarded. The single designed-in degradation is the
// evaluator's UNKNOWN verdict on malformed judge output.
func (s *Service) Answer(
	ctx context.Context, query string, choice domain.ModelChoice, m mode.Mode,
) (domain.AnswerRecord, error) {
	start := time.Now()

	record, err := s.answer(ctx, query, choice, m)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.PipelineRequestsTotal.WithLabelValues(choice.String(), string(m), status).Inc()
	metrics.PipelineDuration.WithLabelValues(choice.String(), string(m)).Observe(time.Since(start).Seconds())

	return record, err
}

func (s *Service) answer(
	ctx context.Context, query string, choice domain.ModelChoice, m mode.Mode,
) (domain.AnswerRecord, error) {
	var (
		docs []domain.RecipeDocument
		err  error
	)

	switch m {
	case mode.Vector:
		var emb domain.EmbeddingResult
		emb, err = s.embed.Embed(ctx, query)
		if err != nil {
			return domain.AnswerRecord{}, fmt.Errorf("encode query: %w", err)
		}
		docs, err = s.recipes.SearchKNN(ctx, emb.Embedding)
	case mode.Text:
		docs, err = s.recipes.SearchText(ctx, query)
	default:
		return domain.AnswerRecord{}, fmt.Errorf("unsupported search mode: %s", m)
	}
	if err != nil {
		return domain.AnswerRecord{}, fmt.Errorf("retrieve recipes: %w", err)
	}

	prompt := BuildPrompt(query, docs)

	gen, err := s.gen.Generate(ctx, choice, domain.UserMessage(prompt))
	if err != nil {
		return domain.AnswerRecord{}, fmt.Errorf("generate answer: %w", err)
	}

	evaluation, err := s.eval.Evaluate(ctx, query, gen.Answer)
	if err != nil {
		return domain.AnswerRecord{}, fmt.Errorf("evaluate answer: %w", err)
	}

	cost := s.cost.Estimate(choice, gen.Usage)

	recordTokenMetrics(choice, gen.Usage, evaluation.Usage, cost)

	s.logger.Info("answer pipeline complete",
		zap.String("model", choice.String()),
		zap.String("mode", string(m)),
		zap.Int("documents", len(docs)),
		zap.String("relevance", string(evaluation.Label)),
		zap.Duration("generation_latency", gen.Latency),
		zap.Int("total_tokens", gen.Usage.TotalTokens+evaluation.Usage.TotalTokens),
	)

	return domain.AnswerRecord{
		Answer:               gen.Answer,
		ResponseTime:         gen.Latency,
		Relevance:            evaluation.Label,
		RelevanceExplanation: evaluation.Explanation,
		ModelUsed:            choice.String(),
		Usage:                gen.Usage,
		EvalUsage:            evaluation.Usage,
		Cost:                 cost,
	}, nil
}

func recordTokenMetrics(choice domain.ModelChoice, main, eval domain.TokenUsage, cost float64) {
	model := choice.String()
	metrics.GenerationTokensTotal.WithLabelValues(model, "answer", "prompt").Add(float64(main.PromptTokens))
	metrics.GenerationTokensTotal.WithLabelValues(model, "answer", "completion").Add(float64(main.CompletionTokens))
	metrics.GenerationTokensTotal.WithLabelValues(model, "judge", "prompt").Add(float64(eval.PromptTokens))
	metrics.GenerationTokensTotal.WithLabelValues(model, "judge", "completion").Add(float64(eval.CompletionTokens))
	if cost > 0 {
		metrics.GenerationCostTotal.WithLabelValues(model).Add(cost)
	}
}
