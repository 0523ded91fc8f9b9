// Package eval judges answer relevance with a second, lightweight model call.
package eval

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reciperag/internal/domain"
	"github.com/kailas-cloud/reciperag/internal/metrics"
)

const judgePromptTemplate = `You are an expert evaluator for a Retrieval-Augmented Generation (RAG) system.
Your task is to analyze the relevance of the generated answer to the given question.
Based on the relevance of the generated answer, you will classify it
as "NON_RELEVANT", "PARTLY_RELEVANT", or "RELEVANT".

Here is the data for evaluation:

Question: %s
Generated Answer: %s

Please analyze the content and context of the generated answer in relation to the question
and provide your evaluation in parsable JSON without using code blocks:

{
  "Relevance": "NON_RELEVANT" | "PARTLY_RELEVANT" | "RELEVANT",
  "Explanation": "[Provide a brief explanation for your evaluation]"
}`

// parseFailureExplanation is returned verbatim whenever the judge output
// cannot be decoded.
const parseFailureExplanation = "Failed to parse evaluation"

// verdict is the strict shape the judge model is instructed to emit.
type verdict struct {
	Relevance   string `json:"Relevance"`
	Explanation string `json:"Explanation"`
}

// Service evaluates answer relevance against the original question.
type Service struct {
	gen    Generator
	judge  domain.ModelChoice
	logger *zap.Logger
}

// New creates a relevance evaluator with a fixed judge model.
func New(gen Generator, judge domain.ModelChoice, logger *zap.Logger) *Service {
	return &Service{gen: gen, judge: judge, logger: logger}
}

// Evaluate asks the judge model to classify the answer's relevance. A
// malformed verdict degrades to LabelUnknown instead of failing: the judgment
// is advisory and must not block returning the primary answer. Only a judge
// transport failure is returned as an error.
func (s *Service) Evaluate(ctx context.Context, question, answer string) (domain.Evaluation, error) {
	prompt := fmt.Sprintf(judgePromptTemplate, question, answer)

	res, err := s.gen.Generate(ctx, s.judge, domain.UserMessage(prompt))
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("judge call: %w", err)
	}

	label, explanation := parseVerdict(res.Answer)
	if label == domain.LabelUnknown {
		s.logger.Warn("unparseable judge verdict",
			zap.String("judge_model", s.judge.String()),
			zap.String("raw", res.Answer),
		)
	}
	metrics.RelevanceVerdictsTotal.WithLabelValues(string(label)).Inc()

	return domain.Evaluation{
		Label:       label,
		Explanation: explanation,
		Usage:       res.Usage,
	}, nil
}

// parseVerdict decodes the judge output. Malformed JSON, a missing field or
// a label outside the enum all map to (UNKNOWN, parseFailureExplanation).
func parseVerdict(raw string) (domain.Label, string) {
	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return domain.LabelUnknown, parseFailureExplanation
	}
	label, ok := domain.ParseLabel(v.Relevance)
	if !ok || v.Explanation == "" {
		return domain.LabelUnknown, parseFailureExplanation
	}
	return label, v.Explanation
}
