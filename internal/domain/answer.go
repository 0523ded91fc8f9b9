package domain

import "time"

// Evaluation is the judge verdict for one generated answer.
type Evaluation struct {
	Label       Label
	Explanation string
	Usage       TokenUsage
}

// AnswerRecord is the terminal artifact of one pipeline invocation. The
// pipeline holds no reference to it after returning; the caller owns it and
// decides about persistence and display.
type AnswerRecord struct {
	Answer               string
	ResponseTime         time.Duration
	Relevance            Label
	RelevanceExplanation string
	ModelUsed            string
	Usage                TokenUsage
	EvalUsage            TokenUsage
	Cost                 float64
}

// Conversation couples a question with the answer record produced for it.
type Conversation struct {
	ID        string
	Question  string
	Record    AnswerRecord
	CreatedAt time.Time
}
