// Package conversation persists answered questions and user feedback in
// Postgres. The pipeline itself never writes here; the HTTP layer does,
// fire-and-forget, after the pipeline returns.
package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kailas-cloud/reciperag/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id                     TEXT PRIMARY KEY,
	question               TEXT NOT NULL,
	answer                 TEXT NOT NULL,
	model_used             TEXT NOT NULL,
	response_time_ms       BIGINT NOT NULL,
	relevance              TEXT NOT NULL,
	relevance_explanation  TEXT NOT NULL,
	prompt_tokens          INTEGER NOT NULL,
	completion_tokens      INTEGER NOT NULL,
	total_tokens           INTEGER NOT NULL,
	eval_prompt_tokens     INTEGER NOT NULL,
	eval_completion_tokens INTEGER NOT NULL,
	eval_total_tokens      INTEGER NOT NULL,
	openai_cost            DOUBLE PRECISION NOT NULL,
	created_at             TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback (
	id              SERIAL PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	feedback        INTEGER NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);`

// foreignKeyViolation is the Postgres error code for a missing referenced row.
const foreignKeyViolation = "23503"

// conversationRow is the flat table shape of a domain.Conversation.
type conversationRow struct {
	ID                   string    `db:"id"`
	Question             string    `db:"question"`
	Answer               string    `db:"answer"`
	ModelUsed            string    `db:"model_used"`
	ResponseTimeMs       int64     `db:"response_time_ms"`
	Relevance            string    `db:"relevance"`
	RelevanceExplanation string    `db:"relevance_explanation"`
	PromptTokens         int       `db:"prompt_tokens"`
	CompletionTokens     int       `db:"completion_tokens"`
	TotalTokens          int       `db:"total_tokens"`
	EvalPromptTokens     int       `db:"eval_prompt_tokens"`
	EvalCompletionTokens int       `db:"eval_completion_tokens"`
	EvalTotalTokens      int       `db:"eval_total_tokens"`
	OpenAICost           float64   `db:"openai_cost"`
	CreatedAt            time.Time `db:"created_at"`
}

// Store is the conversation and feedback repository.
type Store struct {
	db *sqlx.DB
}

// New creates a store over an established connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string, maxOpenConns int) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	return New(db), nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close postgres: %w", err)
	}
	return nil
}

// InitSchema creates the tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveConversation stores one answered question.
func (s *Store) SaveConversation(ctx context.Context, conv domain.Conversation) error {
	row := toRow(conv)
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO conversations (
			id, question, answer, model_used, response_time_ms,
			relevance, relevance_explanation,
			prompt_tokens, completion_tokens, total_tokens,
			eval_prompt_tokens, eval_completion_tokens, eval_total_tokens,
			openai_cost, created_at
		) VALUES (
			:id, :question, :answer, :model_used, :response_time_ms,
			:relevance, :relevance_explanation,
			:prompt_tokens, :completion_tokens, :total_tokens,
			:eval_prompt_tokens, :eval_completion_tokens, :eval_total_tokens,
			:openai_cost, :created_at
		)`, row)
	if err != nil {
		return fmt.Errorf("save conversation %s: %w", conv.ID, err)
	}
	return nil
}

// SaveFeedback records a +1/-1 score for a conversation.
func (s *Store) SaveFeedback(ctx context.Context, conversationID string, score int, ts time.Time) error {
	if score != 1 && score != -1 {
		return fmt.Errorf("score %d: %w", score, domain.ErrInvalidFeedback)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (conversation_id, feedback, created_at)
		VALUES ($1, $2, $3)`, conversationID, score, ts)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return fmt.Errorf("conversation %s: %w", conversationID, domain.ErrConversationNotFound)
		}
		return fmt.Errorf("save feedback for %s: %w", conversationID, err)
	}
	return nil
}

// Recent returns the latest conversations, optionally filtered by relevance
// label, newest first.
func (s *Store) Recent(ctx context.Context, limit int, relevance domain.Label) ([]domain.Conversation, error) {
	if limit <= 0 {
		limit = 5
	}

	var (
		rows []conversationRow
		err  error
	)
	if relevance != "" {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT * FROM conversations
			WHERE relevance = $1
			ORDER BY created_at DESC LIMIT $2`, string(relevance), limit)
	} else {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT * FROM conversations
			ORDER BY created_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list recent conversations: %w", err)
	}

	convs := make([]domain.Conversation, len(rows))
	for i, row := range rows {
		convs[i] = fromRow(row)
	}
	return convs, nil
}

// FeedbackStats returns total thumbs-up and thumbs-down counts.
func (s *Store) FeedbackStats(ctx context.Context) (up, down int64, err error) {
	row := s.db.QueryRowxContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN feedback > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN feedback < 0 THEN 1 ELSE 0 END), 0)
		FROM feedback`)
	if err := row.Scan(&up, &down); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, 0, fmt.Errorf("feedback stats: %w", err)
	}
	return up, down, nil
}

func toRow(conv domain.Conversation) conversationRow {
	return conversationRow{
		ID:                   conv.ID,
		Question:             conv.Question,
		Answer:               conv.Record.Answer,
		ModelUsed:            conv.Record.ModelUsed,
		ResponseTimeMs:       conv.Record.ResponseTime.Milliseconds(),
		Relevance:            string(conv.Record.Relevance),
		RelevanceExplanation: conv.Record.RelevanceExplanation,
		PromptTokens:         conv.Record.Usage.PromptTokens,
		CompletionTokens:     conv.Record.Usage.CompletionTokens,
		TotalTokens:          conv.Record.Usage.TotalTokens,
		EvalPromptTokens:     conv.Record.EvalUsage.PromptTokens,
		EvalCompletionTokens: conv.Record.EvalUsage.CompletionTokens,
		EvalTotalTokens:      conv.Record.EvalUsage.TotalTokens,
		OpenAICost:           conv.Record.Cost,
		CreatedAt:            conv.CreatedAt,
	}
}

func fromRow(row conversationRow) domain.Conversation {
	return domain.Conversation{
		ID:        row.ID,
		Question:  row.Question,
		CreatedAt: row.CreatedAt,
		Record: domain.AnswerRecord{
			Answer:               row.Answer,
			ModelUsed:            row.ModelUsed,
			ResponseTime:         time.Duration(row.ResponseTimeMs) * time.Millisecond,
			Relevance:            domain.Label(row.Relevance),
			RelevanceExplanation: row.RelevanceExplanation,
			Usage: domain.TokenUsage{
				PromptTokens:     row.PromptTokens,
				CompletionTokens: row.CompletionTokens,
				TotalTokens:      row.TotalTokens,
			},
			EvalUsage: domain.TokenUsage{
				PromptTokens:     row.EvalPromptTokens,
				CompletionTokens: row.EvalCompletionTokens,
				TotalTokens:      row.EvalTotalTokens,
			},
			Cost: row.OpenAICost,
		},
	}
}
