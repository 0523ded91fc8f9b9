// Package chi exposes the answer pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/reciperag/internal/domain"
	"github.com/kailas-cloud/reciperag/internal/domain/search/mode"
	"github.com/kailas-cloud/reciperag/internal/version"
)

// AnswerService runs the answer pipeline.
type AnswerService interface {
	Answer(ctx context.Context, query string, choice domain.ModelChoice, m mode.Mode) (domain.AnswerRecord, error)
}

// ConversationStore persists conversations and feedback.
type ConversationStore interface {
	SaveConversation(ctx context.Context, conv domain.Conversation) error
	SaveFeedback(ctx context.Context, conversationID string, score int, ts time.Time) error
	Recent(ctx context.Context, limit int, relevance domain.Label) ([]domain.Conversation, error)
	FeedbackStats(ctx context.Context) (up, down int64, err error)
}

// Server handles the ask/feedback API.
type Server struct {
	rag    AnswerService
	convs  ConversationStore
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(rag AnswerService, convs ConversationStore, logger *zap.Logger) *Server {
	return &Server{rag: rag, convs: convs, logger: logger}
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/v1/ask", s.handleAsk)
	r.Post("/api/v1/feedback", s.handleFeedback)
	r.Get("/api/v1/conversations", s.handleRecentConversations)
	r.Get("/api/v1/feedback/stats", s.handleFeedbackStats)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

type askRequest struct {
	Question   string `json:"question"`
	Model      string `json:"model"`
	SearchMode string `json:"search_mode"`
}

type askResponse struct {
	ConversationID       string  `json:"conversation_id"`
	Answer               string  `json:"answer"`
	ResponseTimeMs       int64   `json:"response_time_ms"`
	Relevance            string  `json:"relevance"`
	RelevanceExplanation string  `json:"relevance_explanation"`
	ModelUsed            string  `json:"model_used"`
	PromptTokens         int     `json:"prompt_tokens"`
	CompletionTokens     int     `json:"completion_tokens"`
	TotalTokens          int     `json:"total_tokens"`
	EvalPromptTokens     int     `json:"eval_prompt_tokens"`
	EvalCompletionTokens int     `json:"eval_completion_tokens"`
	EvalTotalTokens      int     `json:"eval_total_tokens"`
	Cost                 float64 `json:"cost"`
}

type feedbackRequest struct {
	ConversationID string `json:"conversation_id"`
	Feedback       int    `json:"feedback"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Question is required")
		return
	}

	choice, err := domain.ParseModelChoice(req.Model)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unsupported_provider", err.Error())
		return
	}

	m := mode.Mode(req.SearchMode)
	if m == "" {
		m = mode.Text
	}
	if !m.IsValid() {
		writeError(w, http.StatusBadRequest, "validation_failed", "search_mode must be \"text\" or \"vector\"")
		return
	}

	record, err := s.rag.Answer(r.Context(), req.Question, choice, m)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	conv := domain.Conversation{
		ID:        uuid.NewString(),
		Question:  req.Question,
		Record:    record,
		CreatedAt: time.Now().UTC(),
	}
	// Fire-and-forget: a persistence failure must not lose the answer.
	if err := s.convs.SaveConversation(r.Context(), conv); err != nil {
		s.logger.Warn("failed to save conversation",
			zap.String("conversation_id", conv.ID),
			zap.Error(err),
		)
	}

	writeJSON(w, http.StatusOK, askResponse{
		ConversationID:       conv.ID,
		Answer:               record.Answer,
		ResponseTimeMs:       record.ResponseTime.Milliseconds(),
		Relevance:            string(record.Relevance),
		RelevanceExplanation: record.RelevanceExplanation,
		ModelUsed:            record.ModelUsed,
		PromptTokens:         record.Usage.PromptTokens,
		CompletionTokens:     record.Usage.CompletionTokens,
		TotalTokens:          record.Usage.TotalTokens,
		EvalPromptTokens:     record.EvalUsage.PromptTokens,
		EvalCompletionTokens: record.EvalUsage.CompletionTokens,
		EvalTotalTokens:      record.EvalUsage.TotalTokens,
		Cost:                 record.Cost,
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "conversation_id is required")
		return
	}

	err := s.convs.SaveFeedback(r.Context(), req.ConversationID, req.Feedback, time.Now().UTC())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

type conversationEntry struct {
	ConversationID string    `json:"conversation_id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	Relevance      string    `json:"relevance"`
	ModelUsed      string    `json:"model_used"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Server) handleRecentConversations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "limit must be a positive integer")
			return
		}
		limit = n
	}

	relevance := domain.Label(r.URL.Query().Get("relevance"))
	if relevance != "" && !relevance.IsValid() {
		writeError(w, http.StatusBadRequest, "validation_failed", "unknown relevance label")
		return
	}

	convs, err := s.convs.Recent(r.Context(), limit, relevance)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	entries := make([]conversationEntry, len(convs))
	for i, conv := range convs {
		entries[i] = conversationEntry{
			ConversationID: conv.ID,
			Question:       conv.Question,
			Answer:         conv.Record.Answer,
			Relevance:      string(conv.Record.Relevance),
			ModelUsed:      conv.Record.ModelUsed,
			CreatedAt:      conv.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": entries})
}

func (s *Server) handleFeedbackStats(w http.ResponseWriter, r *http.Request) {
	up, down, err := s.convs.FeedbackStats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"thumbs_up":   up,
		"thumbs_down": down,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// handleDomainError maps sentinel errors to status codes. The pipeline
// performs no retries or fallbacks; presenting the failure is this layer's
// whole job.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedProvider):
		writeError(w, http.StatusBadRequest, "unsupported_provider", err.Error())
	case errors.Is(err, domain.ErrInvalidFeedback):
		writeError(w, http.StatusBadRequest, "invalid_feedback", err.Error())
	case errors.Is(err, domain.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "conversation_not_found", err.Error())
	case errors.Is(err, domain.ErrEncoding):
		writeError(w, http.StatusBadGateway, "encoding_failed", err.Error())
	case errors.Is(err, domain.ErrRetrieval):
		writeError(w, http.StatusBadGateway, "retrieval_failed", err.Error())
	case errors.Is(err, domain.ErrGeneration):
		writeError(w, http.StatusBadGateway, "generation_failed", err.Error())
	default:
		s.logger.Error("unhandled pipeline error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	if body == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
