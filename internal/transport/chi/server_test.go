package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/reciperag/internal/domain"
	"github.com/kailas-cloud/reciperag/internal/domain/search/mode"
)

type mockAnswerService struct {
	record    domain.AnswerRecord
	err       error
	lastQuery string
	lastMode  mode.Mode
	calls     int
}

func (m *mockAnswerService) Answer(
	_ context.Context, query string, _ domain.ModelChoice, md mode.Mode,
) (domain.AnswerRecord, error) {
	m.calls++
	m.lastQuery = query
	m.lastMode = md
	return m.record, m.err
}

type mockConversationStore struct {
	saveConvErr     error
	saveFeedbackErr error
	savedConv       domain.Conversation
	convSaved       bool
	lastFeedbackID  string
	lastScore       int
	recent          []domain.Conversation
	recentErr       error
	lastLimit       int
	lastRelevance   domain.Label
	up, down        int64
	statsErr        error
}

func (m *mockConversationStore) SaveConversation(_ context.Context, conv domain.Conversation) error {
	m.convSaved = true
	m.savedConv = conv
	return m.saveConvErr
}

func (m *mockConversationStore) SaveFeedback(_ context.Context, id string, score int, _ time.Time) error {
	m.lastFeedbackID = id
	m.lastScore = score
	return m.saveFeedbackErr
}

func (m *mockConversationStore) Recent(_ context.Context, limit int, relevance domain.Label) ([]domain.Conversation, error) {
	m.lastLimit = limit
	m.lastRelevance = relevance
	return m.recent, m.recentErr
}

func (m *mockConversationStore) FeedbackStats(_ context.Context) (int64, int64, error) {
	return m.up, m.down, m.statsErr
}

func newTestServer(t *testing.T) (*chi.Mux, *mockAnswerService, *mockConversationStore) {
	t.Helper()
	rag := &mockAnswerService{record: domain.AnswerRecord{
		Answer:               "Try a simple carbonara.",
		ResponseTime:         1200 * time.Millisecond,
		Relevance:            domain.LabelRelevant,
		RelevanceExplanation: "direct answer",
		ModelUsed:            "openai/gpt-4o-mini",
		Usage:                domain.TokenUsage{PromptTokens: 100, CompletionTokens: 25, TotalTokens: 125},
		EvalUsage:            domain.TokenUsage{PromptTokens: 40, CompletionTokens: 10, TotalTokens: 50},
		Cost:                 0.0045,
	}}
	convs := &mockConversationStore{}

	r := chi.NewRouter()
	NewServer(rag, convs, zap.NewNop()).Register(r)
	return r, rag, convs
}

func doRequest(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleAsk(t *testing.T) {
	r, rag, convs := newTestServer(t)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/ask",
		`{"question": "What should I cook tonight?", "model": "openai/gpt-4o-mini", "search_mode": "vector"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["answer"] != "Try a simple carbonara." {
		t.Errorf("answer = %v", resp["answer"])
	}
	if resp["relevance"] != "RELEVANT" {
		t.Errorf("relevance = %v", resp["relevance"])
	}
	if resp["response_time_ms"] != float64(1200) {
		t.Errorf("response_time_ms = %v", resp["response_time_ms"])
	}
	if resp["cost"] != 0.0045 {
		t.Errorf("cost = %v", resp["cost"])
	}
	if resp["conversation_id"] == "" {
		t.Error("conversation_id must be set")
	}

	if rag.lastMode != mode.Vector {
		t.Errorf("mode = %q", rag.lastMode)
	}
	if !convs.convSaved {
		t.Error("conversation must be persisted")
	}
	if convs.savedConv.ID != resp["conversation_id"] {
		t.Error("persisted conversation ID must match the response")
	}
}

func TestHandleAsk_DefaultsToTextMode(t *testing.T) {
	r, rag, _ := newTestServer(t)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/ask",
		`{"question": "q", "model": "openai/gpt-4o-mini"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rag.lastMode != mode.Text {
		t.Errorf("mode = %q, want text default", rag.lastMode)
	}
}

func TestHandleAsk_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{
			name:     "empty question",
			body:     `{"question": "", "model": "openai/gpt-4o-mini"}`,
			wantCode: "validation_failed",
		},
		{
			name:     "unknown provider",
			body:     `{"question": "q", "model": "anthropic/claude"}`,
			wantCode: "unsupported_provider",
		},
		{
			name:     "missing slash",
			body:     `{"question": "q", "model": "gpt-4o-mini"}`,
			wantCode: "unsupported_provider",
		},
		{
			name:     "invalid mode",
			body:     `{"question": "q", "model": "openai/gpt-4o-mini", "search_mode": "hybrid"}`,
			wantCode: "validation_failed",
		},
		{
			name:     "malformed json",
			body:     `{"question": `,
			wantCode: "bad_request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, rag, _ := newTestServer(t)

			rec := doRequest(t, r, http.MethodPost, "/api/v1/ask", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}

			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
			if rag.calls != 0 {
				t.Error("pipeline must not run on invalid input")
			}
		})
	}
}

func TestHandleAsk_PipelineErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "encoding", err: domain.ErrEncoding, wantStatus: http.StatusBadGateway},
		{name: "retrieval", err: domain.ErrRetrieval, wantStatus: http.StatusBadGateway},
		{name: "generation", err: domain.ErrGeneration, wantStatus: http.StatusBadGateway},
		{name: "unconfigured provider", err: domain.ErrUnsupportedProvider, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, rag, convs := newTestServer(t)
			rag.err = tt.err

			rec := doRequest(t, r, http.MethodPost, "/api/v1/ask",
				`{"question": "q", "model": "openai/gpt-4o-mini"}`)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if convs.convSaved {
				t.Error("failed pipelines must not be persisted")
			}
		})
	}
}

func TestHandleAsk_PersistenceFailureIsNotFatal(t *testing.T) {
	r, _, convs := newTestServer(t)
	convs.saveConvErr = domain.ErrRetrieval

	rec := doRequest(t, r, http.MethodPost, "/api/v1/ask",
		`{"question": "q", "model": "openai/gpt-4o-mini"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("a storage failure must not lose the answer, got %d", rec.Code)
	}
}

func TestHandleFeedback(t *testing.T) {
	r, _, convs := newTestServer(t)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/feedback",
		`{"conversation_id": "conv-1", "feedback": 1}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if convs.lastFeedbackID != "conv-1" || convs.lastScore != 1 {
		t.Errorf("persisted (%q, %d)", convs.lastFeedbackID, convs.lastScore)
	}
}

func TestHandleFeedback_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		storeErr   error
		wantStatus int
	}{
		{
			name:       "missing conversation id",
			body:       `{"feedback": 1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid score",
			body:       `{"conversation_id": "conv-1", "feedback": 5}`,
			storeErr:   domain.ErrInvalidFeedback,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown conversation",
			body:       `{"conversation_id": "nope", "feedback": 1}`,
			storeErr:   domain.ErrConversationNotFound,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, convs := newTestServer(t)
			convs.saveFeedbackErr = tt.storeErr

			rec := doRequest(t, r, http.MethodPost, "/api/v1/feedback", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandleRecentConversations(t *testing.T) {
	r, _, convs := newTestServer(t)
	convs.recent = []domain.Conversation{
		{
			ID:        "conv-9",
			Question:  "vegan dessert ideas?",
			CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			Record: domain.AnswerRecord{
				Answer:    "Try a coconut chia pudding.",
				Relevance: domain.LabelPartlyRelevant,
				ModelUsed: "openai/gpt-4o-mini",
			},
		},
	}

	rec := doRequest(t, r, http.MethodGet, "/api/v1/conversations?limit=3&relevance=PARTLY_RELEVANT", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if convs.lastLimit != 3 {
		t.Errorf("limit = %d", convs.lastLimit)
	}
	if convs.lastRelevance != domain.LabelPartlyRelevant {
		t.Errorf("relevance = %q", convs.lastRelevance)
	}

	var resp struct {
		Conversations []map[string]any `json:"conversations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Conversations) != 1 {
		t.Fatalf("len = %d", len(resp.Conversations))
	}
	if resp.Conversations[0]["conversation_id"] != "conv-9" {
		t.Errorf("entry = %v", resp.Conversations[0])
	}
}

func TestHandleRecentConversations_Validation(t *testing.T) {
	r, _, _ := newTestServer(t)

	for _, path := range []string{
		"/api/v1/conversations?limit=zero",
		"/api/v1/conversations?limit=-1",
		"/api/v1/conversations?relevance=GREAT",
	} {
		rec := doRequest(t, r, http.MethodGet, path, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
}

func TestHandleFeedbackStats(t *testing.T) {
	r, _, convs := newTestServer(t)
	convs.up, convs.down = 12, 3

	rec := doRequest(t, r, http.MethodGet, "/api/v1/feedback/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["thumbs_up"] != 12 || resp["thumbs_down"] != 3 {
		t.Errorf("stats = %v", resp)
	}
}

func TestHandleHealth(t *testing.T) {
	r, _, _ := newTestServer(t)

	rec := doRequest(t, r, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %q", resp["status"])
	}
}
