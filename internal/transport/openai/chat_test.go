package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reciperag/internal/domain"
)

// chatCompletionResponse mirrors the OpenAI-compatible chat completion response.
type chatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("model = %q, the provider prefix must be stripped", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", req.Messages)
		}

		resp := chatCompletionResponse{ID: "cmpl-1", Object: "chat.completion", Model: req.Model}
		resp.Choices = append(resp.Choices, struct {
			Index   int `json:"index"`
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		}{
			Message: struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			}{Role: "assistant", Content: content},
			FinishReason: "stop",
		})
		resp.Usage.PromptTokens = 120
		resp.Usage.CompletionTokens = 30
		resp.Usage.TotalTokens = 150

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func newChatClient(t *testing.T, baseURL string) *ChatClient {
	t.Helper()
	return NewChatClient(&ChatConfig{
		Providers: map[domain.Provider]ChatProviderConfig{
			domain.ProviderOpenAI: {APIKey: "test-key", BaseURL: baseURL},
		},
		Logger: zap.NewNop(),
	})
}

func TestChatClient_Generate(t *testing.T) {
	server := chatServer(t, "Sear the chicken, then braise it.")
	client := newChatClient(t, server.URL)
	choice := domain.MustModelChoice("openai/gpt-4o-mini")

	result, err := client.Generate(context.Background(), choice, domain.UserMessage("How do I cook chicken thighs?"))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if result.Answer != "Sear the chicken, then braise it." {
		t.Errorf("answer = %q", result.Answer)
	}
	if result.Usage.PromptTokens != 120 || result.Usage.CompletionTokens != 30 || result.Usage.TotalTokens != 150 {
		t.Errorf("usage = %+v", result.Usage)
	}
	if result.Latency <= 0 {
		t.Errorf("latency = %v, expected > 0", result.Latency)
	}
}

func TestChatClient_UnconfiguredProvider(t *testing.T) {
	server := chatServer(t, "unused")
	client := newChatClient(t, server.URL)
	choice := domain.MustModelChoice("ollama/llama3")

	_, err := client.Generate(context.Background(), choice, domain.UserMessage("q"))
	if !errors.Is(err, domain.ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestChatClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit_error"}}`))
	}))
	defer server.Close()

	client := newChatClient(t, server.URL)
	choice := domain.MustModelChoice("openai/gpt-4o-mini")

	_, err := client.Generate(context.Background(), choice, domain.UserMessage("q"))
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestChatClient_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletionResponse{ID: "cmpl-2", Object: "chat.completion"})
	}))
	defer server.Close()

	client := newChatClient(t, server.URL)
	choice := domain.MustModelChoice("openai/gpt-4o-mini")

	_, err := client.Generate(context.Background(), choice, domain.UserMessage("q"))
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}
