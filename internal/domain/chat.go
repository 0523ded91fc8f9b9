package domain

import "time"

// Chat message roles shared by all providers.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one entry of a chat-style generation request.
type Message struct {
	Role    string
	Content string
}

// UserMessage builds a single-message conversation, the only shape the
// pipeline sends.
func UserMessage(content string) []Message {
	return []Message{{Role: RoleUser, Content: content}}
}

// TokenUsage counts tokens consumed by a single model call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResult is one completed generation: answer text, token usage and
// wall-clock latency around the provider call.
type ChatResult struct {
	Answer  string
	Usage   TokenUsage
	Latency time.Duration
}
