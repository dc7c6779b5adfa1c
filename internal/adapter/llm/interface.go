// Package llm provides an abstraction for streaming chat-completion clients.
package llm

import (
	"context"

	"github.com/mateury/next-gen-consultant/internal/domain"
)

// StreamCallback is called for every non-empty content delta, in order.
// Returning an error aborts the stream.
type StreamCallback func(chunk string) error

// ChatRequest is one streaming completion over a conversation history.
type ChatRequest struct {
	Messages []domain.Message
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Client defines the streaming chat operation the conversation engine needs.
type Client interface {
	// StreamChat sends the history and delivers the reply chunk by chunk.
	StreamChat(ctx context.Context, req *ChatRequest, callback StreamCallback) (*Usage, error)
}

// Ensure implementations satisfy Client.
var (
	_ Client = (*OpenAIClient)(nil)
	_ Client = (*MockClient)(nil)
)
