package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mateury/next-gen-consultant/internal/domain"
)

// MockClient is an offline stand-in for a real model. It emits tool commands
// for recognizable input so the whole tool loop can be exercised without an API key.
type MockClient struct {
	chunkDelay time.Duration
}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{chunkDelay: 20 * time.Millisecond}
}

// StreamChat simulates a streaming response.
func (m *MockClient) StreamChat(ctx context.Context, req *ChatRequest, callback StreamCallback) (*Usage, error) {
	content := m.generateMockResponse(req.Messages)

	for _, chunk := range splitIntoChunks(content, 10) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.chunkDelay):
		}
		if err := callback(chunk); err != nil {
			return nil, err
		}
	}

	prompt := estimateTokens(req.Messages)
	return &Usage{
		PromptTokens:     prompt,
		CompletionTokens: int64(len(content) / 4),
		TotalTokens:      prompt + int64(len(content)/4),
	}, nil
}

func (m *MockClient) generateMockResponse(history []domain.Message) string {
	var last string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleUser {
			last = strings.TrimSpace(history[i].Content)
			break
		}
	}

	switch {
	case last == "":
		return "[MOCK] Hello! How can I help you today?"
	case strings.Contains(last, "TOOL RESULT"):
		if strings.Contains(last, "❌") {
			return "[MOCK] I'm sorry, I could not find that information. Could you double-check the details?"
		}
		return "[MOCK] I checked our systems, here is what I found:\n\n" + truncate(toolResultBody(last), 400)
	case isPESEL(last):
		return fmt.Sprintf("[MOCK] Let me look you up. [CHECK_CUSTOMER: %s]", last)
	case strings.Contains(strings.ToLower(last), "catalog"), strings.Contains(strings.ToLower(last), "offer"):
		return "[MOCK] Let me check our offer. [GET_CATALOG]"
	default:
		return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(last, 100))
	}
}

func toolResultBody(s string) string {
	if _, body, ok := strings.Cut(s, ":\n"); ok {
		return body
	}
	return s
}

func isPESEL(s string) bool {
	if len(s) != 11 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func estimateTokens(messages []domain.Message) int64 {
	var total int64
	for _, msg := range messages {
		total += int64(len(msg.Content) / 4)
	}
	return total
}

// splitIntoChunks splits s into chunks of about chunkSize runes.
func splitIntoChunks(s string, chunkSize int) []string {
	if s == "" {
		return nil
	}
	var chunks []string
	for len(s) > 0 {
		n, i := 0, 0
		for i < len(s) && n < chunkSize {
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
			n++
		}
		chunks = append(chunks, s[:i])
		s = s[i:]
	}
	return chunks
}

// truncate truncates a string to the given number of runes.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
