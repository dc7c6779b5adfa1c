// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"sync"
	"unicode/utf8"

	"github.com/mateury/next-gen-consultant/internal/adapter/llm"
	"github.com/mateury/next-gen-consultant/internal/domain"
)

const chunkSize = 8

// Response is one canned reply of a ScriptedClient.
type Response struct {
	Text string
	Err  error
	// Block makes the call wait until its context is done.
	Block bool
}

// ScriptedClient replays canned replies in order and records every request.
// Once the script is exhausted the last reply repeats.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []Response
	requests  [][]domain.Message
}

var _ llm.Client = (*ScriptedClient)(nil)

// NewScriptedClient creates a client replying with texts in order.
func NewScriptedClient(texts ...string) *ScriptedClient {
	s := &ScriptedClient{}
	for _, t := range texts {
		s.responses = append(s.responses, Response{Text: t})
	}
	return s
}

// Then appends a reply to the script.
func (s *ScriptedClient) Then(resp Response) *ScriptedClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, resp)
	return s
}

// Requests returns copies of the histories received so far.
func (s *ScriptedClient) Requests() [][]domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]domain.Message, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls returns the number of StreamChat calls made.
func (s *ScriptedClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// StreamChat implements llm.Client.
func (s *ScriptedClient) StreamChat(ctx context.Context, req *llm.ChatRequest, callback llm.StreamCallback) (*llm.Usage, error) {
	s.mu.Lock()
	idx := len(s.requests)
	s.requests = append(s.requests, append([]domain.Message(nil), req.Messages...))
	var resp Response
	if len(s.responses) > 0 {
		if idx >= len(s.responses) {
			idx = len(s.responses) - 1
		}
		resp = s.responses[idx]
	}
	s.mu.Unlock()

	if resp.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	for _, chunk := range chunks(resp.Text) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := callback(chunk); err != nil {
			return nil, err
		}
	}
	return &llm.Usage{CompletionTokens: int64(len(resp.Text) / 4)}, nil
}

// chunks splits s into pieces of at most chunkSize runes.
func chunks(s string) []string {
	var out []string
	for len(s) > 0 {
		n, i := 0, 0
		for i < len(s) && n < chunkSize {
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
			n++
		}
		out = append(out, s[:i])
		s = s[i:]
	}
	return out
}
