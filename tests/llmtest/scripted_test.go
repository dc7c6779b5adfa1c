package llmtest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mateury/next-gen-consultant/internal/adapter/llm"
	"github.com/mateury/next-gen-consultant/internal/domain"
)

func collect(t *testing.T, c llm.Client, history ...domain.Message) string {
	t.Helper()
	var b strings.Builder
	_, err := c.StreamChat(context.Background(), &llm.ChatRequest{Messages: history}, func(chunk string) error {
		b.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}
	return b.String()
}

func TestScriptedClient(t *testing.T) {
	s := NewScriptedClient("first answer", "second").Then(Response{Err: errors.New("down")})

	if got := collect(t, s, domain.UserMessage("a")); got != "first answer" {
		t.Fatalf("unexpected first reply: %q", got)
	}
	if got := collect(t, s, domain.UserMessage("b")); got != "second" {
		t.Fatalf("unexpected second reply: %q", got)
	}
	_, err := s.StreamChat(context.Background(), &llm.ChatRequest{}, func(string) error { return nil })
	if err == nil {
		t.Fatalf("expected scripted error")
	}
	// the last reply repeats
	if _, err := s.StreamChat(context.Background(), &llm.ChatRequest{}, func(string) error { return nil }); err == nil {
		t.Fatalf("expected repeated error")
	}
	if s.Calls() != 4 {
		t.Fatalf("expected 4 calls, got %d", s.Calls())
	}
	if reqs := s.Requests(); reqs[0][0].Content != "a" {
		t.Fatalf("request not recorded: %+v", reqs[0])
	}
}

func TestScriptedClientBlocksUntilCancelled(t *testing.T) {
	s := NewScriptedClient().Then(Response{Block: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.StreamChat(ctx, &llm.ChatRequest{}, func(string) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestChunksKeepRunes(t *testing.T) {
	parts := chunks("zażółć gęślą jaźń")
	if strings.Join(parts, "") != "zażółć gęślą jaźń" {
		t.Fatalf("chunks do not reassemble: %v", parts)
	}
	for _, p := range parts {
		if len([]rune(p)) > chunkSize {
			t.Fatalf("chunk too long: %q", p)
		}
	}
}
