package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mateury/next-gen-consultant/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestSQLiteStoreTranscripts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	started := time.Now().Add(-time.Minute)
	tr := &domain.Transcript{
		SessionID: "s1",
		Reason:    domain.TranscriptReasonDisconnect,
		StartedAt: started,
		Messages: []domain.Message{
			domain.SystemMessage("prompt"),
			domain.UserMessage("85010112345"),
			domain.AssistantMessage("[CHECK_CUSTOMER: 85010112345]"),
			domain.UserMessage("TOOL RESULT [CHECK_CUSTOMER: 85010112345]:\n❌ Not found"),
			domain.AssistantMessage("Sorry, I could not find you."),
		},
	}
	if err := store.SaveTranscript(ctx, tr); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}
	if tr.TranscriptID == "" {
		t.Fatalf("expected transcript id to be assigned")
	}

	got, err := store.GetTranscript(ctx, tr.TranscriptID)
	if err != nil {
		t.Fatalf("GetTranscript failed: %v", err)
	}
	if got == nil || got.SessionID != "s1" || got.Reason != domain.TranscriptReasonDisconnect {
		t.Fatalf("unexpected transcript: %+v", got)
	}
	if len(got.Messages) != 5 || got.Messages[3].Content != tr.Messages[3].Content {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if got.Stats != (domain.Stats{Total: 5, User: 2, Assistant: 2, System: 1}) {
		t.Fatalf("unexpected stats: %+v", got.Stats)
	}
	if got.StartedAt.Unix() != started.Unix() {
		t.Fatalf("unexpected started_at: %v", got.StartedAt)
	}

	missing, err := store.GetTranscript(ctx, "nope")
	if !errors.Is(err, domain.ErrNotFound) || missing != nil {
		t.Fatalf("expected ErrNotFound, got %+v err %v", missing, err)
	}
}

func TestSQLiteStoreListTranscripts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	now := time.Now()
	for i, sid := range []string{"s1", "s1", "s2"} {
		tr := &domain.Transcript{
			SessionID: sid,
			Reason:    domain.TranscriptReasonEnd,
			StartedAt: now,
			EndedAt:   now.Add(time.Duration(i) * time.Second),
			Messages:  []domain.Message{domain.SystemMessage("p")},
		}
		if err := store.SaveTranscript(ctx, tr); err != nil {
			t.Fatalf("SaveTranscript failed: %v", err)
		}
	}

	all, err := store.ListTranscripts(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListTranscripts failed: %v", err)
	}
	if len(all) != 3 || all[0].SessionID != "s2" {
		t.Fatalf("unexpected list: %+v", all)
	}
	if all[0].Messages != nil {
		t.Fatalf("summaries should not carry messages")
	}

	s1, err := store.ListTranscripts(ctx, "s1", 1)
	if err != nil {
		t.Fatalf("ListTranscripts failed: %v", err)
	}
	if len(s1) != 1 || s1[0].SessionID != "s1" {
		t.Fatalf("unexpected filtered list: %+v", s1)
	}
}
