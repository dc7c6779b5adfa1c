package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mateury/next-gen-consultant/internal/domain"
	"github.com/mateury/next-gen-consultant/internal/session"
	"github.com/mateury/next-gen-consultant/internal/tools"
	"github.com/mateury/next-gen-consultant/tests/helpers"
)

type fakeConnections map[string]string

func (f fakeConnections) ConnectionCount() int { return len(f) }

func (f fakeConnections) Sessions() map[string]string { return f }

func newTestServer(t *testing.T, withArchive bool) (*Server, *session.Manager, TranscriptStore) {
	t.Helper()
	manager := session.NewManager("prompt", 3, nil)
	registry := tools.NewRegistry()
	registry.MustRegister(tools.Spec{
		Name:        domain.CommandGetCatalog,
		MaxArgs:     1,
		Usage:       "[GET_CATALOG]",
		Description: "catalog",
		Handler:     func(ctx context.Context, args []string) (string, error) { return "", nil },
	})

	deps := Deps{
		Sessions:    manager,
		Connections: fakeConnections{"conn_1": "sess_a", "conn_2": ""},
		Registry:    registry,
		Info:        Info{LLMMode: "mock", ToolIterationLimit: 3},
	}
	var store TranscriptStore
	if withArchive {
		store = helpers.NewTestSQLiteStore(t)
		deps.Archive = store
		deps.Info.ArchiveEnabled = true
	}
	return NewServer(deps, nil), manager, store
}

func serve(s *Server, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, manager, _ := newTestServer(t, false)
	if _, err := manager.Create("sess_a"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	if err := s.HandleHealth(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Status         string                  `json:"status"`
		Service        string                  `json:"service"`
		ActiveSessions int                     `json:"active_sessions"`
		Connections    int                     `json:"connections"`
		SessionStats   map[string]domain.Stats `json:"session_stats"`
		ConnSessions   map[string]string       `json:"connection_sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if body.Status != "healthy" || body.Service != ServiceName {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.ActiveSessions != 1 || body.Connections != 2 {
		t.Fatalf("unexpected counts: %+v", body)
	}
	if body.ConnSessions["conn_1"] != "sess_a" || len(body.ConnSessions) != 2 {
		t.Fatalf("unexpected connection sessions: %+v", body.ConnSessions)
	}
	if body.SessionStats["sess_a"].System != 1 {
		t.Fatalf("unexpected stats: %+v", body.SessionStats)
	}
}

func TestInfoListsTools(t *testing.T) {
	s, _, _ := newTestServer(t, false)
	rec := serve(s, "/api/info")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Info  Info       `json:"info"`
		Tools []ToolInfo `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if body.Info.ToolIterationLimit != 3 || body.Info.LLMMode != "mock" {
		t.Fatalf("unexpected info: %+v", body.Info)
	}
	if len(body.Tools) != 1 || body.Tools[0].Name != "GET_CATALOG" {
		t.Fatalf("unexpected tools: %+v", body.Tools)
	}
}

func TestTranscriptsDisabled(t *testing.T) {
	s, _, _ := newTestServer(t, false)
	for _, target := range []string{"/api/transcripts", "/api/transcripts/tr_1"} {
		if rec := serve(s, target); rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected 503, got %d", target, rec.Code)
		}
	}
}

func TestTranscripts(t *testing.T) {
	s, _, store := newTestServer(t, true)
	saver := store.(interface {
		SaveTranscript(ctx context.Context, t *domain.Transcript) error
	})
	tr := &domain.Transcript{
		SessionID: "sess_a",
		Reason:    domain.TranscriptReasonEnd,
		Messages: []domain.Message{
			domain.SystemMessage("prompt"),
			domain.UserMessage("hi"),
			domain.AssistantMessage("hello"),
		},
	}
	if err := saver.SaveTranscript(context.Background(), tr); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}

	rec := serve(s, "/api/transcripts?session_id=sess_a")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list struct {
		Transcripts []domain.Transcript `json:"transcripts"`
		Count       int                 `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if list.Count != 1 || list.Transcripts[0].TranscriptID != tr.TranscriptID {
		t.Fatalf("unexpected list: %+v", list)
	}

	rec = serve(s, "/api/transcripts/"+tr.TranscriptID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got domain.Transcript
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(got.Messages) != 3 || got.Stats.User != 1 {
		t.Fatalf("unexpected transcript: %+v", got)
	}

	if rec := serve(s, "/api/transcripts/tr_missing"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := serve(s, "/api/transcripts?limit=zero"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := serve(s, "/api/transcripts?session_id=sess_other"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
