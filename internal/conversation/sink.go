package conversation

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// StreamSink receives the client-visible text of a turn, chunk by chunk.
type StreamSink interface {
	Emit(chunk string) error
}

// DiagnosticKind identifies an internal event of a turn.
type DiagnosticKind string

const (
	DiagLLMCall      DiagnosticKind = "llm_call"
	DiagToolStart    DiagnosticKind = "tool_start"
	DiagToolResult   DiagnosticKind = "tool_result"
	DiagLimitReached DiagnosticKind = "limit_reached"
)

// Diagnostic is an internal trace event. It never reaches the client.
type Diagnostic struct {
	Kind      DiagnosticKind
	SessionID string
	Depth     int
	Command   string
	Detail    string
	Failed    bool
}

// DiagnosticSink receives internal trace events.
type DiagnosticSink interface {
	Emit(d Diagnostic)
}

type discard struct{}

func (discard) Emit(Diagnostic) {}

// Discard is a DiagnosticSink that drops everything.
var Discard DiagnosticSink = discard{}

// ZapDiagnostics writes diagnostics to a zap logger at debug level.
type ZapDiagnostics struct {
	logger *zap.Logger
}

// NewZapDiagnostics creates a diagnostic sink backed by logger.
func NewZapDiagnostics(logger *zap.Logger) *ZapDiagnostics {
	return &ZapDiagnostics{logger: logger.With(zap.String("component", "diagnostics"))}
}

// Emit implements DiagnosticSink.
func (z *ZapDiagnostics) Emit(d Diagnostic) {
	fields := []zap.Field{
		zap.String("kind", string(d.Kind)),
		zap.String("session_id", d.SessionID),
		zap.Int("depth", d.Depth),
	}
	if d.Command != "" {
		fields = append(fields, zap.String("command", d.Command))
	}
	if d.Detail != "" {
		fields = append(fields, zap.String("detail", d.Detail))
	}
	if d.Failed {
		fields = append(fields, zap.Bool("failed", true))
	}
	z.logger.Debug("turn diagnostic", fields...)
}

// Buffer is a StreamSink that keeps every chunk it receives. Its Diagnostics
// view records diagnostics the same way.
type Buffer struct {
	mu          sync.Mutex
	chunks      []string
	diagnostics []Diagnostic
}

// Emit implements StreamSink.
func (b *Buffer) Emit(chunk string) error {
	b.mu.Lock()
	b.chunks = append(b.chunks, chunk)
	b.mu.Unlock()
	return nil
}

// Chunks returns the chunks received so far.
func (b *Buffer) Chunks() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.chunks...)
}

// Text returns the concatenated chunks.
func (b *Buffer) Text() string {
	return strings.Join(b.Chunks(), "")
}

// Diagnostics returns a DiagnosticSink view of the buffer.
func (b *Buffer) Diagnostics() DiagnosticSink { return bufferDiagnostics{b} }

// Recorded returns the diagnostics received so far.
func (b *Buffer) Recorded() []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Diagnostic(nil), b.diagnostics...)
}

type bufferDiagnostics struct{ b *Buffer }

func (d bufferDiagnostics) Emit(diag Diagnostic) {
	d.b.mu.Lock()
	d.b.diagnostics = append(d.b.diagnostics, diag)
	d.b.mu.Unlock()
}
