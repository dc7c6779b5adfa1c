// Package conversation implements the tool-augmented streaming conversation engine.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mateury/next-gen-consultant/internal/adapter/llm"
	"github.com/mateury/next-gen-consultant/internal/domain"
	"github.com/mateury/next-gen-consultant/internal/tools"
)

// ErrLLMCall marks a failed model call. The turn is lost but the session survives.
var ErrLLMCall = errors.New("llm call failed")

// ErrStream marks a failure to deliver a chunk to the client.
var ErrStream = errors.New("stream delivery failed")

// Exhaustion policies decide what reaches the client when a turn hits the tool limit.
const (
	// ExhaustionStrip removes command tokens from the last model text.
	ExhaustionStrip = "strip"
	// ExhaustionVerbatim forwards the last model text unchanged.
	ExhaustionVerbatim = "verbatim"
)

// ToolRunner finds and executes tool commands.
type ToolRunner interface {
	FindCommands(text string) []domain.ToolCommand
	StripCommands(text string) string
	Execute(ctx context.Context, sessionID string, cmd domain.ToolCommand) domain.ToolResult
}

var _ ToolRunner = (*tools.Executor)(nil)

// Config tunes the engine.
type Config struct {
	ToolResultsTemplate string
	ExhaustionPolicy    string
	ExhaustionFallback  string
	// LLMTimeout bounds every model call. Zero disables the bound.
	LLMTimeout time.Duration
}

// Engine turns user messages into final answers. It holds no per-session
// state and is shared by all connections.
type Engine struct {
	llm    llm.Client
	tools  ToolRunner
	cfg    Config
	logger *zap.Logger
}

// NewEngine creates an engine.
func NewEngine(client llm.Client, runner ToolRunner, cfg Config, logger *zap.Logger) *Engine {
	if cfg.ToolResultsTemplate == "" {
		cfg.ToolResultsTemplate = DefaultToolResultsTemplate
	}
	if cfg.ExhaustionPolicy == "" {
		cfg.ExhaustionPolicy = ExhaustionStrip
	}
	if cfg.ExhaustionFallback == "" {
		cfg.ExhaustionFallback = DefaultExhaustionFallback
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		llm:    client,
		tools:  runner,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "engine")),
	}
}

// Reply describes a completed turn.
type Reply struct {
	Text       string
	Commands   []domain.ToolCommand
	ToolRounds int
	LLMCalls   int
	Chunks     int
	Exhausted  bool
	Duration   time.Duration
}

// turn accumulates the counters of one Respond call.
type turn struct {
	session    *Session
	started    time.Time
	llmCalls   int
	toolRounds int
	commands   []domain.ToolCommand
	exhausted  bool
}

func (t *turn) reply(text string, chunks int) Reply {
	return Reply{
		Text:       text,
		Commands:   t.commands,
		ToolRounds: t.toolRounds,
		LLMCalls:   t.llmCalls,
		Chunks:     chunks,
		Exhausted:  t.exhausted,
		Duration:   time.Since(t.started),
	}
}

// generation is the buffered output of one model call.
type generation struct {
	chunks []string
	text   strings.Builder
}

func (g *generation) collect(chunk string) error {
	g.chunks = append(g.chunks, chunk)
	g.text.WriteString(chunk)
	return nil
}

// Respond runs one turn: it appends userText to the session, resolves any tool
// commands the model emits, and streams only the final answer to stream.
func (e *Engine) Respond(ctx context.Context, s *Session, userText string, stream StreamSink, diag DiagnosticSink) (Reply, error) {
	if strings.TrimSpace(userText) == "" {
		return Reply{}, domain.ErrEmptyMessage
	}
	if diag == nil {
		diag = Discard
	}
	t := &turn{session: s, started: time.Now()}
	limit := s.ToolIterationLimit()

	s.append(domain.UserMessage(userText))

	gen, err := e.generate(ctx, t, diag, 0)
	if err != nil {
		return t.reply("", 0), err
	}
	cmds := e.tools.FindCommands(gen.text.String())

	for depth := 0; len(cmds) > 0; depth++ {
		if depth >= limit {
			t.exhausted = true
			break
		}
		s.append(domain.AssistantMessage(gen.text.String()))

		results := e.runTools(ctx, t, cmds, diag, depth)
		t.toolRounds++
		s.append(domain.UserMessage(e.wrapResults(results)))

		gen, err = e.generate(ctx, t, diag, depth+1)
		if err != nil {
			return t.reply("", 0), err
		}
		cmds = e.tools.FindCommands(gen.text.String())
		if len(cmds) > 0 && depth+1 >= limit {
			t.exhausted = true
			break
		}
	}

	raw := gen.text.String()
	deliver := gen.chunks
	if t.exhausted {
		diag.Emit(Diagnostic{Kind: DiagLimitReached, SessionID: s.ID(), Depth: t.toolRounds, Detail: raw})
		e.logger.Warn("tool iteration limit reached",
			zap.String("session_id", s.ID()),
			zap.Int("limit", limit),
			zap.String("policy", e.cfg.ExhaustionPolicy))
		if e.cfg.ExhaustionPolicy == ExhaustionStrip {
			deliver = []string{e.stripped(raw)}
		}
	}

	s.append(domain.AssistantMessage(raw))

	var delivered strings.Builder
	emitted := 0
	for _, chunk := range deliver {
		if chunk == "" {
			continue
		}
		if err := stream.Emit(chunk); err != nil {
			return t.reply(delivered.String(), emitted), fmt.Errorf("%w: %w", ErrStream, err)
		}
		delivered.WriteString(chunk)
		emitted++
	}

	reply := t.reply(delivered.String(), emitted)
	e.logger.Info("turn completed",
		zap.String("session_id", s.ID()),
		zap.Duration("duration", reply.Duration),
		zap.Int("llm_calls", reply.LLMCalls),
		zap.Int("tool_rounds", reply.ToolRounds),
		zap.Int("chunks", reply.Chunks),
		zap.Int("chars", len([]rune(reply.Text))),
		zap.Float64("chars_per_second", charsPerSecond(reply)),
		zap.Bool("exhausted", reply.Exhausted))
	return reply, nil
}

// generate calls the model with the current history and buffers the reply.
func (e *Engine) generate(ctx context.Context, t *turn, diag DiagnosticSink, depth int) (*generation, error) {
	if e.cfg.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.LLMTimeout)
		defer cancel()
	}

	gen := &generation{}
	t.llmCalls++
	diag.Emit(Diagnostic{Kind: DiagLLMCall, SessionID: t.session.ID(), Depth: depth})

	_, err := e.llm.StreamChat(ctx, &llm.ChatRequest{Messages: t.session.History()}, gen.collect)
	if err != nil {
		e.logger.Error("llm call failed",
			zap.String("session_id", t.session.ID()),
			zap.Int("depth", depth),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrLLMCall, err)
	}
	return gen, nil
}

// runTools executes cmds one after another in order of appearance.
func (e *Engine) runTools(ctx context.Context, t *turn, cmds []domain.ToolCommand, diag DiagnosticSink, depth int) []domain.ToolResult {
	results := make([]domain.ToolResult, 0, len(cmds))
	for _, cmd := range cmds {
		diag.Emit(Diagnostic{Kind: DiagToolStart, SessionID: t.session.ID(), Depth: depth, Command: cmd.Raw})
		res := e.tools.Execute(ctx, t.session.ID(), cmd)
		diag.Emit(Diagnostic{Kind: DiagToolResult, SessionID: t.session.ID(), Depth: depth, Command: cmd.Raw, Detail: res.Output, Failed: res.Failed})
		results = append(results, res)
		t.commands = append(t.commands, cmd)
	}
	return results
}

func (e *Engine) wrapResults(results []domain.ToolResult) string {
	body := tools.FormatResults(results)
	if !strings.Contains(e.cfg.ToolResultsTemplate, ToolResultsPlaceholder) {
		return e.cfg.ToolResultsTemplate + "\n\n" + body
	}
	return strings.ReplaceAll(e.cfg.ToolResultsTemplate, ToolResultsPlaceholder, body)
}

func (e *Engine) stripped(raw string) string {
	text := e.tools.StripCommands(raw)
	if strings.TrimSpace(text) == "" {
		return e.cfg.ExhaustionFallback
	}
	return text
}

func charsPerSecond(r Reply) float64 {
	secs := r.Duration.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(len([]rune(r.Text))) / secs
}
