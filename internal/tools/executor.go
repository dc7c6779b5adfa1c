package tools

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mateury/next-gen-consultant/internal/domain"
	"github.com/mateury/next-gen-consultant/internal/policy"
)

// PolicyEvaluator decides whether a command may run.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, input policy.Input) (decision string, reason string, err error)
}

// Executor runs parsed commands. It never returns errors: every failure is
// rendered into the ToolResult output.
type Executor struct {
	registry *Registry
	grammar  *Grammar
	policy   PolicyEvaluator
	logger   *zap.Logger
}

// NewExecutor creates an executor over registry. evaluator may be nil.
func NewExecutor(registry *Registry, evaluator PolicyEvaluator, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		registry: registry,
		grammar:  registry.Grammar(),
		policy:   evaluator,
		logger:   logger.With(zap.String("component", "tools")),
	}
}

// FindCommands returns the command tokens in text, left to right.
func (e *Executor) FindCommands(text string) []domain.ToolCommand {
	return e.grammar.Find(text)
}

// StripCommands removes the command tokens from text.
func (e *Executor) StripCommands(text string) string {
	return e.grammar.Strip(text)
}

// Execute runs a single command for the given session.
func (e *Executor) Execute(ctx context.Context, sessionID string, cmd domain.ToolCommand) (result domain.ToolResult) {
	result.Command = cmd
	start := time.Now()
	log := e.logger.With(
		zap.String("session_id", sessionID),
		zap.String("command", string(cmd.Name)),
		zap.Strings("args", cmd.Args),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("tool handler panicked", zap.Any("panic", r))
			result.Output = "❌ Tool execution failed"
			result.Failed = true
		}
		log.Debug("tool executed",
			zap.Bool("failed", result.Failed),
			zap.Duration("duration", time.Since(start)))
	}()

	spec, ok := e.registry.Lookup(cmd.Name)
	if !ok {
		result.Output = fmt.Sprintf("❌ Unknown command: %s", cmd.Raw)
		result.Failed = true
		return result
	}

	if err := checkArity(spec, cmd.Args); err != nil {
		result.Output = renderError(err)
		result.Failed = true
		return result
	}

	if e.policy != nil {
		decision, reason, err := e.policy.Evaluate(ctx, policy.Input{
			ToolName:  string(cmd.Name),
			Args:      cmd.Args,
			SessionID: sessionID,
		})
		if err != nil {
			log.Error("policy evaluation failed", zap.Error(err))
			result.Output = "❌ Command could not be authorized"
			result.Failed = true
			return result
		}
		if decision != policy.DecisionAllow {
			log.Info("command blocked by policy", zap.String("decision", decision), zap.String("reason", reason))
			result.Output = "❌ Command blocked by policy"
			if reason != "" {
				result.Output += ": " + reason
			}
			result.Failed = true
			return result
		}
	}

	out, err := spec.Handler(ctx, cmd.Args)
	if err != nil {
		log.Warn("tool execution failed", zap.Error(err))
		result.Output = renderError(err)
		result.Failed = true
		return result
	}
	result.Output = out
	return result
}

func checkArity(spec Spec, args []string) error {
	n := len(args)
	if n < spec.MinArgs || (spec.MaxArgs != Unbounded && n > spec.MaxArgs) {
		return &ArgumentError{
			Command: spec.Name,
			Reason:  fmt.Sprintf("expected %s, got %d argument(s); usage %s", arityText(spec), n, spec.Usage),
		}
	}
	return nil
}

func arityText(spec Spec) string {
	switch {
	case spec.MaxArgs == Unbounded:
		return fmt.Sprintf("at least %d argument(s)", spec.MinArgs)
	case spec.MinArgs == spec.MaxArgs:
		return fmt.Sprintf("%d argument(s)", spec.MinArgs)
	default:
		return fmt.Sprintf("%d to %d argument(s)", spec.MinArgs, spec.MaxArgs)
	}
}
