package llm

import (
	"go.uber.org/zap"
)

const (
	// ModeOpenAI selects the OpenAI-compatible client.
	ModeOpenAI = "openai"
	// ModeMock selects the offline mock client.
	ModeMock = "mock"
)

// NewClient creates an LLM client for the given mode.
func NewClient(mode string, opts Options, logger *zap.Logger) Client {
	if mode == ModeMock {
		logger.Warn("mock mode selected, using mock LLM client")
		return NewMockClient()
	}

	logger.Info("using OpenAI-compatible LLM client",
		zap.String("base_url", opts.BaseURL),
		zap.String("model", opts.Model))
	return NewOpenAIClient(opts)
}
