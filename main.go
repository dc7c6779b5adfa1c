package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mateury/next-gen-consultant/internal/adapter/backend"
	"github.com/mateury/next-gen-consultant/internal/adapter/llm"
	"github.com/mateury/next-gen-consultant/internal/config"
	"github.com/mateury/next-gen-consultant/internal/conversation"
	internalhttp "github.com/mateury/next-gen-consultant/internal/http"
	"github.com/mateury/next-gen-consultant/internal/policy"
	"github.com/mateury/next-gen-consultant/internal/repository"
	"github.com/mateury/next-gen-consultant/internal/session"
	"github.com/mateury/next-gen-consultant/internal/tools"
	"github.com/mateury/next-gen-consultant/internal/ws"
)

var version = "dev"

var configPath = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	logger.Info("Starting consultant service...",
		zap.String("version", version),
		zap.String("address", cfg.Address()),
		zap.String("backend_url", cfg.Backend.URL),
		zap.String("llm_mode", cfg.LLM.Mode),
		zap.Int("tool_iteration_limit", cfg.Conversation.ToolIterationLimit))

	ctx := context.Background()

	// Tool policy
	policyEngine, err := policy.NewEngineFromFile(ctx, cfg.Policy.File)
	if err != nil {
		logger.Fatal("Failed to load tool policy", zap.Error(err))
	}

	// Tools backed by the sales API
	gateway := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
	registry := tools.NewRegistry()
	if err := tools.RegisterBuiltins(registry, gateway); err != nil {
		logger.Fatal("Failed to register tools", zap.Error(err))
	}
	executor := tools.NewExecutor(registry, policyEngine, logger)

	// Model client and engine
	llmClient := llm.NewClient(cfg.LLM.Mode, llm.Options{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		TopP:        cfg.LLM.TopP,
	}, logger)
	engine := conversation.NewEngine(llmClient, executor, conversation.Config{
		ToolResultsTemplate: cfg.Conversation.ToolResultsTemplate,
		ExhaustionPolicy:    cfg.Conversation.ExhaustionPolicy,
		ExhaustionFallback:  cfg.Conversation.ExhaustionFallback,
		LLMTimeout:          cfg.LLM.Timeout,
	}, logger)

	systemPrompt := cfg.Conversation.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = conversation.DefaultSystemPrompt
	}
	manager := session.NewManager(systemPrompt, cfg.Conversation.ToolIterationLimit, logger)

	// Transcript archive
	var archive ws.Archiver
	var transcripts internalhttp.TranscriptStore
	if cfg.Archive.Enabled {
		store, err := repository.NewSQLiteStore(cfg.Archive.DSN)
		if err != nil {
			logger.Fatal("Failed to open transcript archive", zap.Error(err))
		}
		defer store.Close()
		archive, transcripts = store, store
		logger.Info("Transcript archive enabled", zap.String("dsn", cfg.Archive.DSN))
	}

	wsServer := ws.NewServer(manager, engine, archive, ws.Options{
		Greeting:       cfg.Conversation.Greeting,
		Apology:        cfg.Conversation.Apology,
		PingInterval:   cfg.WS.PingInterval,
		WriteTimeout:   cfg.WS.WriteTimeout,
		ReadTimeout:    cfg.WS.ReadTimeout,
		MaxMessageSize: cfg.WS.MaxMessageSize,
		SendBuffer:     cfg.WS.SendBuffer,
	}, logger)

	httpServer := internalhttp.NewServer(internalhttp.Deps{
		WebSocket:   wsServer.HandleWebSocket,
		Sessions:    manager,
		Connections: wsServer.Hub(),
		Registry:    registry,
		Archive:     transcripts,
		Info: internalhttp.Info{
			Version:            version,
			LLMMode:            cfg.LLM.Mode,
			Model:              cfg.LLM.Model,
			ToolIterationLimit: cfg.Conversation.ToolIterationLimit,
			ExhaustionPolicy:   cfg.Conversation.ExhaustionPolicy,
			ArchiveEnabled:     cfg.Archive.Enabled,
		},
	}, logger)

	go func() {
		if err := httpServer.Start(cfg.Address()); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("address", cfg.Address()))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...", zap.Int("active_sessions", manager.ActiveCount()))

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
	}

	logger.Info("Consultant stopped")
}
