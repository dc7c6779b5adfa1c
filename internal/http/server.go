// Package http provides the public HTTP server of the consultant.
package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/mateury/next-gen-consultant/internal/domain"
	"github.com/mateury/next-gen-consultant/internal/session"
	"github.com/mateury/next-gen-consultant/internal/tools"
)

// ServiceName is reported by the health and info endpoints.
const ServiceName = "next-gen-consultant"

const (
	defaultTranscriptLimit = 50
	maxTranscriptLimit     = 500
)

// TranscriptStore reads archived conversations.
type TranscriptStore interface {
	GetTranscript(ctx context.Context, transcriptID string) (*domain.Transcript, error)
	ListTranscripts(ctx context.Context, sessionID string, limit int) ([]domain.Transcript, error)
}

// ConnectionRegistry reports live WebSocket connections.
type ConnectionRegistry interface {
	ConnectionCount() int
	Sessions() map[string]string
}

// Info describes the running service for GET /api/info.
type Info struct {
	Version            string `json:"version"`
	LLMMode            string `json:"llm_mode"`
	Model              string `json:"model"`
	ToolIterationLimit int    `json:"tool_iteration_limit"`
	ExhaustionPolicy   string `json:"exhaustion_policy"`
	ArchiveEnabled     bool   `json:"archive_enabled"`
}

// ToolInfo lists one tool command in GET /api/info.
type ToolInfo struct {
	Name        string `json:"name"`
	Usage       string `json:"usage"`
	Description string `json:"description"`
}

// Deps are the collaborators of the HTTP server. Archive may be nil.
type Deps struct {
	WebSocket   echo.HandlerFunc
	Sessions    *session.Manager
	Connections ConnectionRegistry
	Registry    *tools.Registry
	Archive     TranscriptStore
	Info        Info
}

// Server is the public HTTP server.
type Server struct {
	echo   *echo.Echo
	deps   Deps
	logger *zap.Logger
}

// NewServer creates the HTTP server and registers its routes.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		deps:   deps,
		logger: logger.With(zap.String("component", "http")),
	}

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				s.logger.Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			s.logger.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	s.RegisterRoutes(e)
	return s
}

// RegisterRoutes registers the public routes on e.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	if s.deps.WebSocket != nil {
		e.GET("/ws", s.deps.WebSocket)
	}
	e.GET("/health", s.HandleHealth)
	e.GET("/api/info", s.HandleInfo)
	e.GET("/api/transcripts", s.HandleListTranscripts)
	e.GET("/api/transcripts/:id", s.HandleGetTranscript)
}

// Echo exposes the underlying router.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// HandleHealth reports liveness and per-session message counts.
func (s *Server) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":          "healthy",
		"service":         ServiceName,
		"active_sessions": s.deps.Sessions.ActiveCount(),
		"session_stats":   s.deps.Sessions.AllStats(),
	}
	if s.deps.Connections != nil {
		resp["connections"] = s.deps.Connections.ConnectionCount()
		resp["connection_sessions"] = s.deps.Connections.Sessions()
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleInfo describes the service configuration and the tools the model may use.
func (s *Server) HandleInfo(c echo.Context) error {
	var toolList []ToolInfo
	if s.deps.Registry != nil {
		for _, spec := range s.deps.Registry.Specs() {
			toolList = append(toolList, ToolInfo{
				Name:        string(spec.Name),
				Usage:       spec.Usage,
				Description: spec.Description,
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"service": ServiceName,
		"info":    s.deps.Info,
		"tools":   toolList,
	})
}

// HandleListTranscripts lists archived conversations, newest first.
func (s *Server) HandleListTranscripts(c echo.Context) error {
	if s.deps.Archive == nil {
		return archiveDisabled(c)
	}

	limit := defaultTranscriptLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
		}
		limit = min(n, maxTranscriptLimit)
	}

	list, err := s.deps.Archive.ListTranscripts(c.Request().Context(), c.QueryParam("session_id"), limit)
	if err != nil {
		s.logger.Error("failed to list transcripts", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list transcripts"})
	}
	if list == nil {
		list = []domain.Transcript{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"transcripts": list,
		"count":       len(list),
	})
}

// HandleGetTranscript returns one archived conversation with its messages.
func (s *Server) HandleGetTranscript(c echo.Context) error {
	if s.deps.Archive == nil {
		return archiveDisabled(c)
	}

	id := c.Param("id")
	t, err := s.deps.Archive.GetTranscript(c.Request().Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "transcript not found"})
	}
	if err != nil {
		s.logger.Error("failed to get transcript", zap.String("transcript_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get transcript"})
	}
	return c.JSON(http.StatusOK, t)
}

func archiveDisabled(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "transcript archive is disabled"})
}
