// Package ws serves the consultant conversation over WebSocket connections.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mateury/next-gen-consultant/internal/conversation"
	"github.com/mateury/next-gen-consultant/internal/domain"
	"github.com/mateury/next-gen-consultant/internal/protocol"
	"github.com/mateury/next-gen-consultant/internal/session"
)

const (
	// EndedNotice acknowledges an end action.
	EndedNotice = "The conversation has been closed. Send start whenever you want to begin a new one."
	// InvalidMessageNotice answers a malformed control envelope.
	InvalidMessageNotice = "Sorry, I could not read that message. Please try again."
	// NoSessionNotice answers a message sent after the session was torn down.
	NoSessionNotice = "This conversation was reset. Send start to begin a new one."

	archiveTimeout = 5 * time.Second
)

// Archiver stores finished transcripts.
type Archiver interface {
	SaveTranscript(ctx context.Context, t *domain.Transcript) error
}

// Options configures the connection handler.
type Options struct {
	Greeting       string
	Apology        string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
	SendBuffer     int
	// InboundQueue is how many client frames may wait while a turn runs.
	// The reader keeps serving pings while they wait.
	InboundQueue int
}

func (o *Options) applyDefaults() {
	if o.Greeting == "" {
		o.Greeting = conversation.DefaultGreeting
	}
	if o.Apology == "" {
		o.Apology = conversation.DefaultApology
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 65536
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.InboundQueue <= 0 {
		o.InboundQueue = 16
	}
}

// Server handles WebSocket connections.
type Server struct {
	opts        Options
	hub         *Hub
	manager     *session.Manager
	engine      *conversation.Engine
	archive     Archiver
	diagnostics conversation.DiagnosticSink
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewServer creates a new WebSocket server. archive may be nil.
func NewServer(manager *session.Manager, engine *conversation.Engine, archive Archiver, opts Options, logger *zap.Logger) *Server {
	opts.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		opts:        opts,
		hub:         NewHub(),
		manager:     manager,
		engine:      engine,
		archive:     archive,
		diagnostics: conversation.NewZapDiagnostics(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.With(zap.String("component", "ws")),
	}
}

// Hub returns the connection registry.
func (s *Server) Hub() *Hub { return s.hub }

// HandleWebSocket upgrades the request and serves the connection until it closes.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return err
	}
	ws.SetReadLimit(s.opts.MaxMessageSize)

	conn := newConnection(ws, s.opts.SendBuffer)
	s.hub.Register(conn)
	defer s.hub.Unregister(conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbound := make(chan []byte, s.opts.InboundQueue)
	go s.writePump(conn)
	go s.readPump(ctx, cancel, conn, inbound)

	s.serve(ctx, conn, inbound)

	// serve is the only sender, so closing here lets the writer drain and exit
	close(conn.send)
	<-conn.done
	return nil
}

// readPump reads frames from the WebSocket and hands them to the session loop.
// A read failure means the client is gone and cancels ctx.
func (s *Server) readPump(ctx context.Context, cancel context.CancelFunc, conn *Connection, inbound chan<- []byte) {
	defer func() {
		cancel()
		close(inbound)
	}()

	conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", zap.String("connection_id", conn.ID), zap.Error(err))
			}
			return
		}

		select {
		case inbound <- message:
		case <-ctx.Done():
			return
		}
		// the hand-off may have waited for a turn to finish
		conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	}
}

// writePump writes queued events and keeps the connection alive with pings.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		close(conn.done)
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.send:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("failed to write message", zap.String("connection_id", conn.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// serve runs the session loop of one connection. Turns are handled one at a
// time in arrival order.
func (s *Server) serve(ctx context.Context, conn *Connection, inbound <-chan []byte) {
	base := s.logger.With(zap.String("connection_id", conn.ID))
	h := &handler{server: s, conn: conn, base: base, logger: base}
	if err := h.open(); err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		conn.SendEvent(protocol.ErrorEvent(s.opts.Apology))
		return
	}
	defer h.teardown(domain.TranscriptReasonDisconnect)

	if err := h.greet(); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-inbound:
			if !ok {
				return
			}
			if err := h.handle(ctx, data); err != nil {
				return
			}
		}
	}
}

// handler holds the per-connection session state. It is owned by the
// session loop goroutine.
type handler struct {
	server  *Server
	conn    *Connection
	base    *zap.Logger
	logger  *zap.Logger
	session *conversation.Session
	started time.Time
}

func (h *handler) open() error {
	s, err := h.server.manager.Create(session.NewID())
	if err != nil {
		return err
	}
	h.session = s
	h.started = time.Now()
	h.server.hub.BindSession(h.conn, s.ID())
	h.logger = h.base.With(zap.String("session_id", s.ID()))
	return nil
}

func (h *handler) greet() error {
	return h.conn.SendEvent(protocol.MessageEvent(h.server.opts.Greeting))
}

// handle processes one inbound frame. A returned error means the connection
// can no longer be written to.
func (h *handler) handle(ctx context.Context, data []byte) error {
	in, err := protocol.ParseInbound(data)
	if err != nil {
		h.logger.Warn("invalid inbound message", zap.Error(err))
		return h.conn.SendEvent(protocol.ErrorEvent(InvalidMessageNotice))
	}

	switch in.Action {
	case protocol.ActionStart:
		return h.restart()
	case protocol.ActionEnd:
		if h.session != nil {
			h.archive(domain.TranscriptReasonEnd)
			h.session.Clear()
			h.started = time.Now()
		}
		return h.conn.SendEvent(protocol.MessageEvent(EndedNotice))
	}

	if in.Blank() {
		return nil
	}
	if h.session == nil {
		return h.conn.SendEvent(protocol.ErrorEvent(NoSessionNotice))
	}
	return h.turn(ctx, in.Text)
}

func (h *handler) restart() error {
	if h.session == nil {
		if err := h.open(); err != nil {
			h.logger.Error("failed to re-create session", zap.Error(err))
			return h.conn.SendEvent(protocol.ErrorEvent(h.server.opts.Apology))
		}
	} else {
		h.archive(domain.TranscriptReasonRestart)
		h.session.Clear()
		h.started = time.Now()
	}
	return h.greet()
}

// turn runs one conversational turn and relays its events.
func (h *handler) turn(ctx context.Context, text string) error {
	h.logHistory("history before turn")

	w := &streamWriter{conn: h.conn}
	_, err := h.respond(ctx, text, w)
	if err != nil {
		var p *panicError
		switch {
		case errors.As(err, &p):
			h.logger.Error("turn panicked, tearing session down", zap.Any("panic", p.value))
			h.teardown(domain.TranscriptReasonFailure)
			return h.conn.SendEvent(protocol.ErrorEvent(h.server.opts.Apology))
		case ctx.Err() != nil, errors.Is(err, conversation.ErrStream):
			return err
		}
		// output is buffered until the turn succeeds, so nothing was streamed yet
		h.logger.Error("turn failed", zap.Error(err))
		return h.conn.SendEvent(protocol.ErrorEvent(h.server.opts.Apology))
	}

	if err := w.open(); err != nil {
		return err
	}
	if err := h.conn.SendEvent(protocol.StreamEndEvent()); err != nil {
		return err
	}
	h.logHistory("history after turn")
	return nil
}

type panicError struct {
	value any
}

func (p *panicError) Error() string { return fmt.Sprintf("panic: %v", p.value) }

func (h *handler) respond(ctx context.Context, text string, w *streamWriter) (reply conversation.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return h.server.engine.Respond(ctx, h.session, text, w, h.server.diagnostics)
}

// teardown deletes the session and archives its history. Only the first
// call for a session has an effect.
func (h *handler) teardown(reason string) {
	if h.session == nil {
		return
	}
	id := h.session.ID()
	h.archive(reason)
	h.session = nil
	h.server.hub.BindSession(h.conn, "")
	final, ok := h.server.manager.Delete(id)
	if !ok {
		return
	}
	h.logger.Info("session closed",
		zap.String("reason", reason),
		zap.Int("total_messages", final.Stats.Total),
		zap.Int("user_messages", final.Stats.User),
		zap.Int("ai_messages", final.Stats.Assistant))
	if ce := h.logger.Check(zap.DebugLevel, "final history"); ce != nil {
		ce.Write(zap.Any("history", final.History))
	}
}

// logHistory logs the session history at debug level without copying it otherwise.
func (h *handler) logHistory(msg string) {
	if ce := h.logger.Check(zap.DebugLevel, msg); ce != nil {
		ce.Write(zap.Any("history", h.session.History()))
	}
}

// archive saves the current history if anything was said.
func (h *handler) archive(reason string) {
	if h.server.archive == nil || h.session == nil {
		return
	}
	stats := h.session.Stats()
	if stats.User == 0 {
		return
	}
	t := &domain.Transcript{
		SessionID: h.session.ID(),
		Reason:    reason,
		StartedAt: h.started,
		EndedAt:   time.Now(),
		Messages:  h.session.History(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := h.server.archive.SaveTranscript(ctx, t); err != nil {
		h.logger.Error("failed to archive transcript", zap.Error(err))
		return
	}
	h.logger.Info("transcript archived", zap.String("transcript_id", t.TranscriptID), zap.String("reason", reason))
}

// streamWriter opens the stream on the first chunk.
type streamWriter struct {
	conn    *Connection
	started bool
}

func (w *streamWriter) open() error {
	if w.started {
		return nil
	}
	if err := w.conn.SendEvent(protocol.StreamStartEvent()); err != nil {
		return err
	}
	w.started = true
	return nil
}

// Emit implements conversation.StreamSink.
func (w *streamWriter) Emit(chunk string) error {
	if err := w.open(); err != nil {
		return err
	}
	return w.conn.SendEvent(protocol.StreamChunkEvent(chunk))
}
