package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/npcsociety/npcd/internal/config"
	"github.com/npcsociety/npcd/internal/engine"
	"github.com/npcsociety/npcd/internal/ident"
	"github.com/npcsociety/npcd/internal/protocol"
)

// WebSocketHandler accepts plugin connections and runs one session per
// connection. Inbound messages and sweep ticks are funneled through a
// single event loop per connection, so all session state is touched
// from one goroutine. Outbound messages go through a buffered write
// queue; enqueueing blocks when the peer falls behind.
type WebSocketHandler struct {
	deps             engine.SessionDeps
	mgr              *Manager
	allowedOrigin    string
	isDev            bool
	directiveTimeout time.Duration
	sweepInterval    time.Duration
	queueSize        int
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(deps engine.SessionDeps, mgr *Manager, cfg *config.Config) *WebSocketHandler {
	return &WebSocketHandler{
		deps:             deps,
		mgr:              mgr,
		allowedOrigin:    cfg.AllowedOrigin,
		isDev:            cfg.IsDevelopment(),
		directiveTimeout: cfg.DirectiveTimeout,
		sweepInterval:    cfg.SweepInterval,
		queueSize:        cfg.OutboundQueueSize,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}

	connID := ident.NewConnectionID()
	slog.Info("Plugin connected", "conn_id", connID, "ip", r.RemoteAddr)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "conn_id", connID)
		}
	}()

	h.mgr.Register(connID, ws)
	defer h.mgr.Unregister(connID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := engine.NewSession(connID, r.RemoteAddr, h.deps)
	inbound := make(chan []byte)
	outbound := make(chan *protocol.ServerMessage, h.queueSize)

	var wg sync.WaitGroup
	wg.Add(2)

	// Read loop: WebSocket -> event loop.
	go func() {
		defer wg.Done()
		defer cancel()
		h.readLoop(ctx, ws, inbound, connID)
	}()

	// Write pump: event loop -> WebSocket.
	go func() {
		defer wg.Done()
		defer cancel()
		h.writePump(ctx, ws, outbound, connID)
	}()

	h.eventLoop(ctx, session, inbound, outbound)
	session.Close()
	close(outbound)
	wg.Wait()
	slog.Info("Plugin session ended", "conn_id", connID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// eventLoop serializes message handling and directive sweeps onto one
// goroutine. It is the only sender on the outbound channel.
func (h *WebSocketHandler) eventLoop(ctx context.Context, session *engine.Session, inbound <-chan []byte, outbound chan<- *protocol.ServerMessage) {
	ticker := time.NewTicker(h.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			session.Sweep(h.directiveTimeout)
		case data, ok := <-inbound:
			if !ok {
				return
			}
			msg, err := protocol.DecodeClient(data)
			if err != nil {
				slog.Warn("Undecodable client message", "error", err, "conn_id", session.ID())
				// An empty envelope routes through the session's
				// protocol anomaly handling.
				msg = &protocol.ClientMessage{}
			}
			for _, out := range session.HandleMessage(ctx, msg) {
				select {
				case outbound <- out:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, inbound chan<- []byte, connID string) {
	defer close(inbound)
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by peer", "conn_id", connID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "conn_id", connID)
			}
			return
		}
		select {
		case inbound <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (h *WebSocketHandler) writePump(ctx context.Context, ws *websocket.Conn, outbound <-chan *protocol.ServerMessage, connID string) {
	for msg := range outbound {
		data, err := protocol.EncodeServer(msg)
		if err != nil {
			slog.Error("Failed to encode server message", "error", err, "conn_id", connID)
			continue
		}
		if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
			if ctx.Err() == nil {
				slog.Warn("WebSocket write error", "error", err, "conn_id", connID)
			}
			return
		}
	}
}
