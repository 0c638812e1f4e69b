package websocket

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/coder/websocket"

	"github.com/getmockd/stubby/pkg/logging"
	"github.com/getmockd/stubby/pkg/stub"
)

// DefaultMaxMessageSize caps inbound client messages.
const DefaultMaxMessageSize = 1 << 20

// Handler upgrades requests and runs a Session per connection.
type Handler struct {
	logger         *slog.Logger
	maxMessageSize int64
	active         atomic.Int64
	total          atomic.Int64

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMaxMessageSize sets the read limit for client messages.
func WithMaxMessageSize(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxMessageSize = n
		}
	}
}

// NewHandler creates a Handler.
func NewHandler(opts ...HandlerOption) *Handler {
	h := &Handler{
		logger:         logging.Nop(),
		maxMessageSize: DefaultMaxMessageSize,
		sessions:       make(map[*Session]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Active returns the number of open connections.
func (h *Handler) Active() int64 { return h.active.Load() }

// Total returns the number of connections accepted so far.
func (h *Handler) Total() int64 { return h.total.Load() }

// Serve upgrades r and runs the scripted exchange for cfg until the
// connection closes. It blocks for the lifetime of the connection.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, cfg *stub.WebSocketConfig) error {
	if offered := clientSubprotocols(r); len(offered) > 0 && len(cfg.SubProtocols) > 0 {
		if !anySupported(cfg, offered) {
			http.Error(w, ErrSubprotocolMismatch.Error(), http.StatusBadRequest)
			return ErrSubprotocolMismatch
		}
	}

	wsConn, err := ws.Accept(w, r, &ws.AcceptOptions{
		Subprotocols:       cfg.SubProtocols,
		InsecureSkipVerify: true,
		CompressionMode:    ws.CompressionDisabled,
	})
	if err != nil {
		return err
	}
	wsConn.SetReadLimit(h.maxMessageSize)

	conn := NewConnection(wsConn, r)
	h.active.Add(1)
	h.total.Add(1)
	start := time.Now()
	logger := h.logger.With("connection", conn.ID(), "url", cfg.URL)
	logger.Info("web socket connected", "remote", r.RemoteAddr, "subprotocol", conn.Subprotocol())

	session := NewSession(cfg, conn, logger)
	h.track(session)
	defer func() {
		_ = session.Close(CloseNormalClosure, "")
		h.untrack(session)
		h.active.Add(-1)
		logger.Info("web socket disconnected",
			"duration", time.Since(start),
			"received", conn.MessagesReceived(),
			"sent", conn.MessagesSent(),
		)
	}()

	ctx := conn.Context()
	if err := session.Open(ctx); err != nil {
		logger.Debug("on-open response not sent", "error", err)
	}

	for session.State() == StateOpen {
		t, data, err := conn.Read()
		if err != nil {
			return nil
		}
		if err := session.HandleMessage(ctx, t, data); err != nil {
			logger.Debug("on-message response not sent", "error", err)
		}
	}
	return nil
}

// CloseAll closes every open connection with a going away status. Hijacked
// connections are invisible to http.Server.Shutdown, so the server calls
// this when it stops.
func (h *Handler) CloseAll() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		if err := s.Close(CloseGoingAway, "server shutting down"); err != nil {
			h.logger.Debug("closing web socket", "error", err)
		}
	}
}

func (h *Handler) track(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Handler) untrack(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
}

func clientSubprotocols(r *http.Request) []string {
	var out []string
	for _, v := range r.Header.Values("Sec-WebSocket-Protocol") {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func anySupported(cfg *stub.WebSocketConfig, offered []string) bool {
	for _, p := range offered {
		if cfg.SupportsSubProtocol(p) {
			return true
		}
	}
	return false
}

// IsUpgradeRequest reports whether r asks for a web socket upgrade.
func IsUpgradeRequest(r *http.Request) bool {
	if !strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade") {
		return false
	}
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
