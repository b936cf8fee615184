package api

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/smarthome-core/internal/infrastructure/logging"
)

const (
	// echoPrefix precedes every echoed text frame.
	echoPrefix = "server received: "

	// wsWriteTimeout bounds a single echo write.
	wsWriteTimeout = 10 * time.Second
)

// upgrader accepts every origin; the echo channel has no auth and no
// subprotocol.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Hub tracks live echo sessions so shutdown can close them.
type Hub struct {
	logger   *logging.Logger
	sessions map[*echoSession]struct{}
	closed   bool // set by closeAll; later sessions are refused
	mu       sync.Mutex
}

// echoSession is one upgraded connection.
type echoSession struct {
	conn    *websocket.Conn
	closing atomic.Bool // set when the server closes the session
}

// NewHub creates an empty session hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:   logger,
		sessions: make(map[*echoSession]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes every session.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a session to the hub. It returns false once the hub has
// been closed; the caller must then close the connection itself.
func (h *Hub) Register(session *echoSession) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.sessions[session] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", h.ClientCount())
	return true
}

// Unregister removes a session from the hub.
func (h *Hub) Unregister(session *echoSession) {
	h.mu.Lock()
	delete(h.sessions, session)
	h.mu.Unlock()
	h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
}

// ClientCount returns the number of live sessions.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// closeAll sends a going-away close frame to every session, closes it, and
// refuses any later Register. Safe to call more than once.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for session := range h.sessions {
		session.goAway()
		delete(h.sessions, session)
	}
}

// goAway sends a going-away close frame and closes the connection.
func (s *echoSession) goAway() {
	s.closing.Store(true)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	//nolint:errcheck // Best-effort close frame; the connection is closed regardless
	s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	s.conn.Close()
}

// handleWebSocket upgrades the connection and runs the echo loop until the
// client leaves or an error occurs.
//
// Text frames are answered with "server received: <text>". Binary frames are
// ignored.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	session := &echoSession{conn: conn}
	if !s.hub.Register(session) {
		s.logger.Debug("websocket refused during shutdown")
		session.goAway()
		return
	}
	defer func() {
		s.hub.Unregister(session)
		conn.Close()
	}()

	if s.wsCfg.MaxMessageSize > 0 {
		conn.SetReadLimit(int64(s.wsCfg.MaxMessageSize))
	}

	s.echoLoop(session)
}

// echoLoop reads frames until the connection ends.
func (s *Server) echoLoop(session *echoSession) {
	conn := session.conn
	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			switch {
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				s.logger.Debug("websocket closed by client", "error", err)
			case session.closing.Load():
				s.logger.Debug("websocket closed by server")
			default:
				s.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}

		//nolint:errcheck // Best-effort deadline; write error caught below
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(echoPrefix+string(message))); err != nil {
			s.logger.Warn("websocket write error", "error", err)
			return
		}

		if s.telemetry != nil {
			s.telemetry.WriteEchoMessage(len(message))
		}
	}
}
