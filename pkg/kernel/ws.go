package kernel

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// wsMessage is the frame exchanged on /api/ws in both directions.
// Client types: "message", "reset", "ping". Server types: "session",
// "result", "error", "pong".
type wsMessage struct {
	Type      string             `json:"type"`
	SessionID string             `json:"sessionId,omitempty"`
	Content   string             `json:"content,omitempty"`
	Result    *domain.TurnResult `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(msg wsMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(msg)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.allowOrigin,
	}
}

func (s *Server) allowOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// handleWebSocket runs chat turns over a WebSocket. The session is taken
// from ?session_id=, else from the first message, else generated, and then
// stays fixed for the connection. GET /api/ws
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	up := s.upgrader()
	raw, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn := &wsConn{conn: raw}
	defer raw.Close()

	raw.SetReadLimit(maxBodyBytes)
	_ = raw.SetReadDeadline(time.Now().Add(wsPongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.ping(); err != nil {
					return
				}
			}
		}
	}()

	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	s.logger.Info("websocket connected", "session_id", sessionID, "remote", r.RemoteAddr)

	for {
		var msg wsMessage
		if err := raw.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "session_id", sessionID, "error", err)
			}
			return
		}
		if sessionID == "" {
			sessionID = strings.TrimSpace(msg.SessionID)
		}

		var reply wsMessage
		switch msg.Type {
		case "ping":
			reply = wsMessage{Type: "pong", SessionID: sessionID}
		case "reset":
			if sessionID == "" {
				reply = wsMessage{Type: "error", Error: "no session to reset"}
				break
			}
			if err := s.chat.Reset(r.Context(), sessionID); err != nil {
				reply = s.wsFailure("websocket reset failed", sessionID, err)
				break
			}
			reply = wsMessage{Type: "session", SessionID: sessionID}
		case "message", "":
			res, err := s.chat.Chat(r.Context(), sessionID, msg.Content)
			if err != nil {
				reply = s.wsFailure("websocket turn failed", sessionID, err)
				break
			}
			sessionID = res.SessionID
			reply = wsMessage{Type: "result", SessionID: sessionID, Result: res}
		default:
			reply = wsMessage{Type: "error", SessionID: sessionID, Error: "unknown message type " + msg.Type}
		}

		if err := conn.send(reply); err != nil {
			s.logger.Warn("websocket write failed", "session_id", sessionID, "error", err)
			return
		}
	}
}

func (s *Server) wsFailure(msg, sessionID string, err error) wsMessage {
	status, public := publicError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, "session_id", sessionID, "error", err)
	}
	return wsMessage{Type: "error", SessionID: sessionID, Error: public}
}
