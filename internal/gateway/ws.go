package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hollowroot/verse/internal/session"
	"github.com/hollowroot/verse/internal/worldserver"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser clients connect from arbitrary origins; auth is external.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWS upgrades a connection and runs its read loop. Each connection
// gets a fresh handle; client identity does not survive a reconnect.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	handle := uuid.NewString()
	sess, err := s.sessions.Create(handle, "")
	if err != nil {
		s.logger.Error("registering connection", zap.String("handle", handle), zap.Error(err))
		_ = conn.Close()
		return
	}
	s.logger.Info("client connected",
		zap.String("handle", handle),
		zap.String("remote", conn.RemoteAddr().String()))

	go s.writePump(conn, sess.Entity)
	s.readPump(conn, handle)
}

// readPump decodes inbound envelopes and hands them to the dispatcher. It
// returns when the connection drops, queuing the session teardown.
func (s *Server) readPump(conn *websocket.Conn, handle string) {
	defer func() {
		_ = conn.Close()
		if err := s.dispatcher.Enqueue(func() {
			s.controller.Disconnect(handle)
		}); err != nil {
			s.logger.Warn("queuing disconnect", zap.String("handle", handle), zap.Error(err))
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read", zap.String("handle", handle), zap.Error(err))
			}
			return
		}

		var env worldserver.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.logger.Debug("malformed frame", zap.String("handle", handle), zap.Error(err))
			continue
		}

		if err := s.dispatcher.Enqueue(func() {
			s.controller.HandleEvent(handle, env)
		}); err != nil {
			return
		}
	}
}

// writePump drains the session entity onto the socket and keeps the
// connection alive with pings. It exits when the entity closes.
func (s *Server) writePump(conn *websocket.Conn, entity *session.ClientEntity) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case payload, ok := <-entity.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
