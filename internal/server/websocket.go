package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second

	// pongWait bounds how long the client may stay silent.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = pongWait * 9 / 10

	// clients only send control frames
	wsReadLimit = 512
)

// handleWebSocket streams snapshots over a WebSocket, one subscription per
// connection.
//
// A read pump watches for the client going away; this goroutine owns every
// write.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = ws.Close() }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := newQueueConn("ws")
	defer conn.Close()

	sub, err := s.subscriber.Subscribe(ctx, conn)
	if err != nil {
		s.closeWebSocket(ws, websocket.CloseTryAgainLater, "unavailable")
		return
	}
	defer s.subscriber.Unsubscribe(sub)

	go s.readPump(ws, cancel)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeWebSocket(ws, websocket.CloseGoingAway, "")
			return

		case msg := <-conn.Messages():
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := ws.WriteJSON(msg); err != nil {
				s.logger.Debug("websocket write failed", "error", err, "conn_id", conn.ID())
				return
			}

		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				s.logger.Debug("websocket ping failed", "error", err, "conn_id", conn.ID())
				return
			}
		}
	}
}

// readPump discards client frames and cancels the connection once reading
// fails, which is how a close or a dead peer surfaces.
func (s *Server) readPump(ws *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	ws.SetReadLimit(wsReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) closeWebSocket(ws *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
}
