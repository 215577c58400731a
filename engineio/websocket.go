package engineio

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// websocketTransport serves the native variant: one websocket connection
// per session, one text frame per packet.
type websocketTransport struct {
	server *Server
}

func (t websocketTransport) handshake(w http.ResponseWriter, r *http.Request) {
	conn, err := t.server.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.server.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	conn.SetReadLimit(t.server.config.MaxPayload)

	session, err := t.server.open(TransportWebSocket)
	if err != nil {
		t.server.logger.Error("open session", "err", err)
		conn.Close()
		return
	}
	session.conn = conn

	handshake, err := EncodeHandshake(session.ID(), t.server.config)
	if err != nil {
		session.Close("handshake error")
		conn.Close()
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, handshake); err != nil {
		session.Close("transport error")
		conn.Close()
		return
	}

	go session.writeLoop()
	go session.readLoop()
}

// serve rejects requests that name an existing sid: upgrading a polling
// session is not supported and websocket sessions are never polled.
func (t websocketTransport) serve(session *Session, w http.ResponseWriter, r *http.Request) {
	t.server.writeError(w, ErrBadRequest)
}

func (s *Session) readLoop() {
	defer s.Close("transport error")

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		packet, err := DecodePacket(data)
		if err != nil {
			s.logger.Debug("skipping packet", "err", err)
			continue
		}

		if !s.handlePacket(packet) {
			return
		}
	}
}

// writeLoop is the only writer on the connection. After the session
// closes it flushes what is left, including the close packet, and
// closes the connection.
func (s *Session) writeLoop() {
	defer s.conn.Close()

	for {
		select {
		case <-s.wake:
			if !s.writeQueued() {
				s.Close("transport error")
				return
			}
		case <-s.closed:
			s.writeQueued()
			return
		}
	}
}

func (s *Session) writeQueued() bool {
	s.mu.Lock()
	packets := s.drainLocked()
	s.mu.Unlock()

	for _, packet := range packets {
		if err := s.conn.WriteMessage(websocket.TextMessage, packet.Encode()); err != nil {
			s.logger.Debug("websocket write failed", "err", err)
			return false
		}
	}
	s.server.metrics.sent(len(packets))
	return true
}
