package engineio

import (
	"bytes"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Session represents an Engine.IO session
type Session struct {
	id        string
	transport string
	server    *Server
	conn      *websocket.Conn // websocket transport only
	logger    *slog.Logger
	createdAt time.Time

	// mu guards every field below up to closeOnce.
	mu         sync.Mutex
	lastPongAt time.Time
	queue      []*Packet
	poll       *pollRequest
	holdTimer  *time.Timer
	pingTimer  *time.Timer
	connected  bool
	dead       bool
	wake       chan struct{}
	flushes    uint64 // flushes that carried packets

	closeOnce sync.Once
	closed    chan struct{}

	handlersMu sync.RWMutex
	onMessage  func([]byte)
	onClose    func(string)
}

// pollRequest is the slot of a held polling GET. The flush that resolves
// it sends the drained packets on result exactly once.
type pollRequest struct {
	result chan []*Packet

	// flushedAt is the session's flush count after resolving this poll.
	// Guarded by the session mutex.
	flushedAt uint64
}

func newSession(id, transport string, server *Server) *Session {
	now := time.Now()
	return &Session{
		id:         id,
		transport:  transport,
		server:     server,
		logger:     server.logger.With("sid", id, "transport", transport),
		createdAt:  now,
		lastPongAt: now,
		wake:       make(chan struct{}, 1),
		closed:     make(chan struct{}),
	}
}

// ID returns the session ID
func (s *Session) ID() string {
	return s.id
}

// Transport returns the transport the session was opened on.
func (s *Session) Transport() string {
	return s.transport
}

// CreatedAt returns the handshake time.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastPong returns when the client last answered a ping, or the creation
// time if it never did.
func (s *Session) LastPong() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPongAt
}

// SetConnected marks whether the client completed the application-level
// connect. Broadcasts only target connected sessions.
func (s *Session) SetConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}

// Connected reports whether the client completed the application-level
// connect.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}

// Send queues a packet for the client. Packets are delivered in the order
// Send is called. Send never waits for the client.
func (s *Session) Send(packet *Packet) error {
	if bytes.IndexByte(packet.Data, Separator) >= 0 {
		return ErrSeparatorInPacket
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dead {
		return ErrSessionClosed
	}
	s.queue = append(s.queue, packet)
	s.notifyLocked()
	return nil
}

// SendMessage queues a message packet carrying data.
func (s *Session) SendMessage(data []byte) error {
	return s.Send(&Packet{Type: PacketTypeMessage, Data: data})
}

// Close closes the session. A close packet is offered to the client on a
// best-effort basis. Calling Close more than once is a no-op.
func (s *Session) Close(reason string) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.queue = append(s.queue, &Packet{Type: PacketTypeClose})
		if s.poll != nil {
			s.flushLocked()
		}
		s.dead = true
		s.connected = false
		s.stopTimersLocked()
		s.mu.Unlock()

		close(s.closed)
		s.server.registry.remove(s.id)

		s.server.metrics.sessionClosed(s.transport, reason)
		s.logger.Debug("session closed", "reason", reason)

		s.handlersMu.RLock()
		handler := s.onClose
		s.handlersMu.RUnlock()

		if handler != nil {
			handler(reason)
		}
	})
}

// OnMessage sets the message handler
func (s *Session) OnMessage(fn func([]byte)) {
	s.handlersMu.Lock()
	s.onMessage = fn
	s.handlersMu.Unlock()
}

// OnClose sets the close handler
func (s *Session) OnClose(fn func(string)) {
	s.handlersMu.Lock()
	s.onClose = fn
	s.handlersMu.Unlock()
}

// notifyLocked hands queued packets to whatever is waiting on them: the
// held poll for polling sessions, the writer goroutine for websocket ones.
func (s *Session) notifyLocked() {
	switch s.transport {
	case TransportPolling:
		if s.poll != nil {
			s.flushLocked()
		}
	default:
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// flushLocked drains the whole queue into the held poll, substituting a
// noop when nothing is queued, and releases the hold.
func (s *Session) flushLocked() {
	p := s.poll
	if p == nil {
		return
	}

	packets := s.queue
	s.queue = nil
	if len(packets) == 0 {
		packets = []*Packet{{Type: PacketTypeNoop}}
	} else {
		s.flushes++
	}
	p.flushedAt = s.flushes

	s.poll = nil
	if s.holdTimer != nil {
		s.holdTimer.Stop()
		s.holdTimer = nil
	}

	p.result <- packets
}

// drainLocked takes every queued packet.
func (s *Session) drainLocked() []*Packet {
	packets := s.queue
	s.queue = nil
	return packets
}

func (s *Session) stopTimers() {
	s.mu.Lock()
	s.stopTimersLocked()
	s.mu.Unlock()
}

func (s *Session) stopTimersLocked() {
	if s.holdTimer != nil {
		s.holdTimer.Stop()
		s.holdTimer = nil
	}
	if s.pingTimer != nil {
		s.pingTimer.Stop()
		s.pingTimer = nil
	}
}

// handlePacket processes one packet received from the client. It reports
// false once the session has been closed by the packet.
func (s *Session) handlePacket(packet *Packet) bool {
	s.server.metrics.received(packet.Type)

	switch packet.Type {
	case PacketTypePong:
		s.handlePong()
	case PacketTypePing:
		s.handlePing(packet.Data)
	case PacketTypeMessage:
		s.handleMessage(packet.Data)
	case PacketTypeClose:
		s.Close("client closed")
		return false
	default:
		s.logger.Debug("ignoring packet", "type", packet.Type.String())
	}
	return true
}

func (s *Session) handlePing(data []byte) {
	s.Send(&Packet{Type: PacketTypePong, Data: data})
}

func (s *Session) handlePong() {
	s.mu.Lock()
	s.lastPongAt = time.Now()
	s.mu.Unlock()
}

func (s *Session) handleMessage(data []byte) {
	s.handlersMu.RLock()
	handler := s.onMessage
	s.handlersMu.RUnlock()

	if handler != nil {
		handler(data)
	}
}
