package socketrelay

import (
	"sync"

	"github.com/ramory-l/socketrelay/engineio"
)

// Socket represents a client connection
type Socket struct {
	id         string
	session    *engineio.Session
	namespace  *Namespace
	handlers   map[string][]EventHandler
	handlersMu sync.RWMutex

	onDisconnect []func(string)
	disconnectMu sync.RWMutex
}

// EventHandler handles Socket.IO events
type EventHandler func(...interface{})

// NewSocket creates a new socket
func NewSocket(id string, session *engineio.Session, namespace *Namespace) *Socket {
	return &Socket{
		id:        id,
		session:   session,
		namespace: namespace,
		handlers:  make(map[string][]EventHandler),
	}
}

// ID returns the socket ID
func (s *Socket) ID() string {
	return s.id
}

// Transport returns the name of the underlying Engine.IO transport.
func (s *Socket) Transport() string {
	return s.session.Transport()
}

// Emit sends an event to this client only
func (s *Socket) Emit(event string, data ...interface{}) error {
	return s.sendPacket(NewEvent(event, data...))
}

// On registers an event handler
func (s *Socket) On(event string, handler EventHandler) {
	s.handlersMu.Lock()
	s.handlers[event] = append(s.handlers[event], handler)
	s.handlersMu.Unlock()
}

// OnDisconnect registers a disconnect handler
func (s *Socket) OnDisconnect(handler func(string)) {
	s.disconnectMu.Lock()
	s.onDisconnect = append(s.onDisconnect, handler)
	s.disconnectMu.Unlock()
}

// Disconnect tells the client it is disconnected and closes the session.
func (s *Socket) Disconnect() {
	s.sendPacket(&Packet{Type: PacketTypeDisconnect, Namespace: s.namespace.name})
	s.session.Close("server disconnect")
}

func (s *Socket) sendPacket(packet *Packet) error {
	encoded, err := packet.Encode()
	if err != nil {
		return err
	}
	return s.session.SendMessage([]byte(encoded))
}

func (s *Socket) handlePacket(packet *Packet) {
	switch packet.Type {
	case PacketTypeEvent:
		s.handleEvent(packet)
	case PacketTypeDisconnect:
		s.session.Close("client disconnect")
	}
}

func (s *Socket) handleEvent(packet *Packet) {
	event, args, ok := packet.Event()
	if !ok {
		return
	}

	s.handlersMu.RLock()
	handlers := s.handlers[event]
	s.handlersMu.RUnlock()

	for _, handler := range handlers {
		go handler(args...)
	}
}

func (s *Socket) handleClose(reason string) {
	s.namespace.removeSocket(s.id)

	s.disconnectMu.RLock()
	handlers := s.onDisconnect
	s.disconnectMu.RUnlock()

	for _, handler := range handlers {
		go handler(reason)
	}
}
