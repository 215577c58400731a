package socketrelay

import (
	"context"
	"sync"

	"github.com/ramory-l/socketrelay/engineio"
)

// Namespace represents the Socket.IO namespace "/" and the sockets that
// completed the connect handshake on it.
type Namespace struct {
	name      string
	server    *Server
	adapter   Adapter
	sockets   map[string]*Socket
	mu        sync.RWMutex
	onConnect func(*Socket)
}

// NewNamespace creates a new namespace
func NewNamespace(name string, server *Server) *Namespace {
	ns := &Namespace{
		name:    name,
		server:  server,
		sockets: make(map[string]*Socket),
	}

	ns.adapter = NewMemoryAdapter(ns)

	return ns
}

// Name returns the namespace name
func (ns *Namespace) Name() string {
	return ns.name
}

// OnConnect sets the connection handler for this namespace
func (ns *Namespace) OnConnect(handler func(*Socket)) {
	ns.mu.Lock()
	ns.onConnect = handler
	ns.mu.Unlock()
}

// Emit broadcasts an event to all connected sockets
func (ns *Namespace) Emit(ctx context.Context, event string, data ...interface{}) error {
	ns.mu.RLock()
	adapter := ns.adapter
	ns.mu.RUnlock()

	return adapter.Broadcast(ctx, NewEvent(event, data...))
}

// Sockets returns all connected sockets
func (ns *Namespace) Sockets() []*Socket {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	sockets := make([]*Socket, 0, len(ns.sockets))
	for _, socket := range ns.sockets {
		sockets = append(sockets, socket)
	}
	return sockets
}

// GetSocket retrieves a socket by ID
func (ns *Namespace) GetSocket(id string) (*Socket, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	socket, ok := ns.sockets[id]
	return socket, ok
}

// Len returns the number of connected sockets.
func (ns *Namespace) Len() int {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return len(ns.sockets)
}

// SetAdapter replaces the broadcast adapter. The previous adapter is
// returned so the caller can close it.
func (ns *Namespace) SetAdapter(adapter Adapter) Adapter {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	prev := ns.adapter
	ns.adapter = adapter
	return prev
}

// Adapter returns the broadcast adapter in use.
func (ns *Namespace) Adapter() Adapter {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.adapter
}

// connect accepts the client's connect packet: the socket becomes a
// broadcast target and the client is sent the connect acknowledgement.
// A session that is already connected keeps its socket and created is
// false.
func (ns *Namespace) connect(session *engineio.Session) (socket *Socket, created bool) {
	ns.mu.Lock()
	if existing, ok := ns.sockets[session.ID()]; ok {
		ns.mu.Unlock()
		return existing, false
	}
	socket = NewSocket(session.ID(), session, ns)
	ns.sockets[socket.ID()] = socket
	handler := ns.onConnect
	ns.mu.Unlock()

	// The session may have closed before the socket was visible to its
	// close handler.
	select {
	case <-session.Done():
		ns.removeSocket(socket.ID())
		return socket, true
	default:
	}

	ack := &Packet{
		Type:      PacketTypeConnect,
		Namespace: ns.name,
		Data:      map[string]interface{}{"sid": socket.ID()},
	}
	socket.sendPacket(ack)
	session.SetConnected(true)

	if handler != nil {
		handler(socket)
	}
	return socket, true
}

func (ns *Namespace) removeSocket(id string) {
	ns.mu.Lock()
	delete(ns.sockets, id)
	ns.mu.Unlock()
}

// deliver queues an encoded Socket.IO packet on every connected socket of
// this process and returns how many accepted it. Sessions are only
// appended to, so a held poll never blocks the fan-out.
func (ns *Namespace) deliver(encoded string) int {
	sockets := ns.Sockets()
	data := []byte(encoded)

	n := 0
	for _, socket := range sockets {
		if !socket.session.Connected() {
			continue
		}
		if err := socket.session.SendMessage(data); err != nil {
			continue
		}
		n++
	}

	ns.server.metrics.ObserveRecipients(n)
	return n
}
