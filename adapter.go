package socketrelay

import "context"

// Adapter fans a broadcast packet out to the connected sockets of a
// namespace
type Adapter interface {
	// Broadcast sends a packet to every connected socket
	Broadcast(ctx context.Context, packet *Packet) error

	// Close cleans up the adapter
	Close() error
}
