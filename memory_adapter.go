package socketrelay

import "context"

// MemoryAdapter delivers broadcasts to the sockets of this process only.
type MemoryAdapter struct {
	namespace *Namespace
}

// NewMemoryAdapter creates a new in-memory adapter
func NewMemoryAdapter(namespace *Namespace) *MemoryAdapter {
	return &MemoryAdapter{namespace: namespace}
}

// Broadcast encodes the packet once and queues it on every connected socket.
func (a *MemoryAdapter) Broadcast(ctx context.Context, packet *Packet) error {
	encoded, err := packet.Encode()
	if err != nil {
		return err
	}

	a.namespace.deliver(encoded)
	return nil
}

// Close is a no-op.
func (a *MemoryAdapter) Close() error {
	return nil
}
