package socketrelay

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PacketType represents Socket.IO packet types
type PacketType int

const (
	PacketTypeConnect PacketType = iota
	PacketTypeDisconnect
	PacketTypeEvent
	PacketTypeAck
	PacketTypeConnectError
)

// DefaultNamespace is the only namespace served.
const DefaultNamespace = "/"

// Packet represents a Socket.IO packet
type Packet struct {
	Type      PacketType
	Namespace string
	Data      interface{}
}

// NewEvent builds an event packet for the default namespace.
func NewEvent(event string, data ...interface{}) *Packet {
	args := make([]interface{}, 0, len(data)+1)
	args = append(args, event)
	args = append(args, data...)

	return &Packet{
		Type:      PacketTypeEvent,
		Namespace: DefaultNamespace,
		Data:      args,
	}
}

// Encode encodes a Socket.IO packet to string
func (p *Packet) Encode() (string, error) {
	var builder strings.Builder

	builder.WriteString(strconv.Itoa(int(p.Type)))

	// Namespace (if not default)
	if p.Namespace != "" && p.Namespace != DefaultNamespace {
		builder.WriteString(p.Namespace)
		builder.WriteByte(',')
	}

	if p.Data != nil {
		jsonData, err := json.Marshal(p.Data)
		if err != nil {
			return "", fmt.Errorf("failed to marshal packet data: %w", err)
		}
		builder.Write(jsonData)
	}

	return builder.String(), nil
}

// DecodePacket decodes a Socket.IO packet from string
func DecodePacket(data string) (*Packet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty packet")
	}

	packet := &Packet{
		Namespace: DefaultNamespace,
	}

	pos := 0

	if data[pos] < '0' || data[pos] > '6' {
		return nil, fmt.Errorf("invalid packet type: %c", data[pos])
	}
	packet.Type = PacketType(data[pos] - '0')
	pos++

	if pos >= len(data) {
		return packet, nil
	}

	if data[pos] == '/' {
		end := strings.IndexByte(data[pos:], ',')
		if end == -1 {
			packet.Namespace = data[pos:]
			return packet, nil
		}
		packet.Namespace = data[pos : pos+end]
		pos += end + 1
	}

	// Acknowledgement ids are not supported; skip them.
	for pos < len(data) && data[pos] >= '0' && data[pos] <= '9' {
		pos++
	}

	if pos >= len(data) {
		return packet, nil
	}

	if err := json.Unmarshal([]byte(data[pos:]), &packet.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal packet data: %w", err)
	}

	return packet, nil
}

// Event returns the event name and arguments of an event packet.
func (p *Packet) Event() (string, []interface{}, bool) {
	if p.Type != PacketTypeEvent {
		return "", nil, false
	}

	args, ok := p.Data.([]interface{})
	if !ok || len(args) == 0 {
		return "", nil, false
	}

	name, ok := args[0].(string)
	if !ok {
		return "", nil, false
	}
	return name, args[1:], true
}

// String returns the packet type as a string
func (pt PacketType) String() string {
	switch pt {
	case PacketTypeConnect:
		return "connect"
	case PacketTypeDisconnect:
		return "disconnect"
	case PacketTypeEvent:
		return "event"
	case PacketTypeAck:
		return "ack"
	case PacketTypeConnectError:
		return "connect_error"
	default:
		return "unknown"
	}
}
