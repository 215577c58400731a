package engineio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PacketType represents Engine.IO packet types
type PacketType byte

const (
	PacketTypeOpen PacketType = iota
	PacketTypeClose
	PacketTypePing
	PacketTypePong
	PacketTypeMessage
	PacketTypeUpgrade
	PacketTypeNoop
)

// Separator joins packets inside a polling payload. It is a control
// character that never appears in text packets.
const Separator byte = 0x1e

// Packet represents an Engine.IO packet
type Packet struct {
	Type PacketType
	Data []byte
}

// Encode encodes the packet to bytes
func (p *Packet) Encode() []byte {
	result := make([]byte, 0, len(p.Data)+1)
	result = append(result, byte('0'+p.Type))
	result = append(result, p.Data...)
	return result
}

// DecodePacket decodes bytes into a packet
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty packet", ErrMalformedPacket)
	}

	typeChar := data[0]
	if typeChar < '0' || typeChar > '6' {
		return nil, fmt.Errorf("%w: invalid packet type %q", ErrMalformedPacket, typeChar)
	}

	packet := &Packet{
		Type: PacketType(typeChar - '0'),
	}

	if len(data) > 1 {
		packet.Data = data[1:]
	}

	return packet, nil
}

// EncodePayload joins packets into one polling response body. It fails
// instead of corrupting the framing when a packet carries the separator.
func EncodePayload(packets []*Packet) (string, error) {
	var b strings.Builder
	for i, p := range packets {
		if bytes.IndexByte(p.Data, Separator) >= 0 {
			return "", ErrSeparatorInPacket
		}
		if i > 0 {
			b.WriteByte(Separator)
		}
		b.Write(p.Encode())
	}
	return b.String(), nil
}

// DecodePayload splits a polling request body into its encoded packets.
// Empty fragments are dropped.
func DecodePayload(payload string) []string {
	parts := strings.Split(payload, string(Separator))
	packets := parts[:0]
	for _, p := range parts {
		if p != "" {
			packets = append(packets, p)
		}
	}
	return packets
}

// HandshakeData represents the Engine.IO handshake response
type HandshakeData struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int64    `json:"pingInterval"`
	PingTimeout  int64    `json:"pingTimeout"`
	MaxPayload   int64    `json:"maxPayload"`
}

// EncodeHandshake creates an open packet with handshake data
func EncodeHandshake(sid string, config *Config) ([]byte, error) {
	upgrades := config.Upgrades
	if upgrades == nil {
		upgrades = []string{}
	}

	data := HandshakeData{
		SID:          sid,
		Upgrades:     upgrades,
		PingInterval: config.PingInterval.Milliseconds(),
		PingTimeout:  config.PingTimeout.Milliseconds(),
		MaxPayload:   config.MaxPayload,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	packet := &Packet{
		Type: PacketTypeOpen,
		Data: jsonData,
	}

	return packet.Encode(), nil
}

// DecodeHandshake parses the body of an open packet.
func DecodeHandshake(data []byte) (*HandshakeData, error) {
	packet, err := DecodePacket(data)
	if err != nil {
		return nil, err
	}
	if packet.Type != PacketTypeOpen {
		return nil, fmt.Errorf("%w: expected open packet, got %s", ErrMalformedPacket, packet.Type)
	}

	var hs HandshakeData
	if err := json.Unmarshal(packet.Data, &hs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPacket, err)
	}
	return &hs, nil
}

// String returns the packet type as a string
func (pt PacketType) String() string {
	switch pt {
	case PacketTypeOpen:
		return "open"
	case PacketTypeClose:
		return "close"
	case PacketTypePing:
		return "ping"
	case PacketTypePong:
		return "pong"
	case PacketTypeMessage:
		return "message"
	case PacketTypeUpgrade:
		return "upgrade"
	case PacketTypeNoop:
		return "noop"
	default:
		return "unknown(" + strconv.Itoa(int(pt)) + ")"
	}
}
