package engineio

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestPacketEncode(t *testing.T) {
	tests := []struct {
		packet Packet
		want   string
	}{
		{Packet{Type: PacketTypeOpen, Data: []byte(`{"sid":"x"}`)}, `0{"sid":"x"}`},
		{Packet{Type: PacketTypeClose}, "1"},
		{Packet{Type: PacketTypePing}, "2"},
		{Packet{Type: PacketTypePong, Data: []byte("probe")}, "3probe"},
		{Packet{Type: PacketTypeMessage, Data: []byte(`2["a",1]`)}, `42["a",1]`},
		{Packet{Type: PacketTypeNoop}, "6"},
	}

	for _, tt := range tests {
		if got := string(tt.packet.Encode()); got != tt.want {
			t.Errorf("Encode(%s) = %q, want %q", tt.packet.Type, got, tt.want)
		}
	}
}

func TestDecodePacket(t *testing.T) {
	p, err := DecodePacket([]byte("40"))
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if p.Type != PacketTypeMessage || string(p.Data) != "0" {
		t.Errorf("got type=%s data=%q, want message \"0\"", p.Type, p.Data)
	}

	p, err = DecodePacket([]byte("3"))
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if p.Type != PacketTypePong || p.Data != nil {
		t.Errorf("got type=%s data=%q, want bare pong", p.Type, p.Data)
	}
}

func TestDecodePacketErrors(t *testing.T) {
	for _, in := range []string{"", "7", "x", "b4AQID"} {
		if _, err := DecodePacket([]byte(in)); !errors.Is(err, ErrMalformedPacket) {
			t.Errorf("DecodePacket(%q) err = %v, want ErrMalformedPacket", in, err)
		}
	}
}

func TestEncodePayload(t *testing.T) {
	got, err := EncodePayload([]*Packet{
		{Type: PacketTypeMessage, Data: []byte("hello")},
		{Type: PacketTypePing},
		{Type: PacketTypeMessage, Data: []byte("€")},
	})
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	if want := "4hello\x1e2\x1e4€"; got != want {
		t.Errorf("EncodePayload = %q, want %q", got, want)
	}
}

func TestEncodePayloadRejectsSeparator(t *testing.T) {
	_, err := EncodePayload([]*Packet{{Type: PacketTypeMessage, Data: []byte("a\x1eb")}})
	if !errors.Is(err, ErrSeparatorInPacket) {
		t.Errorf("err = %v, want ErrSeparatorInPacket", err)
	}
}

func TestDecodePayloadDropsEmptyFragments(t *testing.T) {
	got := DecodePayload("\x1e4a\x1e\x1e3\x1e")
	want := []string{"4a", "3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodePayload = %q, want %q", got, want)
	}

	if got := DecodePayload(""); len(got) != 0 {
		t.Errorf("DecodePayload(\"\") = %q, want empty", got)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	payloads := []string{
		"6",
		"40",
		`42["ping_event",{"n":1}]`,
		"2\x1e2\x1e2",
		`40{"sid":"abc"}` + "\x1e" + `42["warningTimeChanged",{"time":"2024-04-03 07:58:09"}]` + "\x1e3",
	}

	for _, payload := range payloads {
		var packets []*Packet
		for _, raw := range DecodePayload(payload) {
			p, err := DecodePacket([]byte(raw))
			if err != nil {
				t.Fatalf("DecodePacket(%q): %v", raw, err)
			}
			packets = append(packets, p)
		}

		got, err := EncodePayload(packets)
		if err != nil {
			t.Fatalf("EncodePayload: %v", err)
		}
		if got != payload {
			t.Errorf("round trip = %q, want %q", got, payload)
		}
	}
}

func TestEncodeHandshake(t *testing.T) {
	cfg := &Config{
		PingInterval: 25 * time.Second,
		PingTimeout:  20 * time.Second,
		MaxPayload:   1e6,
	}

	data, err := EncodeHandshake("abc", cfg)
	if err != nil {
		t.Fatalf("EncodeHandshake: %v", err)
	}
	if !strings.Contains(string(data), `"upgrades":[]`) {
		t.Errorf("handshake %s should advertise an empty upgrade list", data)
	}

	hs, err := DecodeHandshake(data)
	if err != nil {
		t.Fatalf("DecodeHandshake: %v", err)
	}
	if hs.SID != "abc" || hs.PingInterval != 25000 || hs.PingTimeout != 20000 || hs.MaxPayload != 1e6 {
		t.Errorf("unexpected handshake %+v", hs)
	}
}

func TestDecodeHandshakeRejectsOtherPackets(t *testing.T) {
	if _, err := DecodeHandshake([]byte("6")); !errors.Is(err, ErrMalformedPacket) {
		t.Errorf("err = %v, want ErrMalformedPacket", err)
	}
}

func TestPacketTypeString(t *testing.T) {
	if got := PacketTypeNoop.String(); got != "noop" {
		t.Errorf("String() = %q, want noop", got)
	}
	if got := PacketType(9).String(); got != "unknown(9)" {
		t.Errorf("String() = %q, want unknown(9)", got)
	}
}
