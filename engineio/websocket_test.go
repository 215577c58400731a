package engineio

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWebSocket(t *testing.T, s *Server) (*websocket.Conn, string) {
	t.Helper()

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/engine.io/?EIO=4&transport=websocket"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read handshake: %v", err)
	}
	hs, err := DecodeHandshake(data)
	if err != nil {
		t.Fatalf("DecodeHandshake(%q): %v", data, err)
	}
	return conn, hs.SID
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	return string(data)
}

func TestWebSocketDeliversInOrder(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.Transport = TransportWebSocket })
	conn, sid := dialWebSocket(t, s)
	session := mustSession(t, s, sid)

	for _, msg := range []string{"a", "b", "c"} {
		session.SendMessage([]byte(msg))
	}

	for _, want := range []string{"4a", "4b", "4c"} {
		if got := readText(t, conn); got != want {
			t.Errorf("frame = %q, want %q", got, want)
		}
	}
}

func TestWebSocketIngest(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.Transport = TransportWebSocket })

	messages := make(chan string, 1)
	s.OnConnect(func(session *Session) {
		session.OnMessage(func(data []byte) { messages <- string(data) })
	})
	conn, sid := dialWebSocket(t, s)

	conn.WriteMessage(websocket.TextMessage, []byte("40"))
	select {
	case got := <-messages:
		if got != "0" {
			t.Errorf("message = %q, want \"0\"", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	conn.WriteMessage(websocket.TextMessage, []byte("1"))
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := s.GetSession(sid); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("close packet did not end the session")
}

func TestWebSocketServerRejectsPolling(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.Transport = TransportWebSocket })

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, pollURL(""), nil))
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != codeTransportUnknown {
		t.Errorf("got %d %q, want transport unknown", rec.Code, rec.Body.String())
	}
}
