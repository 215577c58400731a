package engineio

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

// Server represents an Engine.IO server
type Server struct {
	config    *Config
	logger    *slog.Logger
	metrics   *Metrics
	upgrader  websocket.Upgrader
	registry  *registry
	transport transport
	onConnect func(*Session)
}

// NewServer creates a new Engine.IO server. The transport named in the
// config is fixed for the lifetime of the server.
func NewServer(config *Config) (*Server, error) {
	config = config.withDefaults()

	s := &Server{
		config:   config,
		logger:   config.Logger.With("component", "engineio"),
		metrics:  config.Metrics,
		registry: newRegistry(),
	}

	checkOrigin := config.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:     checkOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	switch config.Transport {
	case TransportPolling:
		s.transport = pollingTransport{server: s}
	case TransportWebSocket:
		s.transport = websocketTransport{server: s}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransport, config.Transport)
	}

	return s, nil
}

// Config returns the effective configuration.
func (s *Server) Config() Config {
	return *s.config
}

// ServeHTTP dispatches Engine.IO requests to the configured transport.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, r)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	query := r.URL.Query()
	if err := s.checkQuery(query); err != nil {
		s.writeError(w, err)
		return
	}

	sid := query.Get("sid")
	if sid == "" {
		if r.Method != http.MethodGet {
			s.writeError(w, ErrBadHandshakeMethod)
			return
		}
		s.transport.handshake(w, r)
		return
	}

	session, ok := s.registry.get(sid)
	if !ok {
		s.writeError(w, ErrUnknownSession)
		return
	}
	s.transport.serve(session, w, r)
}

// OnConnect sets the handler called for every new session, before the
// handshake reaches the client.
func (s *Server) OnConnect(fn func(*Session)) {
	s.onConnect = fn
}

// GetSession retrieves a session by ID
func (s *Server) GetSession(sid string) (*Session, bool) {
	return s.registry.get(sid)
}

// Count returns the number of open sessions.
func (s *Server) Count() int {
	return s.registry.len()
}

// Close closes all sessions
func (s *Server) Close() {
	for _, session := range s.registry.snapshot() {
		session.Close("server shutdown")
	}
}

// open allocates a session and announces it to the connect handler.
func (s *Server) open(transport string) (*Session, error) {
	session, err := s.registry.create(transport, s)
	if err != nil {
		return nil, err
	}

	s.metrics.sessionOpened(transport)
	session.logger.Debug("session opened")
	session.startKeepAlive()

	if s.onConnect != nil {
		s.onConnect(session)
	}
	return session, nil
}

func (s *Server) checkQuery(query url.Values) error {
	if query.Get("EIO") != ProtocolVersion {
		return ErrUnsupportedProtocol
	}
	if query.Get("transport") != s.config.Transport {
		return ErrUnsupportedTransport
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	e := classify(err)
	body, _ := json.Marshal(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.status)
	w.Write(body)
}

// setCORSHeaders reflects the request origin so browser clients on any
// page can poll.
func setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	if origin := r.Header.Get("Origin"); origin != "" {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
	} else {
		h.Set("Access-Control-Allow-Origin", "*")
	}
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}
