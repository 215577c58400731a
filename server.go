package socketrelay

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ramory-l/socketrelay/engineio"
)

// DefaultPath is the mount path Socket.IO clients use by default.
const DefaultPath = "/socket.io/"

const tracerName = "github.com/ramory-l/socketrelay"

// Server represents a Socket.IO server
type Server struct {
	eio       *engineio.Server
	namespace *Namespace
	path      string
	logger    *slog.Logger
	metrics   *engineio.Metrics
	tracer    trace.Tracer
}

// Config represents Socket.IO server configuration
type Config struct {
	PingInterval time.Duration
	PingTimeout  time.Duration
	PollTimeout  time.Duration
	MaxPayload   int64

	// Transport is engineio.TransportPolling or engineio.TransportWebSocket.
	Transport string

	// Path is the URL prefix requests must carry. Default: DefaultPath.
	Path string

	Logger  *slog.Logger
	Metrics *engineio.Metrics
}

// NewServer creates a new Socket.IO server
func NewServer(config *Config) (*Server, error) {
	if config == nil {
		config = &Config{}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	eio, err := engineio.NewServer(&engineio.Config{
		PingInterval: config.PingInterval,
		PingTimeout:  config.PingTimeout,
		PollTimeout:  config.PollTimeout,
		MaxPayload:   config.MaxPayload,
		Transport:    config.Transport,
		Logger:       logger,
		Metrics:      config.Metrics,
	})
	if err != nil {
		return nil, err
	}

	path := config.Path
	if path == "" {
		path = DefaultPath
	}

	server := &Server{
		eio:     eio,
		path:    path,
		logger:  logger.With("component", "socketio"),
		metrics: config.Metrics,
		tracer:  otel.Tracer(tracerName),
	}
	server.namespace = NewNamespace(DefaultNamespace, server)

	server.eio.OnConnect(server.handleSession)

	return server, nil
}

// OnConnect sets the connection handler
func (s *Server) OnConnect(handler func(*Socket)) {
	s.namespace.OnConnect(handler)
}

// Namespace returns the default namespace
func (s *Server) Namespace() *Namespace {
	return s.namespace
}

// Engine returns the underlying Engine.IO server.
func (s *Server) Engine() *engineio.Server {
	return s.eio
}

// Broadcast sends one event to every connected client. It returns once
// the event is queued; each client receives it on its own poll cycle.
func (s *Server) Broadcast(ctx context.Context, event string, data ...interface{}) error {
	ctx, span := s.tracer.Start(ctx, "socketrelay.broadcast",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("socketrelay.event", event)),
	)
	defer span.End()

	s.metrics.ObserveBroadcast(event)

	if err := s.namespace.Emit(ctx, event, data...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Emit broadcasts to all clients in the default namespace
func (s *Server) Emit(event string, data ...interface{}) error {
	return s.Broadcast(context.Background(), event, data...)
}

// SessionCount returns the number of open Engine.IO sessions, connected
// or not.
func (s *Server) SessionCount() int {
	return s.eio.Count()
}

// ConnectedCount returns the number of sockets that receive broadcasts.
func (s *Server) ConnectedCount() int {
	return s.namespace.Len()
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, s.path) {
		http.NotFound(w, r)
		return
	}

	s.eio.ServeHTTP(w, r)
}

// Close closes the server and all connections
func (s *Server) Close() error {
	s.eio.Close()
	return s.namespace.Adapter().Close()
}

func (s *Server) handleSession(session *engineio.Session) {
	session.OnMessage(func(data []byte) {
		s.dispatch(session, data)
	})
	session.OnClose(func(reason string) {
		if socket, ok := s.namespace.GetSocket(session.ID()); ok {
			socket.handleClose(reason)
		}
	})
}

// dispatch routes a message packet from the client. Until the client has
// connected only a connect packet is accepted.
func (s *Server) dispatch(session *engineio.Session, data []byte) {
	packet, err := DecodePacket(string(data))
	if err != nil {
		s.logger.Debug("skipping message", "sid", session.ID(), "err", err)
		return
	}

	if socket, ok := s.namespace.GetSocket(session.ID()); ok {
		socket.handlePacket(packet)
		return
	}

	if packet.Type != PacketTypeConnect {
		s.logger.Debug("message before connect", "sid", session.ID(), "type", packet.Type.String())
		return
	}

	if packet.Namespace != s.namespace.name {
		reject := &Packet{
			Type:      PacketTypeConnectError,
			Namespace: packet.Namespace,
			Data:      map[string]interface{}{"message": "Invalid namespace"},
		}
		if encoded, err := reject.Encode(); err == nil {
			session.SendMessage([]byte(encoded))
		}
		return
	}

	socket, created := s.namespace.connect(session)
	if !created {
		s.logger.Debug("duplicate connect", "sid", socket.ID())
		return
	}
	s.logger.Debug("socket connected", "sid", socket.ID())
}
