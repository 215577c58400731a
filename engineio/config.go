package engineio

import (
	"log/slog"
	"net/http"
	"time"
)

// Transport names accepted in the "transport" query parameter.
const (
	TransportPolling   = "polling"
	TransportWebSocket = "websocket"
)

// ProtocolVersion is the only Engine.IO protocol revision served.
const ProtocolVersion = "4"

// Config holds Engine.IO server configuration
type Config struct {
	// PingInterval is the time between two server pings.
	// Default: 25 seconds.
	PingInterval time.Duration

	// PingTimeout is the extra time a client gets to answer a ping before
	// its session is considered dead.
	// Default: 20 seconds.
	PingTimeout time.Duration

	// PollTimeout bounds how long a polling GET is held open when nothing
	// is queued. The held request then resolves with a noop packet.
	// Default: 20 seconds.
	PollTimeout time.Duration

	// MaxPayload is the largest POST body (polling) or websocket frame
	// accepted from a client, in bytes.
	// Default: 1MB.
	MaxPayload int64

	// Upgrades lists the transports advertised in the handshake.
	// Default: none.
	Upgrades []string

	// Transport selects the transport served by this server, either
	// TransportPolling or TransportWebSocket. It is chosen once at startup.
	// Default: TransportPolling.
	Transport string

	// CheckOrigin validates the origin of websocket upgrades.
	// Default: allows all origins.
	CheckOrigin func(r *http.Request) bool

	// Logger receives session lifecycle logs.
	// Default: slog.Default().
	Logger *slog.Logger

	// Metrics records Prometheus metrics. Nil disables them.
	Metrics *Metrics
}

// DefaultConfig returns default Engine.IO configuration
func DefaultConfig() *Config {
	return &Config{
		PingInterval: 25 * time.Second,
		PingTimeout:  20 * time.Second,
		PollTimeout:  20 * time.Second,
		MaxPayload:   1e6,
		Upgrades:     []string{},
		Transport:    TransportPolling,
	}
}

// withDefaults returns a copy of c with zero fields replaced by defaults.
func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	if c == nil {
		def.Logger = slog.Default()
		return def
	}

	out := *c
	if out.PingInterval <= 0 {
		out.PingInterval = def.PingInterval
	}
	if out.PingTimeout <= 0 {
		out.PingTimeout = def.PingTimeout
	}
	if out.PollTimeout <= 0 {
		out.PollTimeout = def.PollTimeout
	}
	if out.MaxPayload <= 0 {
		out.MaxPayload = def.MaxPayload
	}
	if out.Upgrades == nil {
		out.Upgrades = def.Upgrades
	}
	if out.Transport == "" {
		out.Transport = def.Transport
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return &out
}
