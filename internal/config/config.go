// Package config holds the relay's runtime configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the full configuration of the relay process.
type Config struct {
	// Addr is the HTTP listen address.
	// Default: "127.0.0.1:10282".
	Addr string

	// Path is where the Socket.IO endpoint is mounted.
	// Default: "/socket.io/".
	Path string

	// Transport is "polling" or "websocket".
	// Default: "polling".
	Transport string

	// PingInterval is the time between server pings.
	// Default: 25 seconds.
	PingInterval time.Duration

	// PingTimeout is the grace period for a pong after a ping.
	// Default: 20 seconds.
	PingTimeout time.Duration

	// PollTimeout bounds how long an idle GET is held.
	// Default: 20 seconds.
	PollTimeout time.Duration

	// MaxPayload is the largest accepted client payload in bytes.
	// Default: 1MB.
	MaxPayload int64

	// ShutdownTimeout is how long in-flight requests get on shutdown.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration

	// LogLevel is one of debug, info, warn, error.
	// Default: "info".
	LogLevel string

	// LogFormat is "text" or "json".
	// Default: "text".
	LogFormat string

	// Watch enables the OXWU change watchers.
	// Default: true.
	Watch bool

	// SourceURL is the base URL of the OXWU local API.
	// Default: "http://127.0.0.1:10281".
	SourceURL string

	// WatchInterval is the poll period of the watchers.
	// Default: 1 second.
	WatchInterval time.Duration

	// RedisAddr enables the Redis broadcast adapter when set.
	// Default: "" (in-memory broadcasts only).
	RedisAddr string

	// RedisChannel is the pub/sub channel shared by relay instances.
	// Default: "socketrelay#/".
	RedisChannel string

	// Metrics exposes Prometheus metrics on /metrics.
	// Default: true.
	Metrics bool
}

// Default returns a Config with the documented defaults.
func Default() *Config {
	return &Config{
		Addr:            "127.0.0.1:10282",
		Path:            "/socket.io/",
		Transport:       "polling",
		PingInterval:    25 * time.Second,
		PingTimeout:     20 * time.Second,
		PollTimeout:     20 * time.Second,
		MaxPayload:      1e6,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		LogFormat:       "text",
		Watch:           true,
		SourceURL:       "http://127.0.0.1:10281",
		WatchInterval:   time.Second,
		RedisChannel:    "socketrelay#/",
		Metrics:         true,
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if !strings.HasPrefix(c.Path, "/") {
		errs = append(errs, fmt.Errorf("path %q must start with /", c.Path))
	}
	switch c.Transport {
	case "polling", "websocket":
	default:
		errs = append(errs, fmt.Errorf("transport %q must be polling or websocket", c.Transport))
	}
	if c.PingInterval <= 0 {
		errs = append(errs, errors.New("ping interval must be positive"))
	}
	if c.PingTimeout <= 0 {
		errs = append(errs, errors.New("ping timeout must be positive"))
	}
	if c.PollTimeout <= 0 {
		errs = append(errs, errors.New("poll timeout must be positive"))
	}
	if c.MaxPayload <= 0 {
		errs = append(errs, errors.New("max payload must be positive"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q must be text or json", c.LogFormat))
	}
	if c.Watch {
		if u, err := url.Parse(c.SourceURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("source url %q is not an absolute URL", c.SourceURL))
		}
		if c.WatchInterval <= 0 {
			errs = append(errs, errors.New("watch interval must be positive"))
		}
	}

	return errors.Join(errs...)
}
