package config

import (
	"os"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "SOCKETRELAY_"

// FromEnv overlays SOCKETRELAY_* environment variables onto cfg. Values
// that do not parse are ignored.
func FromEnv(cfg *Config) {
	str(&cfg.Addr, "ADDR")
	str(&cfg.Path, "PATH")
	str(&cfg.Transport, "TRANSPORT")
	duration(&cfg.PingInterval, "PING_INTERVAL")
	duration(&cfg.PingTimeout, "PING_TIMEOUT")
	duration(&cfg.PollTimeout, "POLL_TIMEOUT")
	if v := os.Getenv(EnvPrefix + "MAX_PAYLOAD"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxPayload = n
		}
	}
	duration(&cfg.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
	str(&cfg.LogLevel, "LOG_LEVEL")
	str(&cfg.LogFormat, "LOG_FORMAT")
	boolean(&cfg.Watch, "WATCH")
	str(&cfg.SourceURL, "SOURCE_URL")
	duration(&cfg.WatchInterval, "WATCH_INTERVAL")
	str(&cfg.RedisAddr, "REDIS_ADDR")
	str(&cfg.RedisChannel, "REDIS_CHANNEL")
	boolean(&cfg.Metrics, "METRICS")
}

func str(dst *string, name string) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		*dst = v
	}
}

func duration(dst *time.Duration, name string) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func boolean(dst *bool, name string) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
