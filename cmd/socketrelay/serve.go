package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ramory-l/socketrelay"
	"github.com/ramory-l/socketrelay/engineio"
	"github.com/ramory-l/socketrelay/internal/config"
	"github.com/ramory-l/socketrelay/watcher"
)

func serveCmd() *cobra.Command {
	cfg := config.Default()
	config.FromEnv(cfg)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay",
		Long: `Start the HTTP server, the Socket.IO endpoint and the OXWU watchers.

Every flag can also be set with a SOCKETRELAY_* environment variable,
e.g. SOCKETRELAY_ADDR or SOCKETRELAY_PING_INTERVAL. Flags win.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	f.StringVar(&cfg.Path, "path", cfg.Path, "Socket.IO mount path")
	f.StringVar(&cfg.Transport, "transport", cfg.Transport, "Engine.IO transport: polling or websocket")
	f.DurationVar(&cfg.PingInterval, "ping-interval", cfg.PingInterval, "Interval between server pings")
	f.DurationVar(&cfg.PingTimeout, "ping-timeout", cfg.PingTimeout, "Grace period for a pong")
	f.DurationVar(&cfg.PollTimeout, "poll-timeout", cfg.PollTimeout, "Maximum hold time of an idle poll")
	f.Int64Var(&cfg.MaxPayload, "max-payload", cfg.MaxPayload, "Maximum client payload in bytes")
	f.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	f.BoolVar(&cfg.Watch, "watch", cfg.Watch, "Watch the OXWU API and broadcast changes")
	f.StringVar(&cfg.SourceURL, "source-url", cfg.SourceURL, "Base URL of the OXWU local API")
	f.DurationVar(&cfg.WatchInterval, "watch-interval", cfg.WatchInterval, "Poll period of the OXWU API")
	f.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Share broadcasts through Redis at this address")
	f.StringVar(&cfg.RedisChannel, "redis-channel", cfg.RedisChannel, "Redis pub/sub channel for broadcasts")
	f.BoolVar(&cfg.Metrics, "metrics", cfg.Metrics, "Expose Prometheus metrics on /metrics")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	registry := prometheus.NewRegistry()
	var metrics *engineio.Metrics
	if cfg.Metrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = engineio.NewMetrics(registry, "socketrelay")
	}

	relay, err := socketrelay.NewServer(&socketrelay.Config{
		PingInterval: cfg.PingInterval,
		PingTimeout:  cfg.PingTimeout,
		PollTimeout:  cfg.PollTimeout,
		MaxPayload:   cfg.MaxPayload,
		Transport:    cfg.Transport,
		Path:         mountPath(cfg.Path),
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		return err
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		adapter, err := socketrelay.NewRedisAdapter(ctx, relay.Namespace(), rdb, cfg.RedisChannel)
		if err != nil {
			return err
		}
		relay.Namespace().SetAdapter(adapter)
		logger.Info("sharing broadcasts through redis", "addr", cfg.RedisAddr, "channel", cfg.RedisChannel)
	}

	relay.OnConnect(func(socket *socketrelay.Socket) {
		logger.Info("client connected", "sid", socket.ID(), "transport", socket.Transport())
		socket.OnDisconnect(func(reason string) {
			logger.Info("client disconnected", "sid", socket.ID(), "reason", reason)
		})
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(relay, registry, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Addr, "path", mountPath(cfg.Path), "transport", cfg.Transport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// Closing the sessions first resolves held polls, so Shutdown
		// does not wait on them.
		if err := relay.Close(); err != nil {
			logger.Warn("close relay", "err", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Watch {
		client := &http.Client{Timeout: 5 * time.Second}
		watchers := []*watcher.Watcher{
			{
				Event:       watcher.EventWarningTimeChanged,
				Source:      watcher.NewWarningSource(client, cfg.SourceURL),
				Broadcaster: relay,
				Interval:    cfg.WatchInterval,
				Logger:      logger,
			},
			{
				Event:       watcher.EventReportTimeChanged,
				Source:      watcher.NewReportSource(client, cfg.SourceURL),
				Broadcaster: relay,
				Interval:    cfg.WatchInterval,
				Logger:      logger,
			},
		}
		g.Go(func() error {
			return watcher.RunAll(ctx, watchers...)
		})
	}

	return g.Wait()
}

// newLogger builds the process logger. Unknown levels fall back to info.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
