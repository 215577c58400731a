// Package watcher polls an external state source and broadcasts an event
// each time the observed state changes.
package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultInterval is the poll period used when a Watcher has none.
const DefaultInterval = time.Second

// State is one observation of the source. Key identifies the state: two
// observations with the same Key are the same state.
type State struct {
	Key  string
	Data any
}

// Source fetches the current state.
type Source interface {
	Fetch(ctx context.Context) (State, error)
}

// Broadcaster publishes an event to every connected client.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, data ...interface{}) error
}

// Watcher broadcasts Event once per state transition of Source. The first
// state it observes is taken as the baseline and not broadcast.
type Watcher struct {
	Event       string
	Source      Source
	Broadcaster Broadcaster
	Interval    time.Duration
	Logger      *slog.Logger

	mu     sync.Mutex
	last   string
	primed bool
	tracer trace.Tracer
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := w.logger()
	logger.Info("watching", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("poll failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll fetches the state once and broadcasts it if it changed. It reports
// whether a broadcast happened.
func (w *Watcher) Poll(ctx context.Context) (bool, error) {
	ctx, span := w.getTracer().Start(ctx, "watcher.poll",
		trace.WithAttributes(attribute.String("watcher.event", w.Event)),
	)
	defer span.End()

	state, err := w.Source.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	if state.Key == "" {
		return false, nil
	}

	w.mu.Lock()
	changed := w.primed && state.Key != w.last
	first := !w.primed
	w.last = state.Key
	w.primed = true
	w.mu.Unlock()

	if first {
		w.logger().Debug("baseline state", "key", state.Key)
		return false, nil
	}
	if !changed {
		return false, nil
	}

	span.SetAttributes(attribute.String("watcher.key", state.Key))
	if err := w.Broadcaster.Broadcast(ctx, w.Event, state.Data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	w.logger().Info("state changed", "key", state.Key)
	return true, nil
}

func (w *Watcher) logger() *slog.Logger {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", "watcher", "event", w.Event)
}

func (w *Watcher) getTracer() trace.Tracer {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tracer == nil {
		w.tracer = otel.Tracer("github.com/ramory-l/socketrelay/watcher")
	}
	return w.tracer
}

// RunAll runs the watchers until ctx is cancelled.
func RunAll(ctx context.Context, watchers ...*Watcher) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range watchers {
		g.Go(func() error {
			return w.Run(ctx)
		})
	}
	return g.Wait()
}
