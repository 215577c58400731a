package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource returns its states in order, repeating the last one.
type fakeSource struct {
	mu     sync.Mutex
	states []State
	err    error
}

func (f *fakeSource) Fetch(ctx context.Context) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return State{}, f.err
	}
	state := f.states[0]
	if len(f.states) > 1 {
		f.states = f.states[1:]
	}
	return state, nil
}

type broadcast struct {
	event string
	data  []interface{}
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcast
	err   error
}

func (f *fakeBroadcaster) Broadcast(ctx context.Context, event string, data ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, broadcast{event: event, data: data})
	return nil
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func state(key string) State {
	return State{Key: key, Data: map[string]any{"time": key}}
}

func TestPollBroadcastsOncePerChange(t *testing.T) {
	src := &fakeSource{states: []State{state("t1"), state("t1"), state("t2"), state("t2"), state("t3")}}
	b := &fakeBroadcaster{}
	w := &Watcher{Event: EventWarningTimeChanged, Source: src, Broadcaster: b, Logger: testLogger()}

	want := []bool{false, false, true, false, true}
	for i, wantBroadcast := range want {
		got, err := w.Poll(context.Background())
		if err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
		if got != wantBroadcast {
			t.Errorf("poll %d broadcast = %v, want %v", i, got, wantBroadcast)
		}
	}

	if len(b.calls) != 2 {
		t.Fatalf("broadcasts = %d, want 2", len(b.calls))
	}
	first := b.calls[0]
	if first.event != EventWarningTimeChanged || len(first.data) != 1 {
		t.Fatalf("broadcast = %+v", first)
	}
	if data := first.data[0].(map[string]any); data["time"] != "t2" {
		t.Errorf("data = %v, want time t2", data)
	}
}

func TestPollIgnoresEmptyState(t *testing.T) {
	src := &fakeSource{states: []State{state(""), state("t1"), state(""), state("t1")}}
	b := &fakeBroadcaster{}
	w := &Watcher{Event: "e", Source: src, Broadcaster: b, Logger: testLogger()}

	for i := 0; i < 4; i++ {
		if _, err := w.Poll(context.Background()); err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
	}
	if b.count() != 0 {
		t.Errorf("broadcasts = %d, want 0", b.count())
	}
}

func TestPollFetchError(t *testing.T) {
	wantErr := errors.New("boom")
	w := &Watcher{Event: "e", Source: &fakeSource{err: wantErr}, Broadcaster: &fakeBroadcaster{}, Logger: testLogger()}

	if _, err := w.Poll(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestPollBroadcastError(t *testing.T) {
	wantErr := errors.New("publish failed")
	src := &fakeSource{states: []State{state("t1"), state("t2")}}
	w := &Watcher{Event: "e", Source: src, Broadcaster: &fakeBroadcaster{err: wantErr}, Logger: testLogger()}

	w.Poll(context.Background())
	if _, err := w.Poll(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &fakeSource{states: []State{state("t1"), state("t2")}}
	b := &fakeBroadcaster{}
	w := &Watcher{Event: "e", Source: src, Broadcaster: b, Interval: 5 * time.Millisecond, Logger: testLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunAll(ctx, w) }()

	deadline := time.Now().Add(2 * time.Second)
	for b.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunAll: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunAll did not return after cancel")
	}
	if b.count() != 1 {
		t.Errorf("broadcasts = %d, want 1", b.count())
	}
}
