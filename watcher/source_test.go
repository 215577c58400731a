package watcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveJSON(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestWarningSource(t *testing.T) {
	ts := serveJSON(t, map[string]string{
		WarningPath: `{"ok":true,"time":"2024-04-03 07:58:09","intensity":"6"}`,
	})

	got, err := NewWarningSource(ts.Client(), ts.URL+"/").Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Key != "2024-04-03 07:58:09" {
		t.Errorf("Key = %q", got.Key)
	}
	if data := got.Data.(map[string]any); data["time"] != got.Key {
		t.Errorf("Data = %v", data)
	}
}

func TestReportSource(t *testing.T) {
	ts := serveJSON(t, map[string]string{
		ReportPath: `{"ok":true,"report":{"time":"r1","depth":"15"}}`,
	})

	got, err := NewReportSource(ts.Client(), ts.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Key != "r1" {
		t.Errorf("Key = %q, want r1", got.Key)
	}
}

func TestSourceNoStateYet(t *testing.T) {
	ts := serveJSON(t, map[string]string{
		WarningPath: `{"ok":true,"time":null}`,
		ReportPath:  `{"ok":true}`,
	})

	for _, src := range []*HTTPSource{NewWarningSource(ts.Client(), ts.URL), NewReportSource(ts.Client(), ts.URL)} {
		got, err := src.Fetch(context.Background())
		if err != nil {
			t.Fatalf("Fetch %s: %v", src.URL, err)
		}
		if got.Key != "" {
			t.Errorf("Fetch %s Key = %q, want empty", src.URL, got.Key)
		}
	}
}

func TestSourceErrors(t *testing.T) {
	ts := serveJSON(t, map[string]string{
		"/failed":    `{"ok":false,"error":"not ready"}`,
		"/broken":    `{"ok":`,
		"/number":    `{"time":12}`,
		"/notobject": `{"report":"x"}`,
	})

	tests := []struct {
		name string
		src  *HTTPSource
	}{
		{"source error", &HTTPSource{URL: ts.URL + "/failed", KeyPath: []string{"time"}}},
		{"bad json", &HTTPSource{URL: ts.URL + "/broken", KeyPath: []string{"time"}}},
		{"wrong type", &HTTPSource{URL: ts.URL + "/number", KeyPath: []string{"time"}}},
		{"not an object", &HTTPSource{URL: ts.URL + "/notobject", KeyPath: []string{"report", "time"}}},
		{"bad status", &HTTPSource{URL: ts.URL + "/missing", KeyPath: []string{"time"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.src.Client = ts.Client()
			if _, err := tt.src.Fetch(context.Background()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
