package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Events broadcast for the OXWU alert pages.
const (
	EventWarningTimeChanged = "warningTimeChanged"
	EventReportTimeChanged  = "reportTimeChanged"
)

// Default locations of the OXWU local API.
const (
	DefaultBaseURL = "http://127.0.0.1:10281"
	WarningPath    = "/getWarningInfo"
	ReportPath     = "/getReportInfo"
)

// HTTPSource reads a JSON document from an HTTP endpoint and keys it by
// the string found at KeyPath.
type HTTPSource struct {
	Client  *http.Client
	URL     string
	KeyPath []string
}

// NewWarningSource watches the time of the current early warning.
func NewWarningSource(client *http.Client, baseURL string) *HTTPSource {
	return &HTTPSource{Client: client, URL: joinURL(baseURL, WarningPath), KeyPath: []string{"time"}}
}

// NewReportSource watches the time of the latest earthquake report.
func NewReportSource(client *http.Client, baseURL string) *HTTPSource {
	return &HTTPSource{Client: client, URL: joinURL(baseURL, ReportPath), KeyPath: []string{"report", "time"}}
}

// Fetch implements Source. The state data is {"time": key}.
func (s *HTTPSource) Fetch(ctx context.Context) (State, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return State{}, errors.Wrap(err, "build request")
	}

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return State{}, errors.Wrapf(err, "fetch %s", s.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return State{}, errors.Errorf("fetch %s: unexpected status %d", s.URL, resp.StatusCode)
	}

	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return State{}, errors.Wrapf(err, "decode %s", s.URL)
	}

	if ok, present := doc["ok"].(bool); present && !ok {
		return State{}, errors.Errorf("fetch %s: source error: %v", s.URL, doc["error"])
	}

	key, err := lookup(doc, s.KeyPath)
	if err != nil {
		return State{}, errors.Wrapf(err, "fetch %s", s.URL)
	}

	return State{Key: key, Data: map[string]any{"time": key}}, nil
}

// lookup walks path through nested objects. A missing or null leaf yields
// an empty key, which means "no state yet".
func lookup(doc map[string]any, path []string) (string, error) {
	var cur any = doc
	for i, field := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return "", fmt.Errorf("%s is not an object", strings.Join(path[:i], "."))
		}
		cur, ok = obj[field]
		if !ok || cur == nil {
			return "", nil
		}
	}

	switch v := cur.(type) {
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%s is %T, want string", strings.Join(path, "."), cur)
	}
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
