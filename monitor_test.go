package monitor

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/avinashweb85/task-devops-monitor/internal/snapshot"
)

func TestToPollerEndpoints_HeadersCopied(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com",
		WithHeaders("Authorization", "Bearer token", "X-Custom", "value"),
	)

	mon, err := New(WithEndpoint(ep))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	pollerEndpoints := mon.toPollerEndpoints()
	if len(pollerEndpoints) != 1 {
		t.Fatalf("expected 1 endpoint, got %d", len(pollerEndpoints))
	}

	pollerEndpoints[0].Headers["Authorization"] = "modified"
	pollerEndpoints[0].Headers["new_header"] = "new_value"

	original := ep.Headers()
	if original["Authorization"] != "Bearer token" {
		t.Errorf("mutation affected original: Headers[Authorization] = %q", original["Authorization"])
	}
	if _, exists := original["new_header"]; exists {
		t.Error("mutation added new header to original endpoint")
	}
}

func TestToPollerEndpoints_NilHeaders(t *testing.T) {
	mon, err := New(WithEndpoint(mustEndpoint(t, "Test", "https://example.com")))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if h := mon.toPollerEndpoints()[0].Headers; h != nil {
		t.Errorf("Headers = %v, want nil", h)
	}
}

func TestToPollerEndpoints_Timeouts(t *testing.T) {
	mon, err := New(
		WithEndpoints(
			mustEndpoint(t, "Default", "https://a.example.com"),
			mustEndpoint(t, "Custom", "https://b.example.com", WithTimeout(2*time.Second)),
		),
		WithFetchTimeout(4*time.Second),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	eps := mon.toPollerEndpoints()
	if eps[0].Timeout != 4*time.Second {
		t.Errorf("eps[0].Timeout = %v, want monitor-wide 4s", eps[0].Timeout)
	}
	if eps[1].Timeout != 2*time.Second {
		t.Errorf("eps[1].Timeout = %v, want endpoint override 2s", eps[1].Timeout)
	}
	if eps[0].URL != "https://a.example.com" || eps[1].Name != "Custom" {
		t.Errorf("unexpected conversion: %+v", eps)
	}
}

func TestPublicSnapshot(t *testing.T) {
	endpoints := []Endpoint{
		mustEndpoint(t, "A", "http://a", WithLabels("env", "prod")),
		mustEndpoint(t, "B", "http://b"),
		mustEndpoint(t, "C", "http://c"),
	}
	now := time.Now()
	snap := snapshot.Snapshot{
		GeneratedAt: now,
		Results: []snapshot.EndpointResult{
			snapshot.Success("http://a", []byte(`{"status":"ok"}`)),
			snapshot.Failure("http://b", "timeout"),
			snapshot.Success("http://c", nil),
		},
	}

	derive := func(ep Endpoint, body []byte) Status {
		return JSONFieldExtractor("status")(body)
	}
	pub := publicSnapshot(snap, endpoints, derive)

	if !pub.GeneratedAt.Equal(now) {
		t.Errorf("GeneratedAt = %v, want %v", pub.GeneratedAt, now)
	}
	if len(pub.Results) != 3 {
		t.Fatalf("len(Results) = %d, want 3", len(pub.Results))
	}

	a, b, c := pub.Results[0], pub.Results[1], pub.Results[2]
	if a.Name != "A" || a.Status != StatusUp || a.Labels["env"] != "prod" || !a.OK() {
		t.Errorf("Results[0] = %+v", a)
	}
	if b.Status != StatusDown || b.Error != "timeout" || b.Data != nil {
		t.Errorf("Results[1] = %+v, want down with timeout", b)
	}
	if c.Status != StatusUnknown || string(c.Data) != "null" {
		t.Errorf("Results[2] = %+v, want unknown with null data", c)
	}
	if pub.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", pub.Failed())
	}

	// the public copy must not alias the internal snapshot
	a.Data[0] = 'X'
	if string(snap.Results[0].Data) != `{"status":"ok"}` {
		t.Error("public snapshot shares data with the internal snapshot")
	}
}

func TestDeriveStatus_PanicYieldsUnknown(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ep := mustEndpoint(t, "Boom", "https://example.com",
		WithExtractor(func([]byte) Status { panic("bad extractor") }),
	)
	mon, err := New(WithEndpoint(ep), WithLogger(logger))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := mon.deriveStatus(ep, []byte(`{}`)); got != StatusUnknown {
		t.Errorf("deriveStatus() = %v, want %v", got, StatusUnknown)
	}
	out := buf.String()
	if !strings.Contains(out, "status extractor panicked") || !strings.Contains(out, "correlation_id") {
		t.Errorf("expected panic log with correlation id, got %s", out)
	}
}

func TestDeriveStatus_DefaultExtractor(t *testing.T) {
	mon, err := New(WithEndpoint(mustEndpoint(t, "API", "https://example.com")))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ep := Endpoint{name: "API", url: "https://example.com"}
	if got := mon.deriveStatus(ep, []byte(`{"status":"degraded"}`)); got != StatusDegraded {
		t.Errorf("deriveStatus() = %v, want %v", got, StatusDegraded)
	}
	if got := mon.deriveStatus(ep, []byte(`{"uptime":42}`)); got != StatusUp {
		t.Errorf("deriveStatus() = %v, want reachable fallback %v", got, StatusUp)
	}
}

func TestLogStatus_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	mon, err := New(
		WithEndpoint(mustEndpoint(t, "API", "https://example.com")),
		WithMode(ModeShared),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	steps := []struct {
		result EndpointResult
		want   string
	}{
		{EndpointResult{Name: "API", Status: StatusUp}, `level=INFO msg="endpoint status changed"`},
		{EndpointResult{Name: "API", Status: StatusUp}, `level=DEBUG msg="endpoint polled"`},
		{EndpointResult{Name: "API", Status: StatusDown, Error: "timeout"}, `level=WARN msg="endpoint down"`},
		{EndpointResult{Name: "API", Status: StatusUp}, `level=INFO msg="endpoint status changed"`},
	}

	for i, s := range steps {
		buf.Reset()
		mon.logStatus(0, s.result)
		if !strings.Contains(buf.String(), s.want) {
			t.Errorf("step %d: log = %q, want %q", i, buf.String(), s.want)
		}
	}
}

func TestLogStatus_PerSubscriptionOnlyDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	mon, err := New(WithEndpoint(mustEndpoint(t, "API", "https://example.com")), WithLogger(logger))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// two viewers whose ticks interleave with different outcomes
	for _, st := range []Status{StatusUp, StatusDown, StatusUp, StatusDown} {
		mon.logStatus(0, EndpointResult{Name: "API", Status: st})
	}

	out := buf.String()
	if strings.Contains(out, "level=INFO") || strings.Contains(out, "level=WARN") {
		t.Errorf("per-subscription logs = %q, want debug only", out)
	}
	if n := strings.Count(out, `msg="endpoint polled"`); n != 4 {
		t.Errorf("endpoint polled count = %d, want 4", n)
	}
	if len(mon.lastStatus) != 0 {
		t.Errorf("lastStatus = %v, want untracked", mon.lastStatus)
	}
}

func TestSnapshot_OneShot(t *testing.T) {
	ok := jsonServer(t, http.StatusOK, `{"status":"healthy"}`)
	bad := jsonServer(t, http.StatusOK, `not json`)

	var called bool
	mon, err := New(
		WithEndpoints(
			mustEndpoint(t, "OK", ok.URL),
			mustEndpoint(t, "Bad", bad.URL),
		),
		WithSnapshotCallback(func(Snapshot) { called = true }),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap := mon.Snapshot(ctx)

	if len(snap.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(snap.Results))
	}
	if snap.Results[0].Status != StatusUp || snap.Results[0].Name != "OK" {
		t.Errorf("Results[0] = %+v, want OK up", snap.Results[0])
	}
	if snap.Results[1].Status != StatusDown || snap.Results[1].OK() {
		t.Errorf("Results[1] = %+v, want invalid JSON reported as failure", snap.Results[1])
	}
	if called {
		t.Error("Snapshot() must not invoke snapshot callbacks")
	}
}

func TestInvokeCallbackSafe_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	invokeCallbackSafe(func(Snapshot) { panic("boom") }, Snapshot{}, logger)

	if !strings.Contains(buf.String(), "snapshot callback panicked") {
		t.Errorf("expected panic to be logged, got %q", buf.String())
	}
}
