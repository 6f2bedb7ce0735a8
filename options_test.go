package monitor

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func mustEndpoint(t *testing.T, name, url string, opts ...EndpointOption) Endpoint {
	t.Helper()
	ep, err := NewEndpoint(name, url, opts...)
	if err != nil {
		t.Fatalf("NewEndpoint() error = %v", err)
	}
	return ep
}

func TestNew_Valid(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com")

	mon, err := New(WithEndpoint(ep))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if len(mon.Endpoints()) != 1 {
		t.Errorf("len(Endpoints()) = %v, want %v", len(mon.Endpoints()), 1)
	}
}

func TestNew_NoEndpoints(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Error("New() expected error for no endpoints, got nil")
	}
}

func TestNew_ZeroValueEndpointRejected(t *testing.T) {
	_, err := New(WithEndpoint(Endpoint{}))
	if err == nil || !strings.Contains(err.Error(), "NewEndpoint") {
		t.Errorf("New() error = %v, want error mentioning NewEndpoint", err)
	}
}

// TestNew_DuplicateURLsAllowed verifies that repeated URLs are kept as
// separate, positioned entries.
func TestNew_DuplicateURLsAllowed(t *testing.T) {
	ep := mustEndpoint(t, "", "https://api.example.com/status")

	mon, err := New(WithEndpoints(ep, ep))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(mon.Endpoints()) != 2 {
		t.Errorf("len(Endpoints()) = %v, want 2", len(mon.Endpoints()))
	}
}

func TestNew_Defaults(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com")

	mon, err := New(WithEndpoint(ep))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if mon.Port() != 8080 {
		t.Errorf("Port() = %v, want %v", mon.Port(), 8080)
	}
	if mon.PollingInterval() != 10*time.Second {
		t.Errorf("PollingInterval() = %v, want %v", mon.PollingInterval(), 10*time.Second)
	}
	if mon.FetchTimeout() != 5*time.Second {
		t.Errorf("FetchTimeout() = %v, want %v", mon.FetchTimeout(), 5*time.Second)
	}
	if mon.Mode() != ModePerSubscription {
		t.Errorf("Mode() = %v, want %v", mon.Mode(), ModePerSubscription)
	}
}

func TestWithEndpoints_PreservesOrder(t *testing.T) {
	ep1 := mustEndpoint(t, "Test1", "https://example1.com")
	ep2 := mustEndpoint(t, "Test2", "https://example2.com")
	ep3 := mustEndpoint(t, "Test3", "https://example3.com")

	mon, err := New(
		WithEndpoint(ep1),
		WithEndpoints(ep2, ep3),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got := mon.Endpoints()
	for i, want := range []string{"Test1", "Test2", "Test3"} {
		if got[i].Name() != want {
			t.Errorf("Endpoints()[%d].Name() = %q, want %q", i, got[i].Name(), want)
		}
	}
}

func TestWithPollingInterval(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com")

	mon, err := New(
		WithEndpoint(ep),
		WithPollingInterval(30*time.Second),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if mon.PollingInterval() != 30*time.Second {
		t.Errorf("PollingInterval() = %v, want %v", mon.PollingInterval(), 30*time.Second)
	}
}

func TestWithPollingInterval_Invalid(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com")

	tests := []struct {
		name     string
		interval time.Duration
	}{
		{"zero", 0},
		{"negative", -1 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(
				WithEndpoint(ep),
				WithPollingInterval(tt.interval),
			)
			if err == nil {
				t.Errorf("New() expected error for interval %v, got nil", tt.interval)
			}
		})
	}
}

func TestFetchTimeout_DefaultCappedAtInterval(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com")

	mon, err := New(
		WithEndpoint(ep),
		WithPollingInterval(2*time.Second),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if mon.FetchTimeout() != 2*time.Second {
		t.Errorf("FetchTimeout() = %v, want the 2s interval", mon.FetchTimeout())
	}
}

func TestFetchTimeout_MustNotExceedInterval(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{
			name: "monitor-wide",
			opts: []Option{
				WithEndpoint(mustEndpoint(t, "Test", "https://example.com")),
				WithPollingInterval(2 * time.Second),
				WithFetchTimeout(3 * time.Second),
			},
		},
		{
			name: "per endpoint",
			opts: []Option{
				WithEndpoint(mustEndpoint(t, "Slow", "https://example.com", WithTimeout(20*time.Second))),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if err == nil || !strings.Contains(err.Error(), "must not exceed polling interval") {
				t.Errorf("New() error = %v, want interval violation", err)
			}
		})
	}
}

func TestWithFetchTimeout(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com")

	mon, err := New(WithEndpoint(ep), WithFetchTimeout(10*time.Second))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if mon.FetchTimeout() != 10*time.Second {
		t.Errorf("FetchTimeout() = %v, want equal to the interval", mon.FetchTimeout())
	}

	if _, err := New(WithEndpoint(ep), WithFetchTimeout(0)); err == nil {
		t.Error("New() expected error for zero fetch timeout, got nil")
	}
}

func TestWithPort(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com")

	mon, err := New(
		WithEndpoint(ep),
		WithPort(9090),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if mon.Port() != 9090 {
		t.Errorf("Port() = %v, want %v", mon.Port(), 9090)
	}
}

func TestWithPort_Invalid(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com")

	tests := []struct {
		name string
		port int
	}{
		{"zero", 0},
		{"negative", -1},
		{"too high", 65536},
		{"way too high", 100000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(
				WithEndpoint(ep),
				WithPort(tt.port),
			)
			if err == nil {
				t.Errorf("New() expected error for port %v, got nil", tt.port)
			}
		})
	}
}

func TestWithPort_ValidEdgeCases(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com")

	for _, port := range []int{1, 80, 443, 8080, 65535} {
		mon, err := New(WithEndpoint(ep), WithPort(port))
		if err != nil {
			t.Errorf("New() unexpected error for port %v: %v", port, err)
			continue
		}
		if mon.Port() != port {
			t.Errorf("Port() = %v, want %v", mon.Port(), port)
		}
	}
}

func TestWithMode(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com")

	mon, err := New(WithEndpoint(ep), WithMode(ModeShared))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if mon.Mode() != ModeShared {
		t.Errorf("Mode() = %v, want %v", mon.Mode(), ModeShared)
	}

	if _, err := New(WithEndpoint(ep), WithMode("broadcast")); err == nil {
		t.Error("New() expected error for unknown mode, got nil")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModePerSubscription},
		{in: "per-subscription", want: ModePerSubscription},
		{in: "shared", want: ModeShared},
		{in: "Shared", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWithMetricsRegistry(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com")
	reg := prometheus.NewRegistry()

	mon, err := New(WithEndpoint(ep), WithMetricsRegistry(reg))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if mon.metrics.Registry() != reg {
		t.Error("metrics should register into the provided registry")
	}

	if _, err := New(WithEndpoint(ep), WithMetricsRegistry(nil)); err == nil {
		t.Error("New() expected error for nil registry, got nil")
	}
}

func TestEndpoints_Immutability(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com")

	mon, err := New(WithEndpoint(ep))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	endpoints := mon.Endpoints()
	endpoints[0] = mustEndpoint(t, "Other", "https://other.example.com")

	if mon.Endpoints()[0].Name() != "Test" {
		t.Error("Endpoints() mutation affected original Monitor")
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ep := mustEndpoint(t, "Test", "https://example.com")

	mon, err := New(
		WithEndpoint(ep),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if mon.logger != logger {
		t.Error("WithLogger() logger not used")
	}
}

func TestWithLogger_Nil(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com")

	_, err := New(
		WithEndpoint(ep),
		WithLogger(nil),
	)
	if err == nil || !strings.Contains(err.Error(), "logger cannot be nil") {
		t.Errorf("New() error = %v, want error containing 'logger cannot be nil'", err)
	}
}

func TestWithLogger_DefaultsToSlogDefault(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com")

	mon, err := New(WithEndpoint(ep))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if mon.logger != slog.Default() {
		t.Error("logger should default to slog.Default()")
	}
}

func TestWithTitle(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com")

	mon, err := New(
		WithEndpoint(ep),
		WithTitle("Custom Dashboard"),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if mon.title != "Custom Dashboard" {
		t.Errorf("title = %q, want %q", mon.title, "Custom Dashboard")
	}
}

func TestWithTitle_DefaultsToEmpty(t *testing.T) {
	ep := mustEndpoint(t, "Test", "https://example.com")

	mon, err := New(WithEndpoint(ep))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// empty is rendered as the default title by the server
	if mon.title != "" {
		t.Errorf("title = %q, want empty string", mon.title)
	}
}
