package monitor

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/avinashweb85/task-devops-monitor/internal/snapshot"
)

func TestNewEndpoint_URLValidation(t *testing.T) {
	tests := []struct {
		url     string
		wantErr string
	}{
		{"https://eu.status.example.com/status/eu", ""},
		{"http://localhost:9999/status/us", ""},
		{"https://status.example.com:8443/api?full=1", ""},
		{"", "cannot be empty"},
		{"status.example.com/eu", "must have a scheme"},
		{"/status/eu", "must have a scheme"},
		{"ftp://status.example.com/eu", `got "ftp"`},
		{"ws://status.example.com/eu", `got "ws"`},
		{"file:///etc/status.json", `got "file"`},
		{"http:///status", "must have a host"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := NewEndpoint("eu", tt.url)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("NewEndpoint(%q) error = %v", tt.url, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewEndpoint(%q) error = %v, want containing %q", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestNewEndpoint_NameFallsBackToURL(t *testing.T) {
	const u = "https://us.status.example.com/status/us"

	named := mustEndpoint(t, "US", u)
	unnamed := mustEndpoint(t, "", u)

	if named.Name() != "US" {
		t.Errorf("Name() = %q, want %q", named.Name(), "US")
	}
	if unnamed.Name() != u {
		t.Errorf("Name() = %q, want the URL", unnamed.Name())
	}
	if named.URL() != u || unnamed.URL() != u {
		t.Errorf("URL() = %q / %q, want %q", named.URL(), unnamed.URL(), u)
	}
}

func TestNewEndpoint_BareEndpointHasNoMaps(t *testing.T) {
	ep := mustEndpoint(t, "eu", "https://eu.status.example.com")

	if ep.Labels() != nil {
		t.Errorf("Labels() = %v, want nil", ep.Labels())
	}
	if ep.Headers() != nil {
		t.Errorf("Headers() = %v, want nil", ep.Headers())
	}
	if ep.Timeout() != 0 {
		t.Errorf("Timeout() = %v, want 0", ep.Timeout())
	}
	if ep.Extractor() != nil {
		t.Error("Extractor() = non-nil, want nil")
	}
}

func TestNewEndpoint_EmptyPairListsKeepMapsNil(t *testing.T) {
	ep := mustEndpoint(t, "eu", "https://eu.status.example.com", WithLabels(), WithHeaders())

	if ep.Labels() != nil || ep.Headers() != nil {
		t.Errorf("Labels() = %v, Headers() = %v, want both nil", ep.Labels(), ep.Headers())
	}
}

func TestNewEndpoint_PairOptions(t *testing.T) {
	ep := mustEndpoint(t, "eu", "https://eu.status.example.com",
		WithLabels("region", "eu-west", "team", "payments"),
		WithLabels("team", "platform"),
		WithHeaders("Authorization", "Bearer abc"),
	)

	wantLabels := map[string]string{"region": "eu-west", "team": "platform"}
	if !reflect.DeepEqual(ep.Labels(), wantLabels) {
		t.Errorf("Labels() = %v, want %v", ep.Labels(), wantLabels)
	}
	wantHeaders := map[string]string{"Authorization": "Bearer abc"}
	if !reflect.DeepEqual(ep.Headers(), wantHeaders) {
		t.Errorf("Headers() = %v, want %v", ep.Headers(), wantHeaders)
	}

	ep.Labels()["region"] = "changed"
	ep.Headers()["Authorization"] = "changed"
	if ep.Labels()["region"] != "eu-west" || ep.Headers()["Authorization"] != "Bearer abc" {
		t.Error("mutating a returned map changed the endpoint")
	}
}

func TestNewEndpoint_OptionErrors(t *testing.T) {
	tests := []struct {
		name    string
		opt     EndpointOption
		wantErr string
	}{
		{"odd labels", WithLabels("region"), "WithLabels requires an even number"},
		{"odd headers", WithHeaders("a", "b", "c"), "WithHeaders requires an even number"},
		{"zero timeout", WithTimeout(0), "timeout must be positive"},
		{"negative timeout", WithTimeout(-time.Second), "timeout must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEndpoint("eu", "https://eu.status.example.com", tt.opt)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewEndpoint() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNew_EndpointTimeoutBoundedByInterval(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"shorter", 2 * time.Second, false},
		{"equal", 5 * time.Second, false},
		{"longer", 6 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := mustEndpoint(t, "slow", "https://slow.example.com", WithTimeout(tt.timeout))
			_, err := New(WithEndpoint(ep), WithPollingInterval(5*time.Second))

			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "must not exceed polling interval") {
					t.Errorf("New() error = %v, want interval bound error", err)
				}
				return
			}
			if err != nil {
				t.Errorf("New() error = %v", err)
			}
		})
	}
}

func TestEndpoint_LabelsFlowIntoResults(t *testing.T) {
	endpoints := []Endpoint{
		mustEndpoint(t, "EU", "https://eu.example.com", WithLabels("region", "eu")),
		mustEndpoint(t, "", "https://us.example.com"),
	}
	snap := snapshot.Snapshot{
		GeneratedAt: time.Now(),
		Results: []snapshot.EndpointResult{
			snapshot.Success("https://eu.example.com", []byte(`{"status":"ok"}`)),
			snapshot.Failure("https://us.example.com", "timeout"),
		},
	}

	var c collector
	mon, err := New(WithEndpoints(endpoints...), WithSnapshotCallback(c.callback), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	mon.observe(snap)

	got := c.first()
	if len(got.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(got.Results))
	}

	eu, us := got.Results[0], got.Results[1]
	if eu.Name != "EU" || eu.Labels["region"] != "eu" || eu.Status != StatusUp {
		t.Errorf("Results[0] = %+v", eu)
	}
	if us.Name != "https://us.example.com" || us.Labels != nil || us.Error != "timeout" {
		t.Errorf("Results[1] = %+v", us)
	}

	eu.Labels["region"] = "changed"
	if endpoints[0].Labels()["region"] != "eu" {
		t.Error("callback mutation reached the endpoint's labels")
	}
}
