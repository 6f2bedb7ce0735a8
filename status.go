package monitor

import (
	"encoding/json"
	"time"

	"github.com/avinashweb85/task-devops-monitor/internal/snapshot"
)

// Status represents the health state derived for an endpoint.
//
// Status is a string type that can hold one of four predefined values:
// [StatusUp], [StatusDown], [StatusDegraded], or [StatusUnknown].
type Status string

const (
	// StatusUp indicates the endpoint is healthy and responding normally.
	StatusUp Status = "up"

	// StatusDown indicates the endpoint failed or reported itself unhealthy.
	StatusDown Status = "down"

	// StatusDegraded indicates the endpoint reported partial health.
	StatusDegraded Status = "degraded"

	// StatusUnknown indicates an extractor could not determine the status.
	StatusUnknown Status = "unknown"
)

// allStatuses lists every status, used to reset the status gauge.
var allStatuses = []string{
	string(StatusUp),
	string(StatusDown),
	string(StatusDegraded),
	string(StatusUnknown),
}

// String returns the string representation of the status.
// This implements the fmt.Stringer interface.
func (s Status) String() string {
	return string(s)
}

// StatusExtractor determines the [Status] of an endpoint from the JSON body
// of a successful fetch.
//
// Extractors are pure functions and never see failed fetches: an endpoint
// whose fetch failed is always [StatusDown].
//
// Several built-in extractors are provided: [JSONFieldExtractor],
// [ContainsExtractor], [RegexExtractor], [ReachableExtractor] and
// [FirstMatch] for composition.
//
// # Panic Safety
//
// Extractors run within a panic recovery boundary. A panicking extractor
// yields [StatusUnknown] and the panic is logged.
type StatusExtractor func(body []byte) Status

// EndpointResult is the outcome of fetching one endpoint during a tick.
type EndpointResult struct {
	// Name is the endpoint's display name.
	Name string

	// URL is the fetched URL.
	URL string

	// Labels contains the endpoint's metadata.
	Labels map[string]string

	// Status is derived by the endpoint's extractor, or [StatusDown] on failure.
	Status Status

	// Data is the parsed JSON body. nil when the fetch failed.
	Data json.RawMessage

	// Error describes the failure. Empty when the fetch succeeded.
	Error string
}

// OK reports whether the fetch succeeded.
func (r EndpointResult) OK() bool {
	return r.Error == ""
}

// Snapshot is one complete aggregation across every configured endpoint,
// in configuration order.
type Snapshot struct {
	GeneratedAt time.Time
	Results     []EndpointResult
}

// Failed returns the number of endpoints whose fetch failed.
func (s Snapshot) Failed() int {
	n := 0
	for _, r := range s.Results {
		if !r.OK() {
			n++
		}
	}
	return n
}

// clone returns a deep copy so each callback gets independent maps and slices.
func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		GeneratedAt: s.GeneratedAt,
		Results:     make([]EndpointResult, len(s.Results)),
	}
	for i, r := range s.Results {
		r.Labels = copyMap(r.Labels)
		if r.Data != nil {
			r.Data = append(json.RawMessage(nil), r.Data...)
		}
		out.Results[i] = r
	}
	return out
}

// publicSnapshot converts an internal snapshot to the public type, deriving
// each endpoint's status. Results pair with endpoints by position.
// Mutable fields are copied so callbacks cannot race with delivery.
func publicSnapshot(snap snapshot.Snapshot, endpoints []Endpoint, derive func(Endpoint, []byte) Status) Snapshot {
	out := Snapshot{
		GeneratedAt: snap.GeneratedAt,
		Results:     make([]EndpointResult, len(snap.Results)),
	}

	for i, r := range snap.Results {
		res := EndpointResult{URL: r.URL, Status: StatusDown}
		if i < len(endpoints) {
			res.Name = endpoints[i].name
			res.Labels = copyMap(endpoints[i].labels)
		}
		if r.OK() {
			res.Data = append(json.RawMessage(nil), r.Data...)
			if i < len(endpoints) {
				res.Status = derive(endpoints[i], r.Data)
			} else {
				res.Status = StatusUnknown
			}
		} else {
			res.Error = r.ErrorMessage()
		}
		out.Results[i] = res
	}

	return out
}
