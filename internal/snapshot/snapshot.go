// Package snapshot defines the per-tick aggregation result shared by the
// poller, broadcast, store and server packages.
//
// An [EndpointResult] always carries exactly one of Data or Error. Use
// [Success] and [Failure] to construct results so the invariant holds.
package snapshot

import (
	"encoding/json"
	"time"
)

// null is the JSON literal used for a successful response whose body is null.
var null = json.RawMessage("null")

// EndpointResult is the outcome of fetching a single endpoint once.
//
// Data holds the response body verbatim as JSON. It is not decoded into a
// fixed schema; every field inside it is optional to consumers.
type EndpointResult struct {
	// URL is the configured endpoint URL.
	URL string `json:"url"`

	// Data is the parsed response body. nil when Error is set.
	Data json.RawMessage `json:"data"`

	// Error describes why the fetch failed. nil on success.
	Error *string `json:"error"`
}

// Success returns a successful result for url. A nil or empty data is
// recorded as the JSON literal null.
func Success(url string, data []byte) EndpointResult {
	raw := null
	if len(data) > 0 {
		raw = append(json.RawMessage(nil), data...)
	}
	return EndpointResult{URL: url, Data: raw}
}

// Failure returns a failed result for url carrying msg.
func Failure(url, msg string) EndpointResult {
	return EndpointResult{URL: url, Error: &msg}
}

// OK reports whether the fetch succeeded.
func (r EndpointResult) OK() bool {
	return r.Error == nil
}

// ErrorMessage returns the error text, or "" on success.
func (r EndpointResult) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// Snapshot is one complete aggregation across all configured endpoints.
//
// Results are in configuration order. A Snapshot is never modified after
// the aggregator returns it.
type Snapshot struct {
	Results     []EndpointResult `json:"results"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Len returns the number of results.
func (s Snapshot) Len() int {
	return len(s.Results)
}

// Failed returns the number of results carrying an error.
func (s Snapshot) Failed() int {
	n := 0
	for _, r := range s.Results {
		if !r.OK() {
			n++
		}
	}
	return n
}
