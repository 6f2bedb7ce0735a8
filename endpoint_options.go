package monitor

import (
	"errors"
	"fmt"
	"time"
)

// endpointConfig collects option values before the Endpoint is frozen.
// Maps stay nil until an option writes to them.
type endpointConfig struct {
	labels    map[string]string
	headers   map[string]string
	timeout   time.Duration
	extractor StatusExtractor
}

// EndpointOption configures an [Endpoint] in [NewEndpoint].
type EndpointOption func(*endpointConfig) error

// WithLabels attaches key/value metadata that is copied into every
// [EndpointResult] for the endpoint. Arguments alternate key, value.
//
//	monitor.WithLabels("region", "eu-west", "team", "payments")
func WithLabels(keyValues ...string) EndpointOption {
	return func(cfg *endpointConfig) error {
		return putPairs(&cfg.labels, "WithLabels", keyValues)
	}
}

// WithHeaders sets request headers sent on every fetch of the endpoint,
// typically for auth tokens. Arguments alternate name, value.
func WithHeaders(keyValues ...string) EndpointOption {
	return func(cfg *endpointConfig) error {
		return putPairs(&cfg.headers, "WithHeaders", keyValues)
	}
}

// WithTimeout replaces the monitor-wide fetch timeout for this endpoint.
// [New] rejects a timeout longer than the polling interval.
func WithTimeout(d time.Duration) EndpointOption {
	return func(cfg *endpointConfig) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		cfg.timeout = d
		return nil
	}
}

// WithExtractor sets how a [Status] is derived from the endpoint's body.
// Without it, [DefaultExtractor] is used.
func WithExtractor(e StatusExtractor) EndpointOption {
	return func(cfg *endpointConfig) error {
		cfg.extractor = e
		return nil
	}
}

func putPairs(dst *map[string]string, option string, kv []string) error {
	if len(kv)%2 != 0 {
		return errors.New(option + " requires an even number of arguments (key-value pairs)")
	}
	if len(kv) == 0 {
		return nil
	}
	if *dst == nil {
		*dst = make(map[string]string, len(kv)/2)
	}
	for i := 0; i < len(kv); i += 2 {
		(*dst)[kv[i]] = kv[i+1]
	}
	return nil
}
