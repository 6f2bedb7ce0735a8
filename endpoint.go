package monitor

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Endpoint is one JSON status URL in the monitor's fixed list.
//
// Values are built with [NewEndpoint] and never change afterwards; getters
// hand out copies of the label and header maps.
type Endpoint struct {
	name      string
	url       string
	labels    map[string]string
	headers   map[string]string
	timeout   time.Duration
	extractor StatusExtractor
}

// Name is the display name, or the URL when none was given.
func (e Endpoint) Name() string { return e.name }

// URL is the address fetched on every tick.
func (e Endpoint) URL() string { return e.url }

// Labels returns a copy of the labels, or nil when none were set.
func (e Endpoint) Labels() map[string]string { return copyMap(e.labels) }

// Headers returns a copy of the request headers, or nil when none were set.
func (e Endpoint) Headers() map[string]string { return copyMap(e.headers) }

// Timeout is the per-endpoint fetch timeout; 0 means the value from
// [WithFetchTimeout] applies.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// Extractor is the configured [StatusExtractor]; nil means [DefaultExtractor].
func (e Endpoint) Extractor() StatusExtractor { return e.extractor }

// NewEndpoint validates rawURL and applies opts. An empty name falls back
// to the URL. Only absolute http and https URLs are accepted.
//
//	ep, err := monitor.NewEndpoint("Orders", "https://orders.internal/status",
//	    monitor.WithHeaders("Authorization", "Bearer token"),
//	    monitor.WithTimeout(3*time.Second),
//	)
func NewEndpoint(name, rawURL string, opts ...EndpointOption) (Endpoint, error) {
	if err := checkStatusURL(rawURL); err != nil {
		return Endpoint{}, err
	}

	var cfg endpointConfig
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return Endpoint{}, err
		}
	}

	if name == "" {
		name = rawURL
	}

	return Endpoint{
		name:      name,
		url:       rawURL,
		labels:    cfg.labels,
		headers:   cfg.headers,
		timeout:   cfg.timeout,
		extractor: cfg.extractor,
	}, nil
}

func checkStatusURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("endpoint URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	switch {
	case err != nil:
		return fmt.Errorf("invalid URL: %w", err)
	case u.Scheme == "":
		return errors.New("URL must have a scheme (http:// or https://)")
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	case u.Host == "":
		return errors.New("URL must have a host")
	}
	return nil
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
