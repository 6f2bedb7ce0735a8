package config

import (
	"fmt"
	"log/slog"
	"sort"

	monitor "github.com/avinashweb85/task-devops-monitor"
)

// BuildEndpoints converts parsed configuration into SDK Endpoint values,
// preserving configuration order.
func BuildEndpoints(cfg *Config) ([]monitor.Endpoint, error) {
	endpoints := make([]monitor.Endpoint, 0, len(cfg.Endpoints))

	for i, ec := range cfg.Endpoints {
		ep, err := buildEndpoint(ec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ec.label(i), err)
		}
		endpoints = append(endpoints, ep)
	}

	return endpoints, nil
}

// BuildOptions converts parsed configuration into monitor options, including
// the endpoints. logger is attached with [monitor.WithLogger] when non-nil.
func BuildOptions(cfg *Config, logger *slog.Logger) ([]monitor.Option, error) {
	endpoints, err := BuildEndpoints(cfg)
	if err != nil {
		return nil, err
	}

	mode, err := monitor.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}

	opts := []monitor.Option{
		monitor.WithEndpoints(endpoints...),
		monitor.WithPort(cfg.Port),
		monitor.WithPollingInterval(cfg.PollInterval.Duration()),
		monitor.WithFetchTimeout(cfg.FetchTimeout.Duration()),
		monitor.WithMode(mode),
	}
	if cfg.Title != "" {
		opts = append(opts, monitor.WithTitle(cfg.Title))
	}
	if logger != nil {
		opts = append(opts, monitor.WithLogger(logger))
	}

	return opts, nil
}

// buildEndpoint converts a single EndpointConfig to an SDK Endpoint.
func buildEndpoint(ec EndpointConfig) (monitor.Endpoint, error) {
	var opts []monitor.EndpointOption

	if ec.Timeout != 0 {
		opts = append(opts, monitor.WithTimeout(ec.Timeout.Duration()))
	}

	if len(ec.Headers) > 0 {
		opts = append(opts, monitor.WithHeaders(mapToKeyValuePairs(ec.Headers)...))
	}

	if len(ec.Labels) > 0 {
		opts = append(opts, monitor.WithLabels(mapToKeyValuePairs(ec.Labels)...))
	}

	if extractor := buildExtractor(ec.Extractor); extractor != nil {
		opts = append(opts, monitor.WithExtractor(extractor))
	}

	return monitor.NewEndpoint(ec.Name, ec.URL, opts...)
}

// mapToKeyValuePairs converts a map to a slice of key-value pairs sorted by key.
func mapToKeyValuePairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}

// buildExtractor converts ExtractorConfig to a StatusExtractor.
// Returns nil for default/empty extractors so the SDK uses DefaultExtractor.
func buildExtractor(ec ExtractorConfig) monitor.StatusExtractor {
	switch ec.Type {
	case "reachable":
		return monitor.ReachableExtractor
	case "json":
		return monitor.JSONFieldExtractor(ec.Path)
	case "contains":
		return monitor.ContainsExtractor(ec.Text)
	default:
		return nil
	}
}
