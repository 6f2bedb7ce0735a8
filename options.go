package monitor

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Mode selects how polling is driven.
type Mode string

const (
	// ModePerSubscription gives every viewer its own timer and aggregation.
	ModePerSubscription Mode = "per-subscription"

	// ModeShared runs one timer whose snapshots are fanned out to all viewers.
	ModeShared Mode = "shared"
)

// ParseMode converts a mode name to a [Mode]. An empty name selects
// [ModePerSubscription].
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModePerSubscription:
		return ModePerSubscription, nil
	case ModeShared:
		return ModeShared, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModePerSubscription, ModeShared)
	}
}

// monitorConfig holds mutable state during Monitor construction.
type monitorConfig struct {
	title             string
	endpoints         []Endpoint
	pollingInterval   time.Duration
	fetchTimeout      time.Duration
	port              int
	mode              Mode
	logger            *slog.Logger
	registry          *prometheus.Registry
	snapshotCallbacks []func(Snapshot)
}

// Option is a function that configures a [Monitor] instance during construction.
//
// Option implements the functional options pattern. Options return an error
// if validation fails.
type Option func(*monitorConfig) error

// WithEndpoint adds a single [Endpoint] to the polling list.
//
// Can be called multiple times. Endpoints are fetched and reported in the
// order they are added. At least one endpoint must be configured for [New]
// to succeed.
func WithEndpoint(e Endpoint) Option {
	return func(cfg *monitorConfig) error {
		cfg.endpoints = append(cfg.endpoints, e)
		return nil
	}
}

// WithEndpoints adds multiple [Endpoint] values to the polling list, in order.
//
// Equivalent to calling [WithEndpoint] for each endpoint.
func WithEndpoints(endpoints ...Endpoint) Option {
	return func(cfg *monitorConfig) error {
		cfg.endpoints = append(cfg.endpoints, endpoints...)
		return nil
	}
}

// WithPollingInterval sets the time between ticks of a viewer's timer.
//
// Defaults to 10 seconds if not specified.
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithFetchTimeout sets the default per-fetch timeout.
//
// A fetch exceeding it fails with the error "timeout". Must not exceed the
// polling interval. Defaults to 5 seconds, capped at the polling interval.
//
// Returns an error if the duration is zero or negative.
func WithFetchTimeout(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return errors.New("fetch timeout must be positive")
		}
		cfg.fetchTimeout = d
		return nil
	}
}

// WithPort sets the HTTP port viewers connect to.
//
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *monitorConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithMode selects the polling mode. Defaults to [ModePerSubscription].
func WithMode(m Mode) Option {
	return func(cfg *monitorConfig) error {
		mode, err := ParseMode(string(m))
		if err != nil {
			return err
		}
		cfg.mode = mode
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Monitor instance.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *monitorConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithMetricsRegistry registers the monitor's Prometheus collectors into reg
// instead of a private registry. The /metrics route then serves everything
// in reg.
//
// Returns an error if the registry is nil.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(cfg *monitorConfig) error {
		if reg == nil {
			return errors.New("metrics registry cannot be nil")
		}
		cfg.registry = reg
		return nil
	}
}

// WithSnapshotCallback registers a function called with every aggregated
// snapshot.
//
// In [ModePerSubscription] each viewer's timer produces its own snapshots,
// so callbacks fire once per viewer per tick. In [ModeShared] they fire
// once per tick.
//
// Callbacks run synchronously before delivery and must be non-blocking.
// Multiple callbacks execute in registration order. Panics are recovered and
// logged. Nil callbacks are ignored.
//
// Example:
//
//	m, err := monitor.New(
//	    monitor.WithEndpoint(api),
//	    monitor.WithSnapshotCallback(func(s monitor.Snapshot) {
//	        for _, r := range s.Results {
//	            if r.Status == monitor.StatusDown {
//	                log.Printf("ALERT: %s is down: %s", r.Name, r.Error)
//	            }
//	        }
//	    }),
//	)
func WithSnapshotCallback(cb func(Snapshot)) Option {
	return func(cfg *monitorConfig) error {
		if cb == nil {
			return nil
		}
		cfg.snapshotCallbacks = append(cfg.snapshotCallbacks, cb)
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
//
// If not specified, defaults to "DevOps Monitor".
func WithTitle(title string) Option {
	return func(cfg *monitorConfig) error {
		cfg.title = title
		return nil
	}
}
