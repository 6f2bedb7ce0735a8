package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avinashweb85/task-devops-monitor/dashboard"
	"github.com/avinashweb85/task-devops-monitor/internal/broadcast"
	"github.com/avinashweb85/task-devops-monitor/internal/metrics"
	"github.com/avinashweb85/task-devops-monitor/internal/poller"
	"github.com/avinashweb85/task-devops-monitor/internal/server"
	"github.com/avinashweb85/task-devops-monitor/internal/snapshot"
	"github.com/avinashweb85/task-devops-monitor/internal/store"
)

const (
	defaultPollingInterval = 10 * time.Second
	defaultFetchTimeout    = 5 * time.Second
	defaultPort            = 8080
)

// Monitor polls a fixed list of JSON status endpoints and pushes each
// aggregated snapshot to connected dashboards.
//
// Monitor is created using [New] with functional options and started with
// [Monitor.Start]. The typical lifecycle is:
//
//	m, err := monitor.New(monitor.WithEndpoint(ep))
//	if err != nil {
//	    slog.Error("failed to create monitor", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	m.Start(ctx) // blocks until context cancelled
//
// The caller controls the lifecycle via the context. Cancel the context to
// trigger graceful shutdown. A Monitor is started at most once.
type Monitor struct {
	title             string
	endpoints         []Endpoint
	pollingInterval   time.Duration
	fetchTimeout      time.Duration
	port              int
	mode              Mode
	logger            *slog.Logger
	metrics           *metrics.Metrics
	snapshotCallbacks []func(Snapshot)

	statusMu   sync.Mutex
	lastStatus map[int]Status
}

// New creates a new [Monitor] instance with the given options.
//
// At least one endpoint must be configured via [WithEndpoint] or [WithEndpoints].
// Other options have sensible defaults:
//   - Polling interval: 10 seconds
//   - Fetch timeout: 5 seconds, or the polling interval if shorter
//   - Port: 8080
//   - Mode: per-subscription
//
// Returns an error if no endpoints are configured, if any option is invalid,
// or if a fetch timeout exceeds the polling interval.
func New(opts ...Option) (*Monitor, error) {
	cfg := &monitorConfig{
		endpoints:       []Endpoint{},
		pollingInterval: defaultPollingInterval,
		port:            defaultPort,
		mode:            ModePerSubscription,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.endpoints) == 0 {
		return nil, errors.New("at least one endpoint is required")
	}

	fetchTimeout := cfg.fetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = min(defaultFetchTimeout, cfg.pollingInterval)
	}
	if fetchTimeout > cfg.pollingInterval {
		return nil, fmt.Errorf("fetch timeout %s must not exceed polling interval %s", fetchTimeout, cfg.pollingInterval)
	}

	for i, ep := range cfg.endpoints {
		if ep.url == "" {
			return nil, fmt.Errorf("endpoints[%d]: endpoint must be created with NewEndpoint", i)
		}
		if ep.timeout > cfg.pollingInterval {
			return nil, fmt.Errorf("endpoints[%d] (%s): timeout %s must not exceed polling interval %s",
				i, ep.name, ep.timeout, cfg.pollingInterval)
		}
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.port)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	m := metrics.New()
	if cfg.registry != nil {
		m = metrics.NewWithRegistry(cfg.registry)
	}

	return &Monitor{
		title:             cfg.title,
		endpoints:         cfg.endpoints,
		pollingInterval:   cfg.pollingInterval,
		fetchTimeout:      fetchTimeout,
		port:              cfg.port,
		mode:              cfg.mode,
		logger:            logger,
		metrics:           m,
		snapshotCallbacks: cfg.snapshotCallbacks,
		lastStatus:        make(map[int]Status),
	}, nil
}

// Start begins serving viewers and polling on their behalf.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - The HTTP server starts on the configured port
//   - Each connected viewer is polled for immediately, then every polling interval
//     (or, in [ModeShared], one timer serves every viewer)
//   - The dashboard is available at http://localhost:<port>
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails to start.
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info("monitor starting",
		"endpoint_count", len(m.endpoints),
		"mode", string(m.mode),
	)
	m.logger.Info("polling configured",
		"interval", m.pollingInterval.String(),
		"fetch_timeout", m.fetchTimeout.String(),
	)
	m.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", m.port))

	if ctx.Err() != nil {
		return nil
	}

	client := poller.NewClient(m.logger, m.metrics)
	aggregator := poller.NewAggregator(m.toPollerEndpoints(), client, m.logger, m.metrics)
	broadcaster := broadcast.NewBroadcaster(m.logger, m.metrics)

	var (
		subscriber server.Subscriber
		stop       func()
	)
	switch m.mode {
	case ModeShared:
		hub := poller.NewHub(aggregator, broadcaster, store.NewMemoryStore(), m.pollingInterval, m.observe, m.logger, m.metrics)
		hub.Start(ctx)
		subscriber, stop = hub, hub.Stop
	default:
		scheduler := poller.NewScheduler(aggregator, broadcaster, m.pollingInterval, m.observe, m.logger, m.metrics)
		subscriber, stop = scheduler, scheduler.Stop
	}

	cleanup := func() {
		stop()
		client.Close()
	}

	httpServer := server.NewServer(subscriber, aggregator, m.metrics, m.port, dashboard.Assets, m.title, m.logger)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	m.logger.Info("monitor stopped")
	return nil
}

// Snapshot fetches every endpoint once and returns the aggregated result,
// without starting the server. Snapshot callbacks are not invoked.
func (m *Monitor) Snapshot(ctx context.Context) Snapshot {
	client := poller.NewClient(m.logger, m.metrics)
	defer client.Close()

	snap := poller.NewAggregator(m.toPollerEndpoints(), client, m.logger, m.metrics).Aggregate(ctx)
	return publicSnapshot(snap, m.endpoints, m.deriveStatus)
}

// observe runs for every aggregated snapshot before delivery. In
// per-subscription mode it is called concurrently from viewers' timers,
// so the status gauge holds whichever viewer's tick finished last.
func (m *Monitor) observe(snap snapshot.Snapshot) {
	pub := publicSnapshot(snap, m.endpoints, m.deriveStatus)

	for i, r := range pub.Results {
		m.metrics.SetEndpointStatus(r.URL, string(r.Status), allStatuses)
		m.logStatus(i, r)
	}

	for _, cb := range m.snapshotCallbacks {
		invokeCallbackSafe(cb, pub.clone(), m.logger)
	}
}

// logStatus logs status changes at info/warn and steady state at debug.
// Transitions are only tracked in shared mode; per-subscription viewers
// tick independently, so each result is logged at debug.
func (m *Monitor) logStatus(i int, r EndpointResult) {
	attrs := []any{
		"endpoint", r.Name,
		"url", r.URL,
		"status", string(r.Status),
	}
	if r.Error != "" {
		attrs = append(attrs, "error", r.Error)
	}

	if m.mode != ModeShared {
		m.logger.Debug("endpoint polled", attrs...)
		return
	}

	m.statusMu.Lock()
	prev, seen := m.lastStatus[i]
	m.lastStatus[i] = r.Status
	m.statusMu.Unlock()

	switch {
	case seen && prev == r.Status:
		m.logger.Debug("endpoint polled", attrs...)
	case r.Status == StatusDown:
		m.logger.Warn("endpoint down", append(attrs, "previous", string(prev))...)
	default:
		m.logger.Info("endpoint status changed", append(attrs, "previous", string(prev))...)
	}
}

// deriveStatus applies the endpoint's extractor with panic recovery.
func (m *Monitor) deriveStatus(ep Endpoint, body []byte) (status Status) {
	extractor := ep.extractor
	if extractor == nil {
		extractor = DefaultExtractor
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("status extractor panicked",
				"panic", r,
				"endpoint", ep.name,
				"correlation_id", uuid.NewString(),
				"stack", string(debug.Stack()),
			)
			status = StatusUnknown
		}
	}()

	return extractor(body)
}

// toPollerEndpoints converts Endpoint slice to poller.EndpointInfo slice.
func (m *Monitor) toPollerEndpoints() []poller.EndpointInfo {
	result := make([]poller.EndpointInfo, len(m.endpoints))

	for i, ep := range m.endpoints {
		timeout := ep.timeout
		if timeout == 0 {
			timeout = m.fetchTimeout
		}
		result[i] = poller.EndpointInfo{
			Name:    ep.name,
			URL:     ep.url,
			Headers: copyMap(ep.headers),
			Timeout: timeout,
		}
	}

	return result
}

// Endpoints returns a copy of the configured endpoints, in order.
func (m *Monitor) Endpoints() []Endpoint {
	cp := make([]Endpoint, len(m.endpoints))
	copy(cp, m.endpoints)
	return cp
}

// Port returns the configured HTTP port.
func (m *Monitor) Port() int {
	return m.port
}

// PollingInterval returns the configured interval between ticks.
func (m *Monitor) PollingInterval() time.Duration {
	return m.pollingInterval
}

// FetchTimeout returns the default per-fetch timeout.
func (m *Monitor) FetchTimeout() time.Duration {
	return m.fetchTimeout
}

// Mode returns the configured polling mode.
func (m *Monitor) Mode() Mode {
	return m.mode
}

// invokeCallbackSafe calls a snapshot callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Snapshot), snap Snapshot, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("snapshot callback panicked",
				"panic", r,
				"results", len(snap.Results),
			)
		}
	}()
	cb(snap)
}
