package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avinashweb85/task-devops-monitor/internal/metrics"
	"github.com/avinashweb85/task-devops-monitor/internal/snapshot"
)

// Fetcher fetches a single endpoint. [Client] is the production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, ep EndpointInfo) snapshot.EndpointResult
}

// Aggregator assembles a [snapshot.Snapshot] from all endpoints at once.
type Aggregator interface {
	Aggregate(ctx context.Context) snapshot.Snapshot
}

// FanOutAggregator fetches every configured endpoint concurrently.
//
// The endpoint list is fixed at construction and shared read-only.
type FanOutAggregator struct {
	endpoints []EndpointInfo
	fetcher   Fetcher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewAggregator creates a [FanOutAggregator] over endpoints. m may be nil.
func NewAggregator(endpoints []EndpointInfo, fetcher Fetcher, logger *slog.Logger, m *metrics.Metrics) *FanOutAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	eps := make([]EndpointInfo, len(endpoints))
	copy(eps, endpoints)
	return &FanOutAggregator{endpoints: eps, fetcher: fetcher, logger: logger, metrics: m}
}

// Endpoints returns a copy of the endpoint list.
func (a *FanOutAggregator) Endpoints() []EndpointInfo {
	eps := make([]EndpointInfo, len(a.endpoints))
	copy(eps, a.endpoints)
	return eps
}

// Aggregate launches one fetch per endpoint and waits for all of them.
//
// The returned snapshot has exactly one result per endpoint, in
// configuration order regardless of completion order. A failed fetch only
// affects its own entry; the wait is bounded by each fetch's own timeout.
// If ctx is cancelled, outstanding fetches fail fast and the snapshot is
// still complete.
func (a *FanOutAggregator) Aggregate(ctx context.Context) snapshot.Snapshot {
	start := time.Now()
	results := make([]snapshot.EndpointResult, len(a.endpoints))

	var wg sync.WaitGroup
	for i, ep := range a.endpoints {
		wg.Add(1)
		go func(i int, ep EndpointInfo) {
			defer wg.Done()
			results[i] = a.fetchSafe(ctx, ep)
		}(i, ep)
	}
	wg.Wait()

	a.metrics.RecordAggregation(time.Since(start))
	return snapshot.Snapshot{Results: results, GeneratedAt: time.Now()}
}

// fetchSafe isolates a panicking fetcher to its own entry. The stack trace
// is logged server-side under a correlation ID that is also put in the result.
func (a *FanOutAggregator) fetchSafe(ctx context.Context, ep EndpointInfo) (result snapshot.EndpointResult) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			a.logger.Error("fetch panic",
				"correlation_id", correlationID,
				"url", ep.URL,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			result = snapshot.Failure(ep.URL, fmt.Sprintf("fetch panic (correlation_id: %s)", correlationID))
		}
	}()
	return a.fetcher.Fetch(ctx, ep)
}
