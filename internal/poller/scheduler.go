package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/avinashweb85/task-devops-monitor/internal/broadcast"
	"github.com/avinashweb85/task-devops-monitor/internal/metrics"
	"github.com/avinashweb85/task-devops-monitor/internal/snapshot"
)

// ErrSchedulerStopped is returned by Subscribe after Stop.
var ErrSchedulerStopped = errors.New("scheduler stopped")

// SnapshotObserver is notified of every snapshot an aggregation produces,
// before it is delivered. Observers must not block.
type SnapshotObserver func(snapshot.Snapshot)

// Scheduler runs an independent polling loop for every subscribed connection.
//
// Each subscription owns a goroutine and a ticker. The first aggregation
// runs immediately on subscribe, then once per interval. A subscription
// never has more than one aggregation in flight: ticks that fire while an
// aggregation is running are dropped, not queued.
//
// Subscriptions share nothing but the aggregator's read-only endpoint list.
// All methods are safe for concurrent use.
type Scheduler struct {
	aggregator  Aggregator
	broadcaster *broadcast.Broadcaster
	interval    time.Duration
	observer    SnapshotObserver
	logger      *slog.Logger
	metrics     *metrics.Metrics

	mu      sync.Mutex
	subs    map[string]*broadcast.Subscription
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler creates a per-subscription [Scheduler].
//
// Parameters:
//   - agg: Aggregator invoked on every tick
//   - b: Broadcaster used to deliver each snapshot
//   - interval: Time between ticks
//   - observer: Optional hook notified of every snapshot (may be nil)
//   - logger: Logger for subscription lifecycle events
//   - m: Metrics (may be nil)
func NewScheduler(agg Aggregator, b *broadcast.Broadcaster, interval time.Duration, observer SnapshotObserver, logger *slog.Logger, m *metrics.Metrics) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		aggregator:  agg,
		broadcaster: b,
		interval:    interval,
		observer:    observer,
		logger:      logger,
		metrics:     m,
		subs:        make(map[string]*broadcast.Subscription),
	}
}

// Subscribe starts polling on behalf of conn and returns its subscription.
//
// The subscription ends when [Scheduler.Unsubscribe] is called, when ctx is
// cancelled, or when a delivery to conn fails. Returns [ErrSchedulerStopped]
// once the scheduler has been stopped.
func (s *Scheduler) Subscribe(ctx context.Context, conn broadcast.Conn) (*broadcast.Subscription, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, ErrSchedulerStopped
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := broadcast.NewSubscription(conn, cancel)
	s.subs[sub.ID()] = sub
	s.wg.Add(1)
	s.mu.Unlock()

	s.metrics.SubscriptionOpened()
	s.logger.Info("subscription started",
		"subscription_id", sub.ID(),
		"conn_id", conn.ID(),
		"interval", s.interval.String(),
	)

	go s.run(subCtx, sub)
	return sub, nil
}

// Unsubscribe stops sub: its ticker is released, in-flight fetches are
// cancelled and any snapshot completing afterwards is discarded.
// Safe to call multiple times and from any goroutine.
func (s *Scheduler) Unsubscribe(sub *broadcast.Subscription) {
	if sub == nil || !sub.Stop() {
		return
	}

	s.mu.Lock()
	delete(s.subs, sub.ID())
	s.mu.Unlock()

	s.metrics.SubscriptionClosed()
	s.logger.Info("subscription stopped",
		"subscription_id", sub.ID(),
		"conn_id", sub.ConnID(),
		"delivered", sub.Delivered(),
	)
}

// Active returns the number of live subscriptions.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Stop tears down every subscription and waits for their loops to exit.
// Stop is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	subs := make([]*broadcast.Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		s.Unsubscribe(sub)
	}
	s.wg.Wait()
}

// run is the polling loop of a single subscription.
func (s *Scheduler) run(ctx context.Context, sub *broadcast.Subscription) {
	defer s.wg.Done()
	defer s.Unsubscribe(sub)

	if !s.tick(ctx, sub) {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tick(ctx, sub) {
				return
			}
			s.dropPendingTick(ticker, sub)
		}
	}
}

// tick aggregates once and delivers the result. It reports whether the
// subscription should keep running.
func (s *Scheduler) tick(ctx context.Context, sub *broadcast.Subscription) bool {
	snap := s.aggregator.Aggregate(ctx)

	if ctx.Err() != nil {
		// torn down while aggregating
		s.metrics.RecordDelivery(metrics.DeliveryDiscarded)
		return false
	}

	if s.observer != nil {
		s.observer(snap)
	}
	return s.broadcaster.Deliver(ctx, sub, snap)
}

// dropPendingTick discards a tick that fired while the previous aggregation
// was still running.
func (s *Scheduler) dropPendingTick(ticker *time.Ticker, sub *broadcast.Subscription) {
	select {
	case <-ticker.C:
		s.metrics.RecordSkippedTick()
		s.logger.Debug("tick skipped",
			"subscription_id", sub.ID(),
			"reason", "previous aggregation still running",
		)
	default:
	}
}
