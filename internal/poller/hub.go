package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/avinashweb85/task-devops-monitor/internal/broadcast"
	"github.com/avinashweb85/task-devops-monitor/internal/metrics"
	"github.com/avinashweb85/task-devops-monitor/internal/store"
)

// Hub runs a single polling loop and fans each snapshot out to every
// subscription.
//
// Hub is the shared-snapshot alternative to [Scheduler]: one aggregation
// per tick serves all viewers, instead of one per viewer. The two are never
// combined. A new subscriber immediately receives the latest snapshot, if
// any, then every snapshot published after it.
//
// Like Scheduler, the loop runs one aggregation at a time and drops ticks
// that fire while one is running.
type Hub struct {
	aggregator  Aggregator
	broadcaster *broadcast.Broadcaster
	store       store.Store
	interval    time.Duration
	observer    SnapshotObserver
	logger      *slog.Logger
	metrics     *metrics.Metrics

	mu      sync.Mutex
	subs    map[string]*broadcast.Subscription
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewHub creates a shared-snapshot [Hub] publishing into st.
func NewHub(agg Aggregator, b *broadcast.Broadcaster, st store.Store, interval time.Duration, observer SnapshotObserver, logger *slog.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		aggregator:  agg,
		broadcaster: b,
		store:       st,
		interval:    interval,
		observer:    observer,
		logger:      logger,
		metrics:     m,
		subs:        make(map[string]*broadcast.Subscription),
	}
}

// Start begins the polling loop in a background goroutine.
//
// The first aggregation runs immediately. Start is idempotent; if Stop was
// called before Start, Start is a no-op.
func (h *Hub) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	h.mu.Lock()
	if h.started || h.stopped {
		h.mu.Unlock()
		return
	}
	h.started = true
	loopCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.wg.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()

		h.publish(loopCtx)

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				h.publish(loopCtx)
				select {
				case <-ticker.C:
					h.metrics.RecordSkippedTick()
				default:
				}
			}
		}
	}()
}

func (h *Hub) publish(ctx context.Context) {
	snap := h.aggregator.Aggregate(ctx)
	if ctx.Err() != nil {
		return
	}
	if h.observer != nil {
		h.observer(snap)
	}
	seq := h.store.Publish(snap)
	h.logger.Debug("snapshot published",
		"seq", seq,
		"results", snap.Len(),
		"failed", snap.Failed(),
	)
}

// Subscribe registers conn for every published snapshot.
func (h *Hub) Subscribe(ctx context.Context, conn broadcast.Conn) (*broadcast.Subscription, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil, ErrSchedulerStopped
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := broadcast.NewSubscription(conn, cancel)
	h.subs[sub.ID()] = sub
	h.wg.Add(1)
	h.mu.Unlock()

	// subscribe before reading Latest so no publication falls in between
	updates := h.store.Subscribe()

	h.metrics.SubscriptionOpened()
	h.logger.Info("subscription started",
		"subscription_id", sub.ID(),
		"conn_id", conn.ID(),
		"mode", "shared",
	)

	go h.forward(subCtx, sub, updates)
	return sub, nil
}

// forward delivers published snapshots to one subscription, in publication order.
func (h *Hub) forward(ctx context.Context, sub *broadcast.Subscription, updates <-chan store.Update) {
	defer h.wg.Done()
	defer h.store.Unsubscribe(updates)
	defer h.Unsubscribe(sub)

	var lastSeq uint64
	deliver := func(u store.Update) bool {
		if u.Seq <= lastSeq {
			return true
		}
		lastSeq = u.Seq
		return h.broadcaster.Deliver(ctx, sub, u.Snapshot)
	}

	if latest, ok := h.store.Latest(); ok && !deliver(latest) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok || !deliver(u) {
				return
			}
		}
	}
}

// Unsubscribe stops sub. Safe to call multiple times.
func (h *Hub) Unsubscribe(sub *broadcast.Subscription) {
	if sub == nil || !sub.Stop() {
		return
	}

	h.mu.Lock()
	delete(h.subs, sub.ID())
	h.mu.Unlock()

	h.metrics.SubscriptionClosed()
	h.logger.Info("subscription stopped",
		"subscription_id", sub.ID(),
		"conn_id", sub.ConnID(),
		"delivered", sub.Delivered(),
	)
}

// Active returns the number of live subscriptions.
func (h *Hub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Stop halts the polling loop, tears down every subscription and waits for
// all goroutines to exit. Stop is idempotent and safe before Start.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.stopped = true
	if h.cancel != nil {
		h.cancel()
	}
	subs := make([]*broadcast.Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		h.Unsubscribe(sub)
	}
	h.wg.Wait()
}
