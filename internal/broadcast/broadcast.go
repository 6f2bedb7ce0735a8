package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avinashweb85/task-devops-monitor/internal/metrics"
	"github.com/avinashweb85/task-devops-monitor/internal/snapshot"
)

// ErrConnClosed is returned by [Conn.Send] once the viewer has gone away.
var ErrConnClosed = errors.New("connection closed")

// Message is the payload pushed to a viewer for one tick.
type Message struct {
	// Tick is the 1-based sequence number of this delivery on the subscription.
	Tick uint64 `json:"tick"`

	// GeneratedAt is when the snapshot was assembled.
	GeneratedAt time.Time `json:"generated_at"`

	// Results holds one entry per configured endpoint, in configuration order.
	Results []snapshot.EndpointResult `json:"results"`
}

// Conn is a viewer connection able to receive messages.
//
// Send must not retain msg beyond the call unless it copies it, and must
// return promptly once ctx is cancelled. Implementations return
// [ErrConnClosed] (or any error) when the viewer is unreachable.
type Conn interface {
	ID() string
	Send(ctx context.Context, msg Message) error
}

// Broadcaster delivers snapshots to individual subscriptions.
type Broadcaster struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewBroadcaster creates a [Broadcaster]. m may be nil.
func NewBroadcaster(logger *slog.Logger, m *metrics.Metrics) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{logger: logger, metrics: m}
}

// Deliver sends snap to the connection owned by sub, and to nothing else.
//
// Deliver reports whether the message reached the connection. A stopped
// subscription is a silent no-op. A send failure is logged and counted but
// never returned; callers tear the subscription down when Deliver is false.
func (b *Broadcaster) Deliver(ctx context.Context, sub *Subscription, snap snapshot.Snapshot) bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.state != StateActive {
		b.metrics.RecordDelivery(metrics.DeliveryDiscarded)
		b.logger.Debug("delivery discarded",
			"subscription_id", sub.id,
			"reason", "subscription stopped",
		)
		return false
	}

	msg := Message{
		Tick:        sub.ticks + 1,
		GeneratedAt: snap.GeneratedAt,
		Results:     snap.Results,
	}

	if err := sub.conn.Send(ctx, msg); err != nil {
		b.metrics.RecordDelivery(metrics.DeliveryFailed)
		if errors.Is(err, ErrConnClosed) || errors.Is(err, context.Canceled) {
			b.logger.Debug("delivery to closed connection",
				"subscription_id", sub.id,
				"conn_id", sub.conn.ID(),
			)
		} else {
			b.logger.Warn("delivery failed",
				"subscription_id", sub.id,
				"conn_id", sub.conn.ID(),
				"error", err.Error(),
			)
		}
		return false
	}

	sub.ticks++
	b.metrics.RecordDelivery(metrics.DeliveryDelivered)
	return true
}
