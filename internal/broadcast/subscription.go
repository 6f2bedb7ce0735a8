package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// State is the lifecycle state of a [Subscription].
type State int

const (
	// StateActive means ticks produce deliveries.
	StateActive State = iota

	// StateStopped is terminal: no further deliveries happen.
	StateStopped
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Subscription is the live relationship between one viewer connection and
// the loop that polls on its behalf.
//
// A Subscription moves from [StateActive] to [StateStopped] exactly once.
// Delivery and [Subscription.Stop] are serialized on the same mutex, so
// once Stop returns no delivery to the connection can start.
type Subscription struct {
	id     string
	conn   Conn
	cancel context.CancelFunc

	mu    sync.Mutex
	state State
	ticks uint64
}

// NewSubscription creates an active subscription for conn. cancel is invoked
// by Stop and should release whatever drives the subscription (its timer
// loop, in-flight fetches). cancel may be nil.
func NewSubscription(conn Conn, cancel context.CancelFunc) *Subscription {
	return &Subscription{
		id:     uuid.NewString(),
		conn:   conn,
		cancel: cancel,
		state:  StateActive,
	}
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// ConnID returns the identity of the underlying connection.
func (s *Subscription) ConnID() string {
	return s.conn.ID()
}

// State returns the current lifecycle state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active reports whether the subscription still accepts deliveries.
func (s *Subscription) Active() bool {
	return s.State() == StateActive
}

// Stop cancels the subscription and marks it stopped. It waits for an
// in-flight delivery to finish. Stop reports whether this call performed the
// transition; later calls are no-ops returning false.
func (s *Subscription) Stop() bool {
	// cancel before taking the lock: a delivery blocked in Send holds it and
	// returns once its context is done
	if s.cancel != nil {
		s.cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return false
	}
	s.state = StateStopped
	return true
}

// Delivered returns the number of snapshots delivered so far.
func (s *Subscription) Delivered() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}
