package store

import (
	"sync"

	"github.com/avinashweb85/task-devops-monitor/internal/snapshot"
)

// MemoryStore is an in-memory implementation of [Store].
//
// Only the latest snapshot is kept. Subscribers receive updates via channels
// with a buffer of one: when a subscriber has not yet consumed the previous
// snapshot, it is replaced by the newer one, so slow viewers skip stale data
// instead of blocking the publisher.
type MemoryStore struct {
	mu     sync.RWMutex
	latest Update
	seq    uint64

	subscribers map[chan Update]struct{}
	subMu       sync.Mutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[chan Update]struct{}),
	}
}

// Publish stores snap and notifies all subscribers.
func (m *MemoryStore) Publish(snap snapshot.Snapshot) uint64 {
	m.mu.Lock()
	m.seq++
	u := Update{Seq: m.seq, Snapshot: snap}
	m.latest = u
	m.mu.Unlock()

	m.notifySubscribers(u)
	return u.Seq
}

// Latest returns the most recently published snapshot. The boolean is false
// until the first Publish.
func (m *MemoryStore) Latest() (Update, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, m.latest.Seq > 0
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Update {
	ch := make(chan Update, 1)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Update) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (m *MemoryStore) Subscribers() int {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	return len(m.subscribers)
}

// notifySubscribers hands u to every subscriber, replacing an unread older update.
func (m *MemoryStore) notifySubscribers(u Update) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for ch := range m.subscribers {
		select {
		case ch <- u:
			continue
		default:
		}

		// buffer full: drop the stale update, then retry once
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- u:
		default:
		}
	}
}
