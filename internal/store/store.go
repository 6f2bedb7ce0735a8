package store

import "github.com/avinashweb85/task-devops-monitor/internal/snapshot"

// Update is a published snapshot tagged with its publication sequence number.
type Update struct {
	// Seq increases by one with every published snapshot, starting at 1.
	Seq uint64

	// Snapshot is the published aggregation.
	Snapshot snapshot.Snapshot
}

// Store holds the latest snapshot and fans new ones out to subscribers.
//
// Store implementations must be safe for concurrent access. It backs the
// shared-snapshot mode, where one polling loop serves every viewer.
type Store interface {
	// Publish stores snap as the latest snapshot and notifies all subscribers.
	// It returns the sequence number assigned to snap.
	Publish(snap snapshot.Snapshot) uint64

	// Latest returns the most recently published snapshot, if any.
	Latest() (Update, bool)

	// Subscribe returns a channel that receives published snapshots.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Update

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Update)
}
