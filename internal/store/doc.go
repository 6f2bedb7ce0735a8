// Package store keeps the latest snapshot for the shared-snapshot mode and
// publishes new snapshots to subscribers.
//
// The main components are:
//
//   - [Store]: Interface defining publish and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Update]: A published snapshot with its sequence number
//
// Nothing is persisted. Subscribers receive updates via channels with
// latest-wins semantics (slow subscribers skip stale snapshots rather than
// block the publisher).
package store
