// Package broadcast delivers snapshots to viewer connections.
//
// The main components are:
//
//   - [Conn]: a viewer connection (SSE stream, WebSocket) able to receive a [Message]
//   - [Subscription]: lifecycle of one connection, ACTIVE then STOPPED
//   - [Broadcaster]: sends a snapshot to exactly one subscription
//
// Delivery to a stopped subscription is a no-op. Delivery failures are
// observability events (log + metric), never errors propagated to the poller.
package broadcast
