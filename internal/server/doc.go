// Package server provides the HTTP server for the monitor dashboard and its
// push transports.
//
// This package handles all HTTP concerns:
//
//   - Dashboard serving: the embedded HTML/JS dashboard at "/"
//   - Push transports: Server-Sent Events at "/api/sse" and WebSocket at "/ws",
//     each request owning exactly one subscription
//   - One-shot snapshot: JSON at "/api/snapshot"
//   - Operations: "/healthz" and Prometheus "/metrics"
//
// Every route allows cross-origin requests. The server supports graceful
// shutdown via context cancellation, with a 5-second timeout for in-flight
// requests.
//
// Handlers never write to the network from the delivery goroutine. A
// subscription's connection is a hand-off queue drained by the handler,
// which owns the socket and applies write deadlines.
package server
