// Package monitor polls a fixed list of JSON status endpoints and pushes the
// aggregated results to browser dashboards in real time.
//
// # Quick Start
//
//	api, _ := monitor.NewEndpoint("API", "https://api.example.com/status")
//	db, _ := monitor.NewEndpoint("DB", "https://db.example.com/status")
//	m, _ := monitor.New(monitor.WithEndpoints(api, db))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	m.Start(ctx) // blocks until ctx is cancelled
//
// # Polling
//
// Every tick fetches all endpoints concurrently and assembles a snapshot in
// configuration order. A failing endpoint (timeout, non-2xx status, invalid
// JSON, transport error) contributes an error entry and never affects the
// others. A tick that fires while the previous aggregation is still running
// is skipped.
//
// In [ModePerSubscription] (the default) each connected viewer gets its own
// timer: it is polled for immediately on connect, then every polling
// interval, and its timer stops when it disconnects. Nothing is fetched while
// no viewer is connected. [ModeShared] runs a single timer from [Monitor.Start]
// and fans each snapshot out to every viewer.
//
// # Transports
//
// Viewers connect with Server-Sent Events at /api/sse or a WebSocket at /ws.
// Each delivery is a JSON object:
//
//	{"tick":1,"generated_at":"...","results":[{"url":"...","data":{...},"error":null}]}
//
// /api/snapshot returns one on-demand aggregation, /metrics exposes
// Prometheus metrics and / serves the embedded dashboard.
//
// # Status Extractors
//
// A [StatusExtractor] turns a successful body into a [Status] for logs,
// metrics and snapshot callbacks:
//
//   - [JSONFieldExtractor]: reads a field using a gjson path
//   - [ContainsExtractor]: up if the body contains a substring
//   - [RegexExtractor]: matches the body against a pattern
//   - [ReachableExtractor]: up whenever the fetch succeeded
//   - [FirstMatch]: first non-unknown result of several extractors
//   - [DefaultExtractor]: the "status" field, falling back to reachable
//
// Failed fetches are always [StatusDown].
package monitor
