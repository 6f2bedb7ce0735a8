// Package dashboard provides the embedded web UI for the monitor.
//
// The page subscribes to /api/sse (falling back to /ws when EventSource is
// unavailable) and renders one card per endpoint from each update. Every
// field in an endpoint's body is optional; missing values render as "n/a".
package dashboard

import "embed"

// Assets contains the dashboard page:
//
//	assets/
//	  index.html    - page with inline CSS and JavaScript, {{.Title}} placeholder
//
//go:embed assets/*
var Assets embed.FS
