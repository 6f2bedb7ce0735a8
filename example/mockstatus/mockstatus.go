// Package mockstatus serves fake status endpoints for demos and manual
// testing of the monitor.
//
// Each region under /status/{region} reports a payload shaped like a real
// backend status page, cycling through ok, degraded and down every 20-60
// seconds. /status/slow never answers within a normal fetch timeout.
package mockstatus

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

var statuses = []string{"ok", "degraded", "down"}

type regionState struct {
	statusIdx    int
	nextChangeAt time.Time
}

// Server holds per-region state for the fake endpoints.
type Server struct {
	logger *slog.Logger

	mu     sync.Mutex
	states map[string]*regionState
}

// New creates a mock status server.
func New(logger *slog.Logger) *Server {
	return &Server{
		logger: logger,
		states: make(map[string]*regionState),
	}
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/status/slow", s.handleSlow)
	r.Get("/status/{region}", s.handleStatus)
	return r
}

func (s *Server) handleSlow(w http.ResponseWriter, r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(30 * time.Second):
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")

	// latency variance
	time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

	status := s.currentStatus(region)

	payload := map[string]any{
		"status": status,
		"region": region,
		"roles":  []string{"api", "worker"},
		"strict": region == "eu-west",
		"results": map[string]any{
			"services": map[string]bool{
				"redis":    status != "down",
				"database": status == "ok",
			},
			"stats": map[string]any{
				"servers_count": 3 + rand.Intn(3),
				"online":        rand.Intn(5000),
				"session":       rand.Intn(800),
				"server": map[string]any{
					"active_connections": rand.Intn(300),
					"wait_time":          rand.Intn(40),
					"cpu_load":           float64(rand.Intn(100)) / 100,
					"timers":             rand.Intn(50),
					"workers": [][]any{
						{"io", map[string]int{"wait_time": rand.Intn(10), "workers": 8, "waiting": rand.Intn(4), "idle": rand.Intn(8), "time_to_return": rand.Intn(20)}},
						{"compute", map[string]int{"wait_time": rand.Intn(10), "workers": 4, "waiting": rand.Intn(2), "idle": rand.Intn(4), "time_to_return": rand.Intn(20)}},
					},
				},
			},
		},
	}
	if status != "ok" {
		payload["server_issue"] = "elevated error rate in " + region
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

// currentStatus advances a region's status when its change time has passed.
func (s *Server) currentStatus(region string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[region]
	if !ok {
		state = &regionState{nextChangeAt: nextChange()}
		s.states[region] = state
	}

	if time.Now().After(state.nextChangeAt) {
		from := statuses[state.statusIdx]
		state.statusIdx = (state.statusIdx + 1) % len(statuses)
		state.nextChangeAt = nextChange()
		s.logger.Info("status change", "region", region, "from", from, "to", statuses[state.statusIdx])
	}
	return statuses[state.statusIdx]
}

func nextChange() time.Time {
	return time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
}
