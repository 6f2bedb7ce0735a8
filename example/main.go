package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	monitor "github.com/avinashweb85/task-devops-monitor"
	"github.com/avinashweb85/task-devops-monitor/example/mockstatus"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mock := &http.Server{
		Addr:              ":9999",
		Handler:           mockstatus.New(logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := mock.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("mock server error", "error", err)
		}
	}()

	var endpoints []monitor.Endpoint
	for _, region := range []string{"us-east", "eu-west", "ap-south"} {
		ep, err := monitor.NewEndpoint(region, "http://localhost:9999/status/"+region,
			monitor.WithLabels("region", region),
		)
		if err != nil {
			logger.Error("invalid endpoint", "error", err)
			os.Exit(1)
		}
		endpoints = append(endpoints, ep)
	}

	// never answers within the fetch timeout, so it always shows "timeout"
	slow, _ := monitor.NewEndpoint("slow", "http://localhost:9999/status/slow")
	endpoints = append(endpoints, slow)

	m, err := monitor.New(
		monitor.WithEndpoints(endpoints...),
		monitor.WithPollingInterval(5*time.Second),
		monitor.WithFetchTimeout(2*time.Second),
		monitor.WithPort(8080),
		monitor.WithLogger(logger),
		monitor.WithSnapshotCallback(func(s monitor.Snapshot) {
			for _, r := range s.Results {
				if r.Status == monitor.StatusDown {
					logger.Warn("ALERT", "endpoint", r.Name, "error", r.Error)
				}
			}
		}),
	)
	if err != nil {
		logger.Error("failed to create monitor", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  Demo running: open http://localhost:8080 in your browser")
	fmt.Println("  3 mock regions + 1 endpoint that always times out")
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Start(ctx); err != nil {
		logger.Error("monitor error", "error", err)
		os.Exit(1)
	}
}
