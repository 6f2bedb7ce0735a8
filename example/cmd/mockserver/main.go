// Standalone mock status server for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/devops-monitor serve -c example/config.yaml
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/avinashweb85/task-devops-monitor/example/mockstatus"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	fmt.Println("Mock status server starting on :9999")
	fmt.Println("Regions cycle through: ok → degraded → down")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	srv := &http.Server{
		Addr:              ":9999",
		Handler:           mockstatus.New(logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
