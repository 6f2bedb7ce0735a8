// Package main is the entry point for the devops-monitor CLI.
//
// The monitor can be embedded as a library (SDK) or run as a standalone
// binary with YAML configuration. This CLI provides the standalone binary.
//
// Usage:
//
//	devops-monitor serve -c config.yaml    # Start the dashboard
//	devops-monitor check -c config.yaml    # Poll every endpoint once
//	devops-monitor validate -c config.yaml # Validate configuration
//	devops-monitor version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd displays help; functionality lives in subcommands.
var rootCmd = &cobra.Command{
	Use:   "devops-monitor",
	Short: "A real-time dashboard for JSON status endpoints",
	Long: `devops-monitor polls a fixed list of JSON status endpoints and pushes
the aggregated results to connected dashboards over Server-Sent Events
or WebSocket.

Quick start:
  1. Create a config file (monitor.yaml)
  2. Run: devops-monitor serve -c monitor.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  poll_interval: 10s
  endpoints:
    - https://api.example.com/status
    - url: https://db.example.com/status
      name: Database
      extractor: json:results.services.database`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this devops-monitor binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "devops-monitor %s\n", version)
		_, _ = fmt.Fprintf(out, "  commit: %s\n", commit)
		_, _ = fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
