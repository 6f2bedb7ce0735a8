package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avinashweb85/task-devops-monitor/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  devops-monitor validate -c monitor.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := config.BuildEndpoints(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	mode := cfg.Mode
	if mode == "" {
		mode = "per-subscription"
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Config is valid!\n")
	_, _ = fmt.Fprintf(out, "  Port:          %d\n", cfg.Port)
	_, _ = fmt.Fprintf(out, "  Poll interval: %s\n", cfg.PollInterval.Duration())
	_, _ = fmt.Fprintf(out, "  Fetch timeout: %s\n", cfg.FetchTimeout.Duration())
	_, _ = fmt.Fprintf(out, "  Mode:          %s\n", mode)
	_, _ = fmt.Fprintf(out, "  Endpoints:     %d\n", len(cfg.Endpoints))

	return nil
}
