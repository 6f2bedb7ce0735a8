package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	monitor "github.com/avinashweb85/task-devops-monitor"
	"github.com/avinashweb85/task-devops-monitor/config"
	"github.com/avinashweb85/task-devops-monitor/internal/logging"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Poll every endpoint once and print the result",
	Long: `Fetch every configured endpoint once, concurrently, and print one line
per endpoint in configuration order. No server is started.

--field reads a value from each successful body using a gjson path
(for example results.stats.online or checks.0.state).
--json prints the aggregated snapshot as JSON instead of a table.

Exit codes:
  0 - Every endpoint responded
  1 - At least one endpoint failed, or the config is invalid

Example:
  devops-monitor check -c monitor.yaml
  devops-monitor check -c monitor.yaml --field results.stats.online`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	checkCmd.Flags().String("field", "", "gjson path to print from each response body")
	checkCmd.Flags().Bool("json", false, "print the snapshot as JSON")
	_ = checkCmd.MarkFlagRequired("config")
}

// checkResult is the JSON form of one endpoint in check output.
type checkResult struct {
	Name   string          `json:"name"`
	URL    string          `json:"url"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *string         `json:"error"`
}

type checkOutput struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Results     []checkResult `json:"results"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	field, _ := cmd.Flags().GetString("field")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Log.Logging(), os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = closer.Close() }()

	opts, err := config.BuildOptions(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build endpoints: %w", err)
	}

	mon, err := monitor.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.PollInterval.Duration())
	defer cancel()

	snap := mon.Snapshot(ctx)

	out := cmd.OutOrStdout()
	if asJSON {
		err = writeCheckJSON(out, snap)
	} else {
		err = writeCheckTable(out, snap, field)
	}
	if err != nil {
		return err
	}

	if failed := snap.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d endpoints failed", failed, len(snap.Results))
	}
	return nil
}

func writeCheckJSON(w io.Writer, snap monitor.Snapshot) error {
	payload := checkOutput{
		GeneratedAt: snap.GeneratedAt,
		Results:     make([]checkResult, len(snap.Results)),
	}
	for i, r := range snap.Results {
		res := checkResult{Name: r.Name, URL: r.URL, Status: r.Status.String(), Data: r.Data}
		if !r.OK() {
			msg := r.Error
			res.Error = &msg
		}
		payload.Results[i] = res
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

func writeCheckTable(w io.Writer, snap monitor.Snapshot, field string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := "NAME\tSTATUS\tDETAIL"
	if field != "" {
		header = "NAME\tSTATUS\t" + field
	}
	_, _ = fmt.Fprintln(tw, header)

	for _, r := range snap.Results {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.Status, checkDetail(r, field))
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

// checkDetail returns the error for failed fetches, the value at field when
// one is given, or the URL.
func checkDetail(r monitor.EndpointResult, field string) string {
	switch {
	case !r.OK():
		return "error: " + r.Error
	case field == "":
		return r.URL
	}

	v := gjson.GetBytes(r.Data, field)
	if !v.Exists() {
		return "n/a"
	}
	return v.String()
}
