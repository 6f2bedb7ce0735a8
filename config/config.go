// Package config provides YAML configuration parsing for the devops-monitor
// binary.
//
// This package enables running the monitor as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Production
//	port: 8080
//	poll_interval: 10s
//	fetch_timeout: 5s
//	mode: per-subscription
//
//	log:
//	  level: info
//	  file: /var/log/devops-monitor/monitor.log
//
//	endpoints:
//	  - https://api.example.com/status
//	  - url: https://db.example.com/status
//	    name: Database
//	    timeout: 2s
//	    headers:
//	      Authorization: Bearer ${DB_TOKEN}
//	    extractor: json:results.services.database
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	monitor "github.com/avinashweb85/task-devops-monitor"
	"github.com/avinashweb85/task-devops-monitor/internal/logging"
)

const (
	defaultPort         = 8080
	defaultPollInterval = 10 * time.Second
	defaultFetchTimeout = 5 * time.Second

	// minPollInterval prevents accidental DoS of endpoints with overly
	// aggressive polling.
	minPollInterval = 1 * time.Second
)

// Config is the root configuration structure.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "DevOps Monitor" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// PollInterval is the time between ticks of a viewer's timer.
	// Accepts duration strings like "10s", "1m", "500ms". Defaults to 10s.
	PollInterval Duration `yaml:"poll_interval"`

	// FetchTimeout is the default per-fetch timeout. Defaults to 5s, capped
	// at PollInterval.
	FetchTimeout Duration `yaml:"fetch_timeout"`

	// Mode is "per-subscription" (default) or "shared".
	Mode string `yaml:"mode"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`

	// Endpoints lists the status endpoints in display order.
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// LogConfig controls the log level, format and optional rotating file sink.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Logging converts the section into a logging.Config.
func (l LogConfig) Logging() logging.Config {
	return logging.Config{
		Level:      l.Level,
		Format:     l.Format,
		File:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		Compress:   l.Compress,
	}
}

// EndpointConfig defines a single status endpoint.
//
// In YAML it is either a bare URL string or an object.
type EndpointConfig struct {
	// URL is the status endpoint URL.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Name is the display name. Defaults to the URL.
	Name string `yaml:"name"`

	// Timeout overrides fetch_timeout for this endpoint.
	Timeout Duration `yaml:"timeout"`

	// Headers are custom HTTP headers sent with each request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Labels are metadata key-value pairs passed to snapshot callbacks.
	Labels map[string]string `yaml:"labels"`

	// Extractor determines how to interpret a successful body as a status.
	// Can be shorthand ("json:status", "contains:ok") or structured.
	Extractor ExtractorConfig `yaml:"extractor"`
}

// UnmarshalYAML implements yaml.Unmarshaler for EndpointConfig.
func (e *EndpointConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&e.URL)
	}

	if node.Kind == yaml.MappingNode {
		// alias type to avoid infinite recursion
		type plain EndpointConfig
		return node.Decode((*plain)(e))
	}

	return fmt.Errorf("endpoint must be a URL string or object, got %v", node.Kind)
}

// label identifies the endpoint in error messages.
func (e EndpointConfig) label(i int) string {
	if e.Name != "" {
		return fmt.Sprintf("endpoints[%d] (%s)", i, e.Name)
	}
	return fmt.Sprintf("endpoints[%d]", i)
}

// ExtractorConfig specifies how to determine health status from a response.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	extractor: json:status
//	extractor: json:data.health.status
//	extractor: contains:ok
//	extractor: reachable
//	extractor: default
//
// Structured object:
//
//	extractor:
//	  type: json
//	  path: data.health.status
type ExtractorConfig struct {
	// Type is the extractor type: "default", "reachable", "json", "contains".
	Type string

	// Path is the gjson path (for type: json).
	Path string

	// Text is the substring to search for (for type: contains).
	Text string
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for ExtractorConfig.
func (e *ExtractorConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		return e.parseShorthand(s)
	}

	if node.Kind == yaml.MappingNode {
		var raw struct {
			Type string `yaml:"type"`
			Path string `yaml:"path"`
			Text string `yaml:"text"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		e.Type = raw.Type
		e.Path = raw.Path
		e.Text = raw.Text
		return nil
	}

	return fmt.Errorf("extractor must be a string or object, got %v", node.Kind)
}

// parseShorthand parses extractor shorthand syntax.
//
// Supported formats:
//   - "default" → status field, falling back to reachable
//   - "reachable" → up whenever the fetch succeeds
//   - "json:path" → extract from a JSON field
//   - "contains:text" → check if body contains text
func (e *ExtractorConfig) parseShorthand(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if idx := strings.Index(s, ":"); idx != -1 {
		e.Type = s[:idx]
		value := s[idx+1:]

		switch e.Type {
		case "json":
			e.Path = value
		case "contains":
			e.Text = value
		default:
			return fmt.Errorf("unknown extractor type %q", e.Type)
		}
		return nil
	}

	switch s {
	case "default", "reachable":
		e.Type = s
	default:
		return fmt.Errorf("unknown extractor %q (expected 'default', 'reachable', 'json:path', or 'contains:text')", s)
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part, non-empty when a default was given
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		sub := envVarPattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}

		name := sub[1]
		hasDefault := len(sub) > 2 && sub[2] != ""

		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		if hasDefault {
			return sub[3]
		}
		firstErr = fmt.Errorf("environment variable %q is not set", name)
		return match
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in URL and header values.
// Defaults are applied for Port (8080), PollInterval (10s) and
// FetchTimeout (5s, or PollInterval if shorter).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(defaultPollInterval)
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = Duration(min(defaultFetchTimeout, cfg.PollInterval.Duration()))
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	interval := c.PollInterval.Duration()
	if interval < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, interval)
	}

	if c.FetchTimeout.Duration() <= 0 {
		return fmt.Errorf("fetch_timeout must be positive, got %s", c.FetchTimeout.Duration())
	}
	if c.FetchTimeout.Duration() > interval {
		return fmt.Errorf("fetch_timeout %s must not exceed poll_interval %s", c.FetchTimeout.Duration(), interval)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if _, err := monitor.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("mode: %w", err)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}

	if len(c.Endpoints) == 0 {
		return errors.New("at least one endpoint must be defined")
	}

	for i := range c.Endpoints {
		ep := &c.Endpoints[i]
		where := ep.label(i)

		if ep.URL == "" {
			return fmt.Errorf("%s: url is required", where)
		}
		expanded, err := expandEnvVars(ep.URL)
		if err != nil {
			return fmt.Errorf("%s: url: %w", where, err)
		}
		ep.URL = expanded

		parsedURL, err := url.Parse(ep.URL)
		if err != nil {
			return fmt.Errorf("%s: invalid url: %w", where, err)
		}
		if parsedURL.Scheme == "" {
			return fmt.Errorf("%s: url must have a scheme (http:// or https://)", where)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("%s: url scheme must be http or https, got %q", where, parsedURL.Scheme)
		}
		if parsedURL.Host == "" {
			return fmt.Errorf("%s: url must have a host", where)
		}

		for k, v := range ep.Headers {
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("%s: headers[%s]: %w", where, k, err)
			}
			ep.Headers[k] = expanded
		}

		if ep.Timeout != 0 {
			if ep.Timeout.Duration() < 0 {
				return fmt.Errorf("%s: timeout cannot be negative, got %s", where, ep.Timeout.Duration())
			}
			if ep.Timeout.Duration() > interval {
				return fmt.Errorf("%s: timeout %s must not exceed poll_interval %s", where, ep.Timeout.Duration(), interval)
			}
		}

		if err := validateExtractor(&ep.Extractor, where); err != nil {
			return err
		}
	}

	return nil
}

// validateExtractor validates an extractor configuration.
func validateExtractor(e *ExtractorConfig, context string) error {
	switch e.Type {
	case "", "default", "reachable":
	case "json":
		if e.Path == "" {
			return fmt.Errorf("%s: extractor type 'json' requires a path", context)
		}
	case "contains":
		if e.Text == "" {
			return fmt.Errorf("%s: extractor type 'contains' requires text", context)
		}
	default:
		return fmt.Errorf("%s: unknown extractor type %q", context, e.Type)
	}

	return nil
}
