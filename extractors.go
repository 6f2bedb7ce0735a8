package monitor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ReachableExtractor is a [StatusExtractor] that treats every successful
// fetch as [StatusUp], ignoring the body.
var ReachableExtractor StatusExtractor = func([]byte) Status {
	return StatusUp
}

// JSONFieldExtractor returns a [StatusExtractor] that reads a field from the
// JSON body using a gjson path.
//
// Dot notation navigates nested objects: "data.health.status" reads
// {"data": {"health": {"status": "ok"}}}. Array indexes and the other gjson
// path features work as well, for example "checks.0.state".
//
// The extracted value is mapped to a [Status] using common health check conventions:
//   - [StatusUp]: "ok", "healthy", "up", "active", "running", "pass", "passed", "true", "green", "none", "operational"
//   - [StatusDegraded]: "degraded", "warning", "partial", "yellow", "amber"
//   - [StatusDown]: any other value
//   - [StatusUnknown]: if the field doesn't exist or is not a scalar
//
// Boolean and numeric values are converted: true/1 → "true", false/0 → "false".
//
// Example:
//
//	// For response: {"data": {"status": "healthy"}}
//	extractor := monitor.JSONFieldExtractor("data.status")
func JSONFieldExtractor(path string) StatusExtractor {
	return func(body []byte) Status {
		value := extractJSONPath(body, path)
		if value == "" {
			return StatusUnknown
		}
		return mapStringToStatus(strings.ToLower(value))
	}
}

// extractJSONPath returns the scalar at path as a string, or "" if absent.
func extractJSONPath(body []byte, path string) string {
	if !gjson.ValidBytes(body) {
		return ""
	}

	res := gjson.GetBytes(body, path)
	switch res.Type {
	case gjson.String:
		return res.Str
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	case gjson.Number:
		switch res.Num {
		case 0:
			return "false"
		case 1:
			return "true"
		default:
			return strconv.FormatFloat(res.Num, 'f', -1, 64)
		}
	default:
		return ""
	}
}

// mapStringToStatus maps common status strings to Status values.
func mapStringToStatus(s string) Status {
	switch s {
	case "ok", "healthy", "up", "active", "running", "pass", "passed", "true", "green", "none", "operational":
		return StatusUp
	case "degraded", "warning", "partial", "yellow", "amber":
		return StatusDegraded
	default:
		return StatusDown
	}
}

// RegexExtractor returns a [StatusExtractor] that matches the response body
// against a regular expression pattern.
//
// The pattern must contain at least one capture group. The first capture group
// is compared (case-insensitively) against the upMatch string:
//   - If equal: [StatusUp]
//   - If not equal: [StatusDown]
//   - If no match found: [StatusUnknown]
//
// Returns an error if the pattern is invalid.
//
// Example:
//
//	extractor, err := monitor.RegexExtractor(`"state":\s*"(\w+)"`, "ok")
func RegexExtractor(pattern string, upMatch string) (StatusExtractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	return func(body []byte) Status {
		matches := re.FindSubmatch(body)
		if len(matches) < 2 {
			return StatusUnknown
		}
		if strings.EqualFold(string(matches[1]), upMatch) {
			return StatusUp
		}
		return StatusDown
	}, nil
}

// MustRegexExtractor is like [RegexExtractor] but panics if the pattern
// is invalid.
func MustRegexExtractor(pattern string, upMatch string) StatusExtractor {
	extractor, err := RegexExtractor(pattern, upMatch)
	if err != nil {
		panic("monitor: invalid regex pattern: " + err.Error())
	}
	return extractor
}

// FirstMatch returns a [StatusExtractor] that tries multiple extractors in
// order, returning the first result that is not [StatusUnknown].
//
// If all extractors return [StatusUnknown], FirstMatch returns [StatusUnknown].
//
// Example:
//
//	// Try a nested field first, fall back to reachability
//	extractor := monitor.FirstMatch(
//	    monitor.JSONFieldExtractor("health.status"),
//	    monitor.ReachableExtractor,
//	)
func FirstMatch(extractors ...StatusExtractor) StatusExtractor {
	return func(body []byte) Status {
		for _, extractor := range extractors {
			if status := extractor(body); status != StatusUnknown {
				return status
			}
		}
		return StatusUnknown
	}
}

// ContainsExtractor returns a [StatusExtractor] that checks if the response
// body contains the specified text (case-insensitive).
//
// Status mapping:
//   - [StatusUp]: body contains the text
//   - [StatusDown]: body does not contain the text
func ContainsExtractor(text string) StatusExtractor {
	lower := strings.ToLower(text)
	return func(body []byte) Status {
		if strings.Contains(strings.ToLower(string(body)), lower) {
			return StatusUp
		}
		return StatusDown
	}
}

// DefaultExtractor is the [StatusExtractor] used when no extractor is
// specified on an [Endpoint].
//
// DefaultExtractor uses [FirstMatch] to try:
//  1. [JSONFieldExtractor] with path "status"
//  2. [ReachableExtractor], so any successful fetch without a status field is up
var DefaultExtractor = FirstMatch(
	JSONFieldExtractor("status"),
	ReachableExtractor,
)
