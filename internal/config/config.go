// Package config defines process configuration and its loading hooks.
//
// Conventions:
//   - Defaults live in New; Load layers a YAML file and env vars on top.
//   - Durations are configured in milliseconds and exposed as time.Duration.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"time"

	"golang.org/x/text/language"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the page host listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// APIBaseURL is the origin serving /activities, e.g. "http://localhost:8000".
	APIBaseURL string `koanf:"api_base_url"`

	// RequestTimeoutMS bounds every outbound API call.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// MessageLifetimeMS is how long a status message stays visible.
	MessageLifetimeMS int `koanf:"message_lifetime_ms"`

	// UIQueueSize bounds the per-page event loop backlog.
	UIQueueSize int `koanf:"ui_queue_size"`

	// Locale selects number formatting in rendered cards, e.g. "en".
	Locale string `koanf:"locale"`

	// MetricsEnabled turns page component metrics on or off. Host HTTP
	// metrics are always recorded.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// MetricsLabels are constant labels added to every metric (file only).
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsBucketsMS overrides the latency histogram buckets (file only).
	MetricsBucketsMS []float64 `koanf:"metrics_buckets_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":8080",
		APIBaseURL:        "http://localhost:8000",
		RequestTimeoutMS:  7000,
		MessageLifetimeMS: 5000,
		UIQueueSize:       64,
		Locale:            "en",
		MetricsEnabled:    true,
		MetricsNamespace:  "signupdesk",
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// MessageLifetime returns MessageLifetimeMS as a duration.
func (c *Config) MessageLifetime() time.Duration {
	return time.Duration(c.MessageLifetimeMS) * time.Millisecond
}

// Language returns the parsed Locale, English when it does not parse.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}
