// Package config provides YAML configuration parsing for the product
// scraper CLI.
//
// This package enables running the engine as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	base_url: https://scraper.example.com
//	poll_interval: 2s
//	initial_delay: 500ms
//	max_poll_duration: 15m
//	retry_interval: 2s
//	retry_cycle_cap: 150
//	concurrency: 3
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	scraper "github.com/anxhirr/product-scraper"
)

// minPollInterval is the minimum allowed polling interval for production
// configs. This prevents accidental DoS of the job service with overly
// aggressive polling.
const minPollInterval = 100 * time.Millisecond

// Config is the root configuration structure for the CLI.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// BaseURL is the root of the scraping service's job API.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	BaseURL string `yaml:"base_url"`

	// PollInterval is the time between status polls of the main job.
	// Accepts duration strings like "2s", "1m", "500ms". Defaults to 2s.
	PollInterval Duration `yaml:"poll_interval"`

	// InitialDelay is the wait before the first poll after submission.
	// Defaults to 500ms.
	InitialDelay Duration `yaml:"initial_delay"`

	// MaxPollDuration bounds total polling time for one job; exceeding
	// it fails the job locally. Zero disables the bound. Defaults to 15m.
	MaxPollDuration Duration `yaml:"max_poll_duration"`

	// RetryInterval is the time between status polls of a retry job.
	// Defaults to 2s.
	RetryInterval Duration `yaml:"retry_interval"`

	// RetryCycleCap bounds the number of status polls per retry job.
	// Defaults to 150.
	RetryCycleCap int `yaml:"retry_cycle_cap"`

	// Concurrency is the worker-pool hint forwarded to the service with
	// each submission. Zero omits the hint.
	Concurrency int `yaml:"concurrency"`
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

// envVarPattern matches ${VAR} and ${VAR:-default} references.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// expandEnv substitutes ${VAR} and ${VAR:-default} references in s with
// values from the environment. An unset variable without a default
// expands to the empty string.
func expandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if v, ok := os.LookupEnv(groups[1]); ok {
			return v
		}
		return groups[2]
	})
}

// Load reads and parses the YAML configuration file at path.
//
// Defaults are applied for unset fields and the result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.BaseURL = expandEnv(cfg.BaseURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills unset fields with their default values.
func (c *Config) applyDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = Duration(2 * time.Second)
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = Duration(500 * time.Millisecond)
	}
	if c.MaxPollDuration == 0 {
		c.MaxPollDuration = Duration(15 * time.Minute)
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = Duration(2 * time.Second)
	}
	if c.RetryCycleCap == 0 {
		c.RetryCycleCap = 150
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url %q is not a valid absolute URL", c.BaseURL)
	}
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if c.InitialDelay.Duration() < 0 {
		return fmt.Errorf("initial_delay cannot be negative, got %s", c.InitialDelay.Duration())
	}
	if c.MaxPollDuration.Duration() < 0 {
		return fmt.Errorf("max_poll_duration cannot be negative, got %s", c.MaxPollDuration.Duration())
	}
	if c.RetryInterval.Duration() < minPollInterval {
		return fmt.Errorf("retry_interval must be at least %s, got %s", minPollInterval, c.RetryInterval.Duration())
	}
	if c.RetryCycleCap <= 0 {
		return fmt.Errorf("retry_cycle_cap must be positive, got %d", c.RetryCycleCap)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency cannot be negative, got %d", c.Concurrency)
	}
	return nil
}

// Options converts the configuration to engine options.
func (c *Config) Options() []scraper.Option {
	opts := []scraper.Option{
		scraper.WithBaseURL(c.BaseURL),
		scraper.WithPollInterval(c.PollInterval.Duration()),
		scraper.WithInitialDelay(c.InitialDelay.Duration()),
		scraper.WithRetryInterval(c.RetryInterval.Duration()),
		scraper.WithRetryCycleCap(c.RetryCycleCap),
	}
	if c.MaxPollDuration.Duration() > 0 {
		opts = append(opts, scraper.WithMaxPollDuration(c.MaxPollDuration.Duration()))
	}
	if c.Concurrency > 0 {
		opts = append(opts, scraper.WithConcurrency(c.Concurrency))
	}
	return opts
}
