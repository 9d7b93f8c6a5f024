package scraper

import (
	"errors"
	"log/slog"
	"time"
)

// engineConfig holds mutable state during Engine construction.
type engineConfig struct {
	baseURL         string
	token           string
	httpTimeout     time.Duration
	pollInterval    time.Duration
	initialDelay    time.Duration
	maxPollDuration time.Duration
	retryInterval   time.Duration
	retryCycleCap   int
	concurrency     int
	logger          *slog.Logger
	eventCallbacks  []func(Event)
}

// Option is a function that configures an [Engine] instance during
// construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*engineConfig) error

// WithBaseURL sets the root URL of the scraping service's job API.
//
// Required; [New] fails without it.
//
// Example:
//
//	eng, err := scraper.New(
//	    scraper.WithBaseURL("https://scraper.example.com"),
//	)
func WithBaseURL(url string) Option {
	return func(cfg *engineConfig) error {
		if url == "" {
			return errors.New("base URL cannot be empty")
		}
		cfg.baseURL = url
		return nil
	}
}

// WithToken sets a bearer token sent with every request to the service.
func WithToken(token string) Option {
	return func(cfg *engineConfig) error {
		cfg.token = token
		return nil
	}
}

// WithHTTPTimeout bounds each individual request to the service.
// Defaults to 30 seconds.
//
// Returns an error if the duration is zero or negative.
func WithHTTPTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d <= 0 {
			return errors.New("http timeout must be positive")
		}
		cfg.httpTimeout = d
		return nil
	}
}

// WithPollInterval sets the steady-state time between status polls of the
// main job. Defaults to 2 seconds.
//
// Returns an error if the duration is zero or negative.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		cfg.pollInterval = d
		return nil
	}
}

// WithInitialDelay sets the wait before the first status poll after a
// submission, kept distinct from the steady interval so the service is
// not hammered immediately post-submission. Defaults to 500 milliseconds.
//
// Returns an error if the duration is negative.
func WithInitialDelay(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d < 0 {
			return errors.New("initial delay cannot be negative")
		}
		cfg.initialDelay = d
		return nil
	}
}

// WithMaxPollDuration bounds the total wall-clock time the main job is
// polled. Exceeding it fails the job locally as a timeout. Zero disables
// the bound. Defaults to 15 minutes.
//
// Returns an error if the duration is negative.
func WithMaxPollDuration(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d < 0 {
			return errors.New("max poll duration cannot be negative")
		}
		cfg.maxPollDuration = d
		return nil
	}
}

// WithRetryInterval sets the time between status polls of a retry job.
// Defaults to 2 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRetryInterval(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d <= 0 {
			return errors.New("retry interval must be positive")
		}
		cfg.retryInterval = d
		return nil
	}
}

// WithRetryCycleCap bounds the number of status polls per retry job.
//
// The cap is an iteration count rather than a wall-clock timeout so the
// worst-case resource use of a retry stays bounded regardless of interval
// settings. Exhausting it marks the affected slots with a local error
// state. Defaults to 150 cycles.
//
// Returns an error if the value is zero or negative.
func WithRetryCycleCap(n int) Option {
	return func(cfg *engineConfig) error {
		if n <= 0 {
			return errors.New("retry cycle cap must be positive")
		}
		cfg.retryCycleCap = n
		return nil
	}
}

// WithConcurrency sets the concurrency hint forwarded to the service with
// each submission. Zero omits the hint.
//
// Returns an error if the value is negative.
func WithConcurrency(n int) Option {
	return func(cfg *engineConfig) error {
		if n < 0 {
			return errors.New("concurrency cannot be negative")
		}
		cfg.concurrency = n
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the engine.
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *engineConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithEventCallback registers a function invoked on every engine [Event].
//
// Multiple callbacks may be registered; they execute in registration
// order. Callbacks are invoked synchronously from the engine's merge
// paths and must be non-blocking; long-running work should be dispatched
// to a separate goroutine. Panics within callbacks are recovered and
// logged with a correlation id; they do not crash the engine.
//
// Nil callbacks are silently ignored.
func WithEventCallback(cb func(Event)) Option {
	return func(cfg *engineConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.eventCallbacks = append(cfg.eventCallbacks, cb)
		return nil
	}
}
