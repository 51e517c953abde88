package railpulse

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// monitorConfig holds mutable state during Monitor construction.
type monitorConfig struct {
	title             string
	port              int
	apiURL            string
	token             string
	tokenStore        TokenStore
	requestTimeout    time.Duration
	httpClient        *http.Client
	registry          *prometheus.Registry
	logger            *slog.Logger
	snapshotCallbacks []func(Snapshot)
}

// Option is a function that configures a [Monitor] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*monitorConfig) error

// WithToken sets a fixed Railway API token. It takes precedence over
// [WithTokenStore] for loading; saving a new token replaces it in memory only.
//
// Returns an error if the token is blank.
func WithToken(token string) Option {
	return func(cfg *monitorConfig) error {
		token = strings.TrimSpace(token)
		if token == "" {
			return errors.New("token cannot be empty")
		}
		cfg.token = token
		return nil
	}
}

// WithTokenStore sets where the API token is loaded from on every fetch
// cycle. Defaults to a file at ~/.config/railpulse/token.
//
// Returns an error if the store is nil.
func WithTokenStore(ts TokenStore) Option {
	return func(cfg *monitorConfig) error {
		if ts == nil {
			return errors.New("token store cannot be nil")
		}
		cfg.tokenStore = ts
		return nil
	}
}

// WithAPIURL overrides the GraphQL endpoint.
//
// Returns an error if the URL is not absolute http(s).
func WithAPIURL(raw string) Option {
	return func(cfg *monitorConfig) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid API URL: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("API URL must be absolute http or https, got %q", raw)
		}
		cfg.apiURL = raw
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
//
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *monitorConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
//
// If not specified, defaults to "Railway".
func WithTitle(title string) Option {
	return func(cfg *monitorConfig) error {
		cfg.title = title
		return nil
	}
}

// WithRequestTimeout bounds each GraphQL HTTP attempt. Defaults to 15s.
// Ignored when [WithHTTPClient] is used.
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithHTTPClient replaces the pooled *http.Client used for API calls.
//
// Returns an error if the client is nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(cfg *monitorConfig) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		cfg.httpClient = hc
		return nil
	}
}

// WithMetricsRegistry registers railpulse collectors on reg and serves reg at
// /metrics. Defaults to a private registry.
//
// Returns an error if the registry is nil.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(cfg *monitorConfig) error {
		if reg == nil {
			return errors.New("metrics registry cannot be nil")
		}
		cfg.registry = reg
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Monitor instance.
//
// This allows SDK consumers to control where logs are written and in what
// format. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *monitorConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithSnapshotCallback registers a function called with every published
// [Snapshot] while [Monitor.Start] runs.
//
// Multiple callbacks may be registered; they execute in registration order
// from a single goroutine. Callbacks must be non-blocking: the subscription
// is buffered and a slow callback misses intermediate snapshots. Panics
// within callbacks are recovered and logged.
//
// Example:
//
//	m, err := railpulse.New(
//	    railpulse.WithSnapshotCallback(func(s railpulse.Snapshot) {
//	        if s.Summary.Counts.Errored > 0 {
//	            log.Printf("ALERT: %d services errored", s.Summary.Counts.Errored)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithSnapshotCallback(cb func(Snapshot)) Option {
	return func(cfg *monitorConfig) error {
		if cb == nil {
			return nil
		}
		cfg.snapshotCallbacks = append(cfg.snapshotCallbacks, cb)
		return nil
	}
}
