package railpulse

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/railpulse/dashboard"
	"github.com/jpalmerr/railpulse/internal/graphql"
	"github.com/jpalmerr/railpulse/internal/metrics"
	"github.com/jpalmerr/railpulse/internal/poller"
	"github.com/jpalmerr/railpulse/internal/railway"
	"github.com/jpalmerr/railpulse/internal/ratelimit"
	"github.com/jpalmerr/railpulse/internal/server"
	"github.com/jpalmerr/railpulse/internal/store"
	"github.com/jpalmerr/railpulse/internal/tokenstore"
)

const (
	defaultPort      = 8080
	defaultTokenPath = "~/.config/railpulse/token"
)

// ErrFetchInProgress is returned by [Monitor.Refresh] when a fetch cycle is
// already running.
var ErrFetchInProgress = poller.ErrFetchInProgress

// Monitor polls Railway for the latest deployment of every service and
// serves the result as a live dashboard.
//
// A Monitor is created using [New] with functional options and started with
// [Monitor.Start]. The typical lifecycle is:
//
//	m, err := railpulse.New(railpulse.WithToken(os.Getenv("RAILWAY_TOKEN")))
//	if err != nil {
//	    slog.Error("failed to create monitor", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	m.Start(ctx) // blocks until context cancelled
//
// [Monitor.Refresh] and [Monitor.Snapshot] also work without Start, which is
// how one-shot callers fetch a single snapshot.
type Monitor struct {
	title     string
	port      int
	logger    *slog.Logger
	callbacks []func(Snapshot)

	tokens     TokenStore
	client     *graphql.Client
	store      *store.MemoryStore
	controller *poller.Controller
	recorder   *metrics.Recorder
}

// New creates a new [Monitor] with the given options.
//
// All options have sensible defaults:
//   - Port: 8080
//   - API URL: Railway's public GraphQL v2 endpoint
//   - Token store: file at ~/.config/railpulse/token
//   - Request timeout: 15 seconds
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Monitor, error) {
	cfg := &monitorConfig{
		port:           defaultPort,
		apiURL:         graphql.DefaultEndpoint,
		requestTimeout: graphql.DefaultTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	tokens, err := resolveTokenStore(cfg)
	if err != nil {
		return nil, err
	}

	recorder := metrics.New(cfg.registry)
	budget := ratelimit.NewBudget()

	clientOpts := []graphql.Option{
		graphql.WithLogger(logger),
		graphql.WithRecorder(recorder),
		graphql.WithTimeout(cfg.requestTimeout),
	}
	if cfg.httpClient != nil {
		clientOpts = append(clientOpts, graphql.WithHTTPClient(cfg.httpClient))
	}
	client := graphql.NewClient(cfg.apiURL, budget, clientOpts...)

	st := store.NewMemoryStore()
	fetcher := railway.NewFetcher(client, logger)
	controller := poller.NewController(fetcher, budget, tokens, st, logger, poller.WithRecorder(recorder))

	return &Monitor{
		title:      cfg.title,
		port:       cfg.port,
		logger:     logger,
		callbacks:  cfg.snapshotCallbacks,
		tokens:     tokens,
		client:     client,
		store:      st,
		controller: controller,
		recorder:   recorder,
	}, nil
}

func resolveTokenStore(cfg *monitorConfig) (TokenStore, error) {
	switch {
	case cfg.token != "":
		return tokenstore.NewStaticStore(cfg.token), nil
	case cfg.tokenStore != nil:
		return cfg.tokenStore, nil
	default:
		fs, err := tokenstore.NewFileStore(defaultTokenPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create default token store: %w", err)
		}
		return fs, nil
	}
}

// Start begins polling Railway and serving the dashboard.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - A fetch cycle runs immediately, then at an interval adapted to the
//     remaining rate-limit budget (30s, 60s or 120s)
//   - The rotation over actively deploying services advances every 3 seconds
//   - The HTTP server starts on the configured port
//   - The dashboard is available at http://localhost:<port>
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails to start.
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info("railpulse starting", "api_url", m.client.Endpoint())
	m.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", m.port))

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	// subscribe before the first cycle so callbacks see it
	var wg sync.WaitGroup
	var sub <-chan Snapshot
	if len(m.callbacks) > 0 {
		sub = m.store.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for snap := range sub {
				for _, cb := range m.callbacks {
					invokeCallbackSafe(cb, snap, m.logger)
				}
			}
		}()
	}

	m.controller.Start(ctx)

	cleanup := func() {
		m.controller.Stop()
		if sub != nil {
			m.store.Unsubscribe(sub) // closes the channel
		}
		wg.Wait()
		m.client.Close()
	}

	httpServer := server.NewServer(m.store, m.port, dashboard.Assets, m.title, m.logger,
		server.WithRefresher(m.controller),
		server.WithMetricsHandler(m.recorder.Handler()),
	)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	m.logger.Info("railpulse stopped")
	return nil
}

// Refresh runs one fetch cycle immediately and waits for it. It returns
// [ErrFetchInProgress] if a cycle is already running, otherwise the cycle's
// error, if any. An unconfigured monitor returns nil without fetching.
func (m *Monitor) Refresh(ctx context.Context) error {
	return m.controller.Refresh(ctx)
}

// Snapshot returns the current display state. The project tree is a copy the
// caller may modify freely.
func (m *Monitor) Snapshot() Snapshot {
	snap := m.store.Get()
	snap.Projects = railway.CloneProjects(snap.Projects)
	return snap
}

// SetToken saves token to the token store. The next fetch cycle uses it.
func (m *Monitor) SetToken(token string) error {
	return m.tokens.Save(token)
}

// Port returns the configured HTTP port for the dashboard server.
func (m *Monitor) Port() int {
	return m.port
}

// Interval returns the current refresh interval.
func (m *Monitor) Interval() time.Duration {
	return m.controller.Interval()
}

// invokeCallbackSafe calls a snapshot callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Snapshot), snap Snapshot, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("snapshot callback panicked", "panic", r)
		}
	}()
	cb(snap)
}
