// Package railpulse provides an embeddable deployment-status monitor for
// Railway projects.
//
// railpulse is designed as an SDK-first library: a [Monitor] periodically
// queries Railway's GraphQL API for every project the token can see, finds
// the latest deployment of each service in the project's production
// environment, and publishes the result as a [Snapshot] to a live web
// dashboard, a JSON API, Server-Sent Events, websockets and Prometheus
// metrics.
//
// # Quick Start
//
//	m, _ := railpulse.New(railpulse.WithToken(os.Getenv("RAILWAY_TOKEN")))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	m.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// railpulse uses the functional options pattern for configuration:
//
//	m, err := railpulse.New(
//	    railpulse.WithTokenStore(store),
//	    railpulse.WithPort(9090),
//	    railpulse.WithTitle("Acme on Railway"),
//	    railpulse.WithLogger(logger),
//	)
//
// # Rate limits
//
// Every API response updates a rate-limit budget from the X-RateLimit-*
// headers. The refresh interval adapts to the remaining budget (30s normally,
// 60s below a quarter, 120s below a tenth), requests pause until the window
// resets once the budget is exhausted, and HTTP 429 responses are retried up
// to three attempts in total.
//
// # Architecture
//
// railpulse consists of several internal packages (under internal/):
//
//   - internal/ratelimit: Rate-limit budget and adaptive interval
//   - internal/graphql: GraphQL transport with retry and typed errors
//   - internal/railway: Project listing and batched deployment lookups
//   - internal/status: Counts, badges and active-service derivation
//   - internal/poller: Refresh and ticker loops with an in-flight guard
//   - internal/store: In-memory snapshot with pub/sub for real-time updates
//   - internal/tokenstore: File, Redis and static token stores
//   - internal/metrics: Prometheus collectors
//   - internal/server: HTTP server with REST API, SSE and websockets
//   - dashboard: Embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice.
package railpulse
