package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jpalmerr/railpulse/internal/railwaytest"
)

// demoToken is the bearer the mock API accepts.
const demoToken = "demo-token"

// StartMockRailway runs a fake Railway GraphQL API on addr whose services
// move through deploy lifecycles every 20-60 seconds.
// Call this in a goroutine before creating the monitor.
func StartMockRailway(ctx context.Context, addr string) {
	api := railwaytest.New(demoToken, railwaytest.DemoProjects()...)
	go api.Animate(ctx, slog.Default())

	srv := &http.Server{Addr: addr, Handler: api}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("mock server error", "error", err)
	}
}
