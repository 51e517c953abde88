// Standalone mock Railway API for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/railpulse serve -c example/config.yaml
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jpalmerr/railpulse/internal/railwaytest"
)

func main() {
	fmt.Println("Mock Railway API starting on :9999")
	fmt.Println("Services cycle through: QUEUED → BUILDING → DEPLOYING → SUCCESS (or CRASHED)")
	fmt.Println("Accepted token: demo-token")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := railwaytest.New("demo-token", railwaytest.DemoProjects()...)
	go api.Animate(ctx, slog.Default())

	srv := &http.Server{Addr: ":9999", Handler: api}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
