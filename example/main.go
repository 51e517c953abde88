package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/railpulse"
)

func main() {
	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start mock Railway API (see mock_server.go)
	go StartMockRailway(ctx, ":9999")
	time.Sleep(100 * time.Millisecond)

	m, err := railpulse.New(
		railpulse.WithToken(demoToken),
		railpulse.WithAPIURL("http://localhost:9999/graphql/v2"),
		railpulse.WithTitle("Demo Fleet"),
		railpulse.WithPort(8080),
		railpulse.WithSnapshotCallback(func(s railpulse.Snapshot) {
			if s.TickerService != nil {
				slog.Info("deploying",
					"project", s.TickerService.ProjectName,
					"service", s.TickerService.ServiceName,
					"status", s.TickerService.Status,
				)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create monitor", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   railpulse Demo                                      ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Mock Railway API on :9999                           ║")
	fmt.Println("  ║   • 3 projects, 7 services                            ║")
	fmt.Println("  ║   • services redeploy every 20-60s                    ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	if err := m.Start(ctx); err != nil {
		slog.Error("railpulse error", "error", err)
		os.Exit(1)
	}
}
