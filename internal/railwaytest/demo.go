package railwaytest

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// demoLifecycle is the order Animate moves a service through. A crash
// replaces the SUCCESS step at random.
var demoLifecycle = []string{"QUEUED", "BUILDING", "DEPLOYING", "SUCCESS"}

// DemoProjects returns a small fleet for the example binaries.
func DemoProjects() []Project {
	return []Project{
		{ID: "p-billing", Name: "billing", Services: []Service{
			{ID: "s-billing-api", Name: "api", Status: "SUCCESS"},
			{ID: "s-billing-worker", Name: "worker", Status: "SUCCESS"},
			{ID: "s-billing-db", Name: "postgres", Status: "SUCCESS"},
		}},
		{ID: "p-storefront", Name: "storefront", Services: []Service{
			{ID: "s-store-web", Name: "web", Status: "BUILDING"},
			{ID: "s-store-cdn", Name: "image-proxy", Status: "SUCCESS"},
		}},
		{ID: "p-internal", Name: "internal-tools", Services: []Service{
			{ID: "s-int-admin", Name: "admin", Status: "SLEEPING"},
			{ID: "s-int-cron", Name: "cron", Status: "CRASHED"},
		}},
	}
}

// Animate moves each service through a deploy lifecycle, one step every
// 20-60 seconds, until ctx is cancelled.
func (a *API) Animate(ctx context.Context, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	a.mu.Lock()
	var ids []string
	for _, p := range a.projects {
		for _, s := range p.Services {
			ids = append(ids, s.ID)
		}
	}
	a.mu.Unlock()

	next := make(map[string]time.Time, len(ids))
	for _, id := range ids {
		next[id] = time.Now().Add(randomStep())
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, id := range ids {
				if now.Before(next[id]) {
					continue
				}
				from := a.Status(id)
				to := nextDemoStatus(from)
				a.SetStatus(id, to)
				next[id] = now.Add(randomStep())
				logger.Info("status change", "service", id, "from", from, "to", to)
			}
		}
	}
}

func nextDemoStatus(current string) string {
	for i, s := range demoLifecycle {
		if s != current {
			continue
		}
		if i == len(demoLifecycle)-1 {
			return demoLifecycle[0]
		}
		if demoLifecycle[i+1] == "SUCCESS" && rand.Intn(5) == 0 {
			return "CRASHED"
		}
		return demoLifecycle[i+1]
	}
	// anything off the lifecycle (crashed, sleeping, none) starts a new deploy
	return demoLifecycle[0]
}

func randomStep() time.Duration {
	return time.Duration(20+rand.Intn(41)) * time.Second
}
