package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/railpulse/internal/railway"
	"github.com/jpalmerr/railpulse/internal/ratelimit"
	"github.com/jpalmerr/railpulse/internal/status"
	"github.com/jpalmerr/railpulse/internal/store"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type staticToken string

func (s staticToken) Load() (string, error) { return string(s), nil }

type failingToken struct{ err error }

func (f failingToken) Load() (string, error) { return "", f.err }

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, token string) ([]railway.Project, error)
}

func (f *fakeFetcher) FetchProjects(ctx context.Context, token string) ([]railway.Project, error) {
	f.mu.Lock()
	f.calls++
	fn := f.fn
	f.mu.Unlock()
	return fn(ctx, token)
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordedCycle struct {
	outcome string
}

type fakeRecorder struct {
	mu        sync.Mutex
	cycles    []recordedCycle
	snapshots int
}

func (r *fakeRecorder) RecordCycle(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, recordedCycle{outcome: outcome})
}

func (r *fakeRecorder) RecordSnapshot(ratelimit.Snapshot, status.Counts, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots++
}

func (r *fakeRecorder) outcomes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.cycles))
	for _, c := range r.cycles {
		out = append(out, c.outcome)
	}
	return out
}

func project(name string, statuses ...railway.DeploymentStatus) railway.Project {
	p := railway.Project{ID: "p-" + name, Name: name}
	for i, st := range statuses {
		p.Services = append(p.Services, railway.Service{
			ID:   name + "-svc-" + string(rune('a'+i)),
			Name: name + "-" + string(rune('a'+i)),
			LatestDeployment: &railway.Deployment{
				ID:        "dep",
				Status:    st,
				CreatedAt: time.Now(),
			},
		})
	}
	return p
}

func returning(projects ...railway.Project) func(context.Context, string) ([]railway.Project, error) {
	return func(context.Context, string) ([]railway.Project, error) {
		return projects, nil
	}
}

// waitFor polls cond until it holds or a second elapses.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func newTestController(f Fetcher, tokens TokenSource, opts ...Option) (*Controller, *store.MemoryStore, *ratelimit.Budget) {
	st := store.NewMemoryStore()
	budget := ratelimit.NewBudget()
	return NewController(f, budget, tokens, st, testLogger(), opts...), st, budget
}

// TestController_StopBeforeStart verifies that Stop on a controller that was
// never started is a safe no-op.
func TestController_StopBeforeStart(t *testing.T) {
	c, _, _ := newTestController(&fakeFetcher{fn: returning()}, staticToken("tok"))

	// this must not panic
	c.Stop()

	if c.Running() {
		t.Error("expected controller to be idle")
	}
}

// TestController_StopTwice verifies that Stop is idempotent.
func TestController_StopTwice(t *testing.T) {
	c, _, _ := newTestController(&fakeFetcher{fn: returning()}, staticToken("tok"))
	c.Start(context.Background())

	c.Stop()
	c.Stop()

	if c.Running() {
		t.Error("expected controller to be idle after Stop")
	}
}

// TestController_StartFetchesImmediately verifies the first cycle runs on
// Start rather than after the first interval.
func TestController_StartFetchesImmediately(t *testing.T) {
	f := &fakeFetcher{fn: returning(
		project("api", railway.StatusSuccess, railway.StatusCrashed),
		project("web", railway.StatusBuilding),
	)}
	c, st, _ := newTestController(f, staticToken("tok"))

	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, "first fetch", func() bool { return !st.Get().UpdatedAt.IsZero() })

	snap := st.Get()
	if !snap.Configured {
		t.Error("expected Configured to be true")
	}
	if snap.Loading {
		t.Error("expected Loading to be false after cycle")
	}
	if len(snap.Projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(snap.Projects))
	}
	if snap.Summary.Counts.Total != 3 {
		t.Errorf("expected 3 services, got %d", snap.Summary.Counts.Total)
	}
	if snap.Summary.Badges[0].Badge != status.BadgeCrashed {
		t.Errorf("expected api badge crashed, got %s", snap.Summary.Badges[0].Badge)
	}
	if snap.TickerService == nil || snap.TickerService.ServiceName != "web-a" {
		t.Errorf("expected ticker to show web-a, got %+v", snap.TickerService)
	}
	if snap.IntervalSeconds != ratelimit.DefaultInterval.Seconds() {
		t.Errorf("expected interval %v, got %v", ratelimit.DefaultInterval.Seconds(), snap.IntervalSeconds)
	}
}

// TestController_Unconfigured verifies that an empty token short-circuits
// the cycle without calling the fetcher.
func TestController_Unconfigured(t *testing.T) {
	f := &fakeFetcher{fn: returning(project("api", railway.StatusSuccess))}
	rec := &fakeRecorder{}
	c, st, _ := newTestController(f, staticToken(""), WithRecorder(rec))

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.Calls() != 0 {
		t.Errorf("expected no fetch without a token, got %d calls", f.Calls())
	}
	if st.Get().Configured {
		t.Error("expected Configured to be false")
	}
	if got := rec.outcomes(); len(got) != 1 || got[0] != OutcomeUnconfigured {
		t.Errorf("expected [unconfigured], got %v", got)
	}
}

// TestController_TokenLoadError verifies token store failures surface as the
// snapshot's last error.
func TestController_TokenLoadError(t *testing.T) {
	f := &fakeFetcher{fn: returning()}
	c, st, _ := newTestController(f, failingToken{err: errors.New("disk on fire")})

	err := c.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	snap := st.Get()
	if snap.LastError == nil || !strings.Contains(*snap.LastError, "disk on fire") {
		t.Errorf("expected last error to mention cause, got %v", snap.LastError)
	}
	if f.Calls() != 0 {
		t.Errorf("expected no fetch, got %d calls", f.Calls())
	}
}

// TestController_FailureKeepsProjects verifies a failed cycle records the
// error but leaves the last good project tree in place, and a later success
// clears the error.
func TestController_FailureKeepsProjects(t *testing.T) {
	var mu sync.Mutex
	fail := false
	f := &fakeFetcher{fn: func(context.Context, string) ([]railway.Project, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return nil, errors.New("Railway API returned HTTP 500")
		}
		return []railway.Project{project("api", railway.StatusSuccess)}, nil
	}}
	c, st, _ := newTestController(f, staticToken("tok"))
	ctx := context.Background()

	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	updated := st.Get().UpdatedAt

	mu.Lock()
	fail = true
	mu.Unlock()

	if err := c.Refresh(ctx); err == nil {
		t.Fatal("expected second refresh to fail")
	}

	snap := st.Get()
	if len(snap.Projects) != 1 {
		t.Errorf("expected previous projects to be kept, got %d", len(snap.Projects))
	}
	if snap.LastError == nil || *snap.LastError != "Railway API returned HTTP 500" {
		t.Errorf("unexpected last error: %v", snap.LastError)
	}
	if !snap.UpdatedAt.Equal(updated) {
		t.Error("expected UpdatedAt to be unchanged by a failed cycle")
	}
	if snap.CheckedAt.Before(updated) {
		t.Error("expected CheckedAt to advance")
	}

	mu.Lock()
	fail = false
	mu.Unlock()

	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("third refresh: %v", err)
	}
	if st.Get().LastError != nil {
		t.Error("expected success to clear last error")
	}
}

// TestController_RefreshWhileFetching verifies at most one cycle is in
// flight.
func TestController_RefreshWhileFetching(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	f := &fakeFetcher{fn: func(context.Context, string) ([]railway.Project, error) {
		close(entered)
		<-release
		return nil, nil
	}}
	c, st, _ := newTestController(f, staticToken("tok"))

	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()

	<-entered
	if !st.Get().Loading {
		t.Error("expected Loading while fetch is in flight")
	}

	if err := c.Refresh(context.Background()); !errors.Is(err, ErrFetchInProgress) {
		t.Errorf("expected ErrFetchInProgress, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Calls() != 1 {
		t.Errorf("expected 1 fetch, got %d", f.Calls())
	}
}

// TestController_StopDiscardsInFlight verifies a cycle that completes after
// Stop does not touch the published projects.
func TestController_StopDiscardsInFlight(t *testing.T) {
	entered := make(chan struct{})
	f := &fakeFetcher{fn: func(ctx context.Context, _ string) ([]railway.Project, error) {
		close(entered)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	rec := &fakeRecorder{}
	c, st, _ := newTestController(f, staticToken("tok"), WithRecorder(rec))

	c.Start(context.Background())
	<-entered
	c.Stop()

	snap := st.Get()
	if snap.LastError != nil {
		t.Errorf("expected stale cancellation to be discarded, got %q", *snap.LastError)
	}
	if snap.Loading {
		t.Error("expected Loading to be cleared")
	}
	if got := rec.outcomes(); len(got) != 1 || got[0] != OutcomeDiscarded {
		t.Errorf("expected [discarded], got %v", got)
	}
}

// TestController_IntervalFollowsBudget verifies the refresh interval adapts
// to the budget observed during the cycle and Start resets it.
func TestController_IntervalFollowsBudget(t *testing.T) {
	var budget *ratelimit.Budget
	f := &fakeFetcher{fn: func(context.Context, string) ([]railway.Project, error) {
		h := http.Header{}
		h.Set(ratelimit.HeaderLimit, "100")
		h.Set(ratelimit.HeaderRemaining, "5")
		budget.Observe(h)
		return nil, nil
	}}
	rec := &fakeRecorder{}
	c, st, b := newTestController(f, staticToken("tok"), WithRecorder(rec))
	budget = b

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := c.Interval(); got != ratelimit.CriticalInterval {
		t.Errorf("expected interval %v, got %v", ratelimit.CriticalInterval, got)
	}
	snap := st.Get()
	if snap.IntervalSeconds != ratelimit.CriticalInterval.Seconds() {
		t.Errorf("expected snapshot interval %v, got %v", ratelimit.CriticalInterval.Seconds(), snap.IntervalSeconds)
	}
	if snap.RateLimitWarning == nil || snap.RateLimitWarning.Kind != ratelimit.WarningLow {
		t.Errorf("expected low warning, got %+v", snap.RateLimitWarning)
	}
	if snap.RateLimit.Remaining == nil || *snap.RateLimit.Remaining != 5 {
		t.Errorf("expected remaining 5, got %v", snap.RateLimit.Remaining)
	}

	rec.mu.Lock()
	snapshots := rec.snapshots
	rec.mu.Unlock()
	if snapshots != 1 {
		t.Errorf("expected 1 recorded snapshot, got %d", snapshots)
	}

	c.Start(context.Background())
	defer c.Stop()
	waitFor(t, "cycle after restart", func() bool { return f.Calls() >= 2 })
}

// TestController_FetchPanicRecovered verifies a panicking fetcher is
// reported as an error carrying a correlation ID.
func TestController_FetchPanicRecovered(t *testing.T) {
	f := &fakeFetcher{fn: func(context.Context, string) ([]railway.Project, error) {
		panic("boom")
	}}
	c, st, _ := newTestController(f, staticToken("tok"))

	err := c.Refresh(context.Background())
	if err == nil || !strings.Contains(err.Error(), "correlation_id") {
		t.Fatalf("expected correlation error, got %v", err)
	}
	if st.Get().LastError == nil {
		t.Error("expected last error to be set")
	}

	// the controller must still accept new cycles
	f.mu.Lock()
	f.fn = returning()
	f.mu.Unlock()
	if err := c.Refresh(context.Background()); err != nil {
		t.Errorf("expected recovery, got %v", err)
	}
}

// TestController_TickRotation verifies rotation advances modulo the active
// count and resets to zero when nothing is active.
func TestController_TickRotation(t *testing.T) {
	c, st, _ := newTestController(&fakeFetcher{fn: returning()}, staticToken("tok"))

	st.Update(func(s *store.Snapshot) {
		s.Projects = []railway.Project{
			project("api", railway.StatusBuilding, railway.StatusSuccess, railway.StatusDeploying),
			project("web", railway.StatusInitializing),
		}
	})

	want := []int{1, 2, 0, 1}
	for i, w := range want {
		c.Tick()
		if got := c.RotationIndex(); got != w {
			t.Fatalf("tick %d: expected index %d, got %d", i, w, got)
		}
		if got := st.Get().RotationIndex; got != w {
			t.Fatalf("tick %d: expected snapshot index %d, got %d", i, w, got)
		}
	}
	if ts := st.Get().TickerService; ts == nil || ts.ServiceName != "api-c" {
		t.Errorf("expected ticker api-c at index 1, got %+v", ts)
	}

	st.Update(func(s *store.Snapshot) {
		s.Projects = []railway.Project{project("api", railway.StatusSuccess)}
	})
	c.Tick()
	if got := c.RotationIndex(); got != 0 {
		t.Errorf("expected index reset to 0, got %d", got)
	}
	if st.Get().TickerService != nil {
		t.Error("expected no ticker service when nothing is active")
	}
}

// TestController_TickerLoop verifies the ticker loop runs while started.
func TestController_TickerLoop(t *testing.T) {
	f := &fakeFetcher{fn: returning(
		project("api", railway.StatusBuilding, railway.StatusDeploying),
	)}
	c, st, _ := newTestController(f, staticToken("tok"), WithTickerInterval(10*time.Millisecond))

	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, "rotation", func() bool { return st.Get().RotationIndex == 1 })
}

// TestController_ConcurrentStartThenStop verifies overlapping Start calls
// leave exactly one pair of loops, which a single Stop tears down.
func TestController_ConcurrentStartThenStop(t *testing.T) {
	c, _, _ := newTestController(&fakeFetcher{fn: returning()}, staticToken("tok"))

	for i := 0; i < 200; i++ {
		var ready, wg sync.WaitGroup
		release := make(chan struct{})
		for j := 0; j < 2; j++ {
			ready.Add(1)
			wg.Add(1)
			go func() {
				defer wg.Done()
				ready.Done()
				<-release
				c.Start(context.Background())
			}()
		}
		ready.Wait()
		close(release)
		wg.Wait()

		done := make(chan struct{})
		go func() {
			c.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("iteration %d: Stop did not return after concurrent Starts", i)
		}
		if c.Running() {
			t.Fatalf("iteration %d: expected controller to be idle after Stop", i)
		}
	}
}

// TestController_TickerServiceMatchesTree verifies every published snapshot
// carries the ticker service for its own project tree, even when ticks and
// fetch cycles interleave.
func TestController_TickerServiceMatchesTree(t *testing.T) {
	trees := [][]railway.Project{
		{project("api", railway.StatusBuilding, railway.StatusDeploying)},
		{project("web", railway.StatusSuccess, railway.StatusInitializing, railway.StatusBuilding)},
		{project("idle", railway.StatusSuccess)},
	}
	var mu sync.Mutex
	n := 0
	f := &fakeFetcher{fn: func(context.Context, string) ([]railway.Project, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return trees[n%len(trees)], nil
	}}
	c, st, _ := newTestController(f, staticToken("tok"))

	sub := st.Subscribe()
	var bad []string
	checked := make(chan struct{})
	go func() {
		defer close(checked)
		for snap := range sub {
			want := tickerService(status.ActiveServices(snap.Projects), snap.RotationIndex)
			got := snap.TickerService
			if (want == nil) != (got == nil) || (want != nil && *want != *got) {
				bad = append(bad, "mismatch")
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 300; i++ {
			_ = c.Refresh(context.Background())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 300; i++ {
			c.Tick()
		}
	}()
	wg.Wait()
	st.Unsubscribe(sub)
	<-checked

	if len(bad) > 0 {
		t.Errorf("%d snapshots carried a ticker service from another tree", len(bad))
	}
}
