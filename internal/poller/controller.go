package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpalmerr/railpulse/internal/railway"
	"github.com/jpalmerr/railpulse/internal/ratelimit"
	"github.com/jpalmerr/railpulse/internal/status"
	"github.com/jpalmerr/railpulse/internal/store"
)

// DefaultTickerInterval is how often the active-service rotation advances.
const DefaultTickerInterval = 3 * time.Second

// Cycle outcomes reported to [Recorder.RecordCycle].
const (
	OutcomeSuccess      = "success"
	OutcomeError        = "error"
	OutcomeUnconfigured = "unconfigured"
	OutcomeDiscarded    = "discarded"
)

// ErrFetchInProgress is returned by [Controller.Refresh] when a cycle is
// already running.
var ErrFetchInProgress = errors.New("fetch already in progress")

// Fetcher runs one full fetch cycle. [*railway.Fetcher] implements it.
type Fetcher interface {
	FetchProjects(ctx context.Context, token string) ([]railway.Project, error)
}

// TokenSource supplies the API token. An empty token means unconfigured.
type TokenSource interface {
	Load() (string, error)
}

// Recorder receives per-cycle observations, typically for metrics.
type Recorder interface {
	RecordCycle(outcome string, duration time.Duration)
	RecordSnapshot(budget ratelimit.Snapshot, counts status.Counts, interval time.Duration)
}

// Controller schedules fetch cycles and publishes their results.
//
// All methods are safe for concurrent use. Start and Stop may be called any
// number of times in any order.
type Controller struct {
	fetcher        Fetcher
	budget         *ratelimit.Budget
	tokens         TokenSource
	store          store.Store
	logger         *slog.Logger
	recorder       Recorder
	tickerInterval time.Duration

	// lifecycleMu serializes Start and Stop so stop-then-arm is one step.
	lifecycleMu sync.Mutex

	mu         sync.Mutex
	running    bool
	generation uint64
	cancel     context.CancelFunc
	intervalCh chan time.Duration
	interval   time.Duration
	fetching   bool
	rotation   int
	wg         sync.WaitGroup
}

// Option configures a [Controller].
type Option func(*Controller)

// WithRecorder registers a [Recorder].
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithTickerInterval overrides [DefaultTickerInterval].
func WithTickerInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.tickerInterval = d
		}
	}
}

// NewController creates an idle [Controller].
func NewController(fetcher Fetcher, budget *ratelimit.Budget, tokens TokenSource, st store.Store, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		fetcher:        fetcher,
		budget:         budget,
		tokens:         tokens,
		store:          st,
		logger:         logger,
		tickerInterval: DefaultTickerInterval,
		interval:       ratelimit.DefaultInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start stops any running loops, resets the refresh interval to its default,
// triggers an immediate fetch cycle and arms the refresh and ticker loops.
//
// Start is non-blocking. The loops run until [Controller.Stop] is called or
// ctx is cancelled.
func (c *Controller) Start(ctx context.Context) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.stopLocked()

	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.interval = ratelimit.DefaultInterval
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	intervalCh := make(chan time.Duration, 1)
	c.intervalCh = intervalCh
	c.wg.Add(2)
	c.mu.Unlock()

	c.logger.Info("polling started",
		"interval", ratelimit.DefaultInterval.String(),
		"ticker_interval", c.tickerInterval.String(),
	)

	go c.refreshLoop(runCtx, gen, intervalCh)
	go c.tickerLoop(runCtx)
}

// Stop cancels both loops and waits for them, and any cycle they launched,
// to exit. Stopping an idle controller is a no-op.
func (c *Controller) Stop() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.stopLocked()
}

// stopLocked cancels the loops and waits for them. The caller must hold
// c.lifecycleMu.
func (c *Controller) stopLocked() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.generation++ // results of in-flight cycles are now stale
	c.cancel()
	c.cancel = nil
	c.intervalCh = nil
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Info("polling stopped")
}

// Running reports whether the loops are armed.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Interval returns the current refresh interval.
func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// RotationIndex returns the current ticker rotation index.
func (c *Controller) RotationIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotation
}

// Refresh runs one fetch cycle synchronously. It returns
// [ErrFetchInProgress] if another cycle is running, otherwise the cycle's
// error, if any.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.fetching {
		c.mu.Unlock()
		return ErrFetchInProgress
	}
	c.fetching = true
	gen := c.generation
	intervalCh := c.intervalCh
	c.mu.Unlock()

	return c.runCycle(ctx, gen, intervalCh)
}

// Tick advances the rotation over active services: modulo their count when
// any exist, otherwise back to zero. The ticker loop calls it every
// tickerInterval.
// The active list is read from the snapshot being updated while c.mu is
// held, the same lock order publish uses.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Update(func(s *store.Snapshot) {
		active := status.ActiveServices(s.Projects)
		if len(active) > 0 {
			c.rotation = (c.rotation + 1) % len(active)
		} else {
			c.rotation = 0
		}
		s.RotationIndex = c.rotation
		s.TickerService = tickerService(active, c.rotation)
	})
}

func (c *Controller) refreshLoop(ctx context.Context, gen uint64, intervalCh chan time.Duration) {
	defer c.wg.Done()

	c.launchCycle(ctx, gen, intervalCh)

	ticker := time.NewTicker(ratelimit.DefaultInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-intervalCh:
			ticker.Reset(d)
			c.logger.Info("polling interval changed", "interval", d.String())
		case <-ticker.C:
			c.launchCycle(ctx, gen, intervalCh)
		}
	}
}

func (c *Controller) tickerLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.tickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// launchCycle starts a cycle in the background unless one is in flight, so
// the refresh loop never blocks on the network.
func (c *Controller) launchCycle(ctx context.Context, gen uint64, intervalCh chan time.Duration) {
	c.mu.Lock()
	if c.fetching {
		c.mu.Unlock()
		c.logger.Debug("skipping refresh, fetch already in progress")
		return
	}
	c.fetching = true
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		_ = c.runCycle(ctx, gen, intervalCh)
	}()
}

// runCycle performs one fetch cycle. The caller must have set c.fetching.
func (c *Controller) runCycle(ctx context.Context, gen uint64, intervalCh chan time.Duration) error {
	defer func() {
		c.mu.Lock()
		c.fetching = false
		c.mu.Unlock()
	}()

	start := time.Now()

	token, err := c.tokens.Load()
	if err != nil {
		err = fmt.Errorf("failed to load token: %w", err)
		c.publish(gen, nil, err, start, intervalCh)
		return err
	}
	if token == "" {
		c.store.Update(func(s *store.Snapshot) {
			s.Configured = false
			s.Loading = false
		})
		c.record(OutcomeUnconfigured, time.Since(start))
		c.logger.Debug("no API token configured, skipping fetch")
		return nil
	}

	cycleID := uuid.NewString()
	c.store.Update(func(s *store.Snapshot) {
		s.Configured = true
		s.Loading = true
	})

	projects, err := c.safeFetch(ctx, token, cycleID)
	c.publish(gen, projects, err, start, intervalCh)

	attrs := []any{
		"cycle_id", cycleID,
		"duration_ms", time.Since(start).Milliseconds(),
		"projects", len(projects),
	}
	if err != nil {
		c.logger.Warn("fetch cycle failed", append(attrs, "error", err.Error())...)
	} else {
		c.logger.Debug("fetch cycle completed", attrs...)
	}
	return err
}

// publish applies a cycle's outcome to the store and adapts the refresh
// interval. Stale generations are dropped.
func (c *Controller) publish(gen uint64, projects []railway.Project, err error, start time.Time, intervalCh chan time.Duration) {
	budget := c.budget.Snapshot()
	suggested := c.budget.SuggestedInterval()
	now := time.Now()

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.store.Update(func(s *store.Snapshot) { s.Loading = false })
		c.record(OutcomeDiscarded, time.Since(start))
		c.logger.Debug("discarding stale fetch result")
		return
	}

	changed := suggested != c.interval
	c.interval = suggested
	rotation := c.rotation

	c.store.Update(func(s *store.Snapshot) {
		s.Loading = false
		s.CheckedAt = now
		if err != nil {
			msg := err.Error()
			s.LastError = &msg
		} else {
			s.Projects = projects
			s.Summary = status.Summarize(projects)
			s.LastError = nil
			s.UpdatedAt = now
		}
		s.RateLimit = budget
		s.RateLimitWarning = budget.Warning()
		s.IntervalSeconds = suggested.Seconds()
		active := status.ActiveServices(s.Projects)
		s.TickerService = tickerService(active, rotation)
	})
	c.mu.Unlock()

	if changed && intervalCh != nil {
		// replace any interval the loop has not consumed yet
		select {
		case <-intervalCh:
		default:
		}
		select {
		case intervalCh <- suggested:
		default:
		}
	}

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	c.record(outcome, time.Since(start))
	if c.recorder != nil {
		c.recorder.RecordSnapshot(budget, c.store.Get().Summary.Counts, suggested)
	}
}

// safeFetch calls the fetcher with panic recovery. A panic is logged with a
// correlation ID and reported as an error carrying that ID.
func (c *Controller) safeFetch(ctx context.Context, token, cycleID string) (projects []railway.Project, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("fetch cycle panic",
				"correlation_id", cycleID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			projects = nil
			err = fmt.Errorf("internal error during fetch (correlation_id: %s)", cycleID)
		}
	}()
	return c.fetcher.FetchProjects(ctx, token)
}

func (c *Controller) record(outcome string, d time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordCycle(outcome, d)
	}
}

// tickerService picks the active service shown at idx, wrapping idx when the
// active set shrank since the last tick.
func tickerService(active []status.ActiveService, idx int) *status.ActiveService {
	if len(active) == 0 {
		return nil
	}
	svc := active[idx%len(active)]
	return &svc
}
