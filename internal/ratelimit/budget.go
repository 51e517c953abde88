package ratelimit

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Header names consumed by [Budget.Observe].
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Polling cadence tiers returned by [Budget.SuggestedInterval].
const (
	DefaultInterval  = 30 * time.Second
	LowInterval      = 60 * time.Second
	CriticalInterval = 120 * time.Second
)

const (
	criticalRatio = 0.10
	lowRatio      = 0.25

	// resetBuffer is added to the reset instant before requests resume.
	resetBuffer = time.Second
)

// Snapshot is a point-in-time copy of a [Budget].
//
// A nil field means the corresponding header has never been observed.
type Snapshot struct {
	Limit     *int       `json:"limit"`
	Remaining *int       `json:"remaining"`
	ResetAt   *time.Time `json:"reset_at"`
}

// Budget holds the server's advertised request budget.
//
// Budget is safe for concurrent use. The transport writes to it after every
// response and the polling controller reads from it; all access goes through
// the accessor methods under a single mutex.
type Budget struct {
	mu        sync.RWMutex
	limit     *int
	remaining *int
	resetAt   *time.Time
	now       func() time.Time
}

// NewBudget creates an empty [Budget]. An empty budget is unconstrained.
func NewBudget() *Budget {
	return &Budget{now: time.Now}
}

// Observe updates the budget from response headers.
//
// Each header is applied independently. Missing or unparseable headers are
// ignored and the prior value is kept.
func (b *Budget) Observe(h http.Header) {
	if h == nil {
		return
	}

	limit, limitOK := parseInt(h.Get(HeaderLimit))
	remaining, remainingOK := parseInt(h.Get(HeaderRemaining))
	resetAt, resetOK := parseEpoch(h.Get(HeaderReset))

	b.mu.Lock()
	defer b.mu.Unlock()

	if limitOK {
		b.limit = &limit
	}
	if remainingOK {
		b.remaining = &remaining
	}
	if resetOK {
		b.resetAt = &resetAt
	}
}

// WaitDuration returns how long a caller should wait before issuing a request.
//
// It is zero unless the remaining budget is known to be exhausted and a reset
// instant is known, in which case it is the time until reset plus a one
// second buffer, never negative.
func (b *Budget) WaitDuration() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.remaining == nil || *b.remaining > 0 || b.resetAt == nil {
		return 0
	}

	wait := b.resetAt.Sub(b.now()) + resetBuffer
	if wait < 0 {
		return 0
	}
	return wait
}

// SuggestedInterval maps the remaining budget ratio onto a polling interval.
//
//   - remaining/limit < 0.10: 120s
//   - remaining/limit < 0.25: 60s
//   - otherwise, or when limit or remaining is unknown or limit is 0: 30s
func (b *Budget) SuggestedInterval() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.limit == nil || b.remaining == nil || *b.limit == 0 {
		return DefaultInterval
	}

	ratio := float64(*b.remaining) / float64(*b.limit)
	switch {
	case ratio < criticalRatio:
		return CriticalInterval
	case ratio < lowRatio:
		return LowInterval
	default:
		return DefaultInterval
	}
}

// Snapshot returns a copy of the current budget state.
func (b *Budget) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var s Snapshot
	if b.limit != nil {
		v := *b.limit
		s.Limit = &v
	}
	if b.remaining != nil {
		v := *b.remaining
		s.Remaining = &v
	}
	if b.resetAt != nil {
		v := *b.resetAt
		s.ResetAt = &v
	}
	return s
}

// WarningKind classifies a [Warning].
type WarningKind string

const (
	// WarningExhausted means no requests remain until the window resets.
	WarningExhausted WarningKind = "exhausted"

	// WarningLow means less than a quarter of the budget remains.
	WarningLow WarningKind = "low"
)

// Warning is a display-ready rate-limit notice.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	Message   string      `json:"message"`
	Limit     *int        `json:"limit,omitempty"`
	Remaining int         `json:"remaining"`
	ResetAt   *time.Time  `json:"reset_at,omitempty"`
}

// Warning derives the rate-limit notice for the snapshot, or nil when the
// budget is healthy or unknown.
func (s Snapshot) Warning() *Warning {
	if s.Remaining == nil {
		return nil
	}
	remaining := *s.Remaining

	if remaining <= 0 {
		return &Warning{
			Kind:      WarningExhausted,
			Message:   "Rate limit exhausted, paused until reset",
			Limit:     s.Limit,
			Remaining: remaining,
			ResetAt:   s.ResetAt,
		}
	}

	if s.Limit == nil || *s.Limit == 0 {
		return nil
	}
	if float64(remaining)/float64(*s.Limit) < lowRatio {
		return &Warning{
			Kind:      WarningLow,
			Message:   fmt.Sprintf("Rate limit low: %d/%d requests remaining", remaining, *s.Limit),
			Limit:     s.Limit,
			Remaining: remaining,
			ResetAt:   s.ResetAt,
		}
	}
	return nil
}

func parseInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseEpoch parses fractional epoch seconds.
func parseEpoch(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, false
	}
	whole := int64(secs)
	nanos := int64((secs - float64(whole)) * float64(time.Second))
	return time.Unix(whole, nanos), true
}
