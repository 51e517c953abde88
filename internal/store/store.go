package store

import (
	"time"

	"github.com/jpalmerr/railpulse/internal/railway"
	"github.com/jpalmerr/railpulse/internal/ratelimit"
	"github.com/jpalmerr/railpulse/internal/status"
)

// Snapshot is everything the display layer reads.
//
// Snapshot is optimized for JSON serialization (used by the REST API, SSE and
// websocket streams). The Projects tree is replaced wholesale on every
// successful fetch and must be treated as read-only.
type Snapshot struct {
	// Configured is false while no API token is available.
	Configured bool `json:"configured"`

	// Projects is the tree from the last successful fetch cycle.
	Projects []railway.Project `json:"projects"`

	// Summary holds counts and per-project badges derived from Projects.
	Summary status.Summary `json:"summary"`

	// Loading is true while a fetch cycle is in flight.
	Loading bool `json:"loading"`

	// LastError is the message of the last failed cycle, cleared on success.
	LastError *string `json:"last_error"`

	// RateLimit is the budget as of the end of the last cycle.
	RateLimit ratelimit.Snapshot `json:"rate_limit"`

	// RateLimitWarning is set when the budget is low or exhausted.
	RateLimitWarning *ratelimit.Warning `json:"rate_limit_warning"`

	// RotationIndex selects which active service the ticker surfaces.
	RotationIndex int `json:"rotation_index"`

	// TickerService is the active service at RotationIndex, if any.
	TickerService *status.ActiveService `json:"ticker_service"`

	// IntervalSeconds is the current refresh cadence.
	IntervalSeconds float64 `json:"interval_seconds"`

	// UpdatedAt is when Projects was last replaced. Zero until the first success.
	UpdatedAt time.Time `json:"updated_at"`

	// CheckedAt is when the last cycle finished, successful or not.
	CheckedAt time.Time `json:"checked_at"`
}

// Store defines the interface for publishing and subscribing to snapshots.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism allows real-time updates to be pushed to connected clients
// (e.g., via Server-Sent Events or websockets).
type Store interface {
	// Update applies fn to the current snapshot and notifies all subscribers
	// with the result.
	Update(fn func(s *Snapshot))

	// Get returns the current snapshot.
	Get() Snapshot

	// Subscribe returns a channel that receives snapshots after each update.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)
}
