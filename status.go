package railpulse

import (
	"github.com/jpalmerr/railpulse/internal/railway"
	"github.com/jpalmerr/railpulse/internal/ratelimit"
	"github.com/jpalmerr/railpulse/internal/status"
	"github.com/jpalmerr/railpulse/internal/store"
)

// DeploymentStatus is the normalized state of a deployment.
//
// Railway reports statuses in upper case; railpulse lower-cases them and maps
// anything unrecognized to [StatusUnknown].
type DeploymentStatus = railway.DeploymentStatus

const (
	StatusBuilding     = railway.StatusBuilding
	StatusDeploying    = railway.StatusDeploying
	StatusInitializing = railway.StatusInitializing
	StatusSuccess      = railway.StatusSuccess
	StatusFailed       = railway.StatusFailed
	StatusCrashed      = railway.StatusCrashed
	StatusRemoved      = railway.StatusRemoved
	StatusSleeping     = railway.StatusSleeping
	StatusUnknown      = railway.StatusUnknown
)

// Project, Service, Environment and Deployment form the fetched tree.
type (
	Project     = railway.Project
	Service     = railway.Service
	Environment = railway.Environment
	Deployment  = railway.Deployment
)

// Badge is the worst-status tier shown for a project.
type Badge = status.Badge

const (
	BadgeCrashed  = status.BadgeCrashed
	BadgeBuilding = status.BadgeBuilding
	BadgeSuccess  = status.BadgeSuccess
	BadgeUnknown  = status.BadgeUnknown
)

// Counts tallies services by effective status.
type Counts = status.Counts

// ActiveService is a service with an in-progress deployment.
type ActiveService = status.ActiveService

// RateLimitWarning is the display-ready notice raised when the API budget is
// low or exhausted.
type RateLimitWarning = ratelimit.Warning

// Snapshot is the complete display state published after every fetch cycle
// and ticker step. Its Projects tree must be treated as read-only.
type Snapshot = store.Snapshot

// TokenStore loads and saves the Railway API token. An empty token means
// unconfigured: the monitor keeps running but fetch cycles are no-ops.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
}
