// Package status derives display summaries from a project tree.
//
// Everything here is a pure function of its input; nothing is stored.
package status

import "github.com/jpalmerr/railpulse/internal/railway"

// Badge is the worst-status tier shown for a project.
type Badge string

const (
	BadgeCrashed  Badge = "crashed"
	BadgeBuilding Badge = "building"
	BadgeSuccess  Badge = "success"
	BadgeUnknown  Badge = "unknown"
)

// Counts tallies services by effective status across all projects.
type Counts struct {
	Running  int `json:"running"`
	Errored  int `json:"errored"`
	Active   int `json:"active"`
	Sleeping int `json:"sleeping"`
	Total    int `json:"total"`
}

// ProjectBadge pairs a project with its badge.
type ProjectBadge struct {
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
	Badge       Badge  `json:"badge"`
}

// ActiveService is a service with an in-progress deployment.
type ActiveService struct {
	ProjectName string                   `json:"project_name"`
	ServiceName string                   `json:"service_name"`
	Status      railway.DeploymentStatus `json:"status"`
}

// Summary is the full derived view of a project tree.
type Summary struct {
	Counts Counts         `json:"counts"`
	Badges []ProjectBadge `json:"badges"`
}

// Summarize computes counts and per-project badges.
func Summarize(projects []railway.Project) Summary {
	s := Summary{
		Counts: Tally(projects),
		Badges: make([]ProjectBadge, 0, len(projects)),
	}
	for _, p := range projects {
		s.Badges = append(s.Badges, ProjectBadge{
			ProjectID:   p.ID,
			ProjectName: p.Name,
			Badge:       BadgeFor(p),
		})
	}
	return s
}

// Tally counts services by effective status. Services whose status is
// removed or unknown only contribute to Total.
func Tally(projects []railway.Project) Counts {
	var c Counts
	for _, p := range projects {
		for _, svc := range p.Services {
			c.Total++
			switch st := svc.Status(); {
			case st == railway.StatusSuccess:
				c.Running++
			case st.IsError():
				c.Errored++
			case st.IsActive():
				c.Active++
			case st == railway.StatusSleeping:
				c.Sleeping++
			}
		}
	}
	return c
}

// BadgeFor applies strict precedence: any failed or crashed service gives
// [BadgeCrashed]; else any active one gives [BadgeBuilding]; else a non-empty
// all-success project gives [BadgeSuccess]; else [BadgeUnknown].
func BadgeFor(p railway.Project) Badge {
	anyActive := false
	allSuccess := len(p.Services) > 0
	for _, svc := range p.Services {
		st := svc.Status()
		if st.IsError() {
			return BadgeCrashed
		}
		if st.IsActive() {
			anyActive = true
		}
		if st != railway.StatusSuccess {
			allSuccess = false
		}
	}
	switch {
	case anyActive:
		return BadgeBuilding
	case allSuccess:
		return BadgeSuccess
	default:
		return BadgeUnknown
	}
}

// ActiveServices lists in-progress services in tree order.
func ActiveServices(projects []railway.Project) []ActiveService {
	var active []ActiveService
	for _, p := range projects {
		for _, svc := range p.Services {
			if st := svc.Status(); st.IsActive() {
				active = append(active, ActiveService{
					ProjectName: p.Name,
					ServiceName: svc.Name,
					Status:      st,
				})
			}
		}
	}
	return active
}
