package railway

import (
	"strings"
	"time"
)

// DeploymentStatus is the lifecycle state of a deployment.
type DeploymentStatus string

const (
	StatusBuilding     DeploymentStatus = "building"
	StatusDeploying    DeploymentStatus = "deploying"
	StatusInitializing DeploymentStatus = "initializing"
	StatusSuccess      DeploymentStatus = "success"
	StatusFailed       DeploymentStatus = "failed"
	StatusCrashed      DeploymentStatus = "crashed"
	StatusRemoved      DeploymentStatus = "removed"
	StatusSleeping     DeploymentStatus = "sleeping"

	// StatusUnknown is the default and the fallback for unrecognized values.
	StatusUnknown DeploymentStatus = "unknown"
)

// ParseDeploymentStatus maps an API status string (e.g. "SUCCESS") onto a
// [DeploymentStatus]. Unrecognized values yield [StatusUnknown].
func ParseDeploymentStatus(raw string) DeploymentStatus {
	switch s := DeploymentStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusBuilding, StatusDeploying, StatusInitializing, StatusSuccess,
		StatusFailed, StatusCrashed, StatusRemoved, StatusSleeping:
		return s
	default:
		return StatusUnknown
	}
}

// String implements fmt.Stringer.
func (s DeploymentStatus) String() string {
	return string(s)
}

// IsActive reports whether the deployment is still in progress.
func (s DeploymentStatus) IsActive() bool {
	return s == StatusBuilding || s == StatusDeploying || s == StatusInitializing
}

// IsError reports whether the deployment ended badly.
func (s DeploymentStatus) IsError() bool {
	return s == StatusFailed || s == StatusCrashed
}

// Deployment is one deployment of a service.
type Deployment struct {
	ID        string           `json:"id"`
	Status    DeploymentStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// Environment is a named deployment target within a project.
type Environment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Service is a deployable unit within a project.
//
// LatestDeployment is nil until resolved, or when the project has no
// environments to look deployments up in.
type Service struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Icon             string      `json:"icon,omitempty"`
	LatestDeployment *Deployment `json:"latest_deployment"`
}

// Status returns the service's effective status: its latest deployment's
// status, or [StatusUnknown] when there is none.
func (s Service) Status() DeploymentStatus {
	if s.LatestDeployment == nil {
		return StatusUnknown
	}
	return s.LatestDeployment.Status
}

// Project is a Railway project with its services and environments.
type Project struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Services     []Service     `json:"services"`
	Environments []Environment `json:"environments"`
}

// ProductionEnvironment picks the environment deployments are read from: the
// first whose name equals "production" ignoring case, else the first listed.
// ok is false when envs is empty.
func ProductionEnvironment(envs []Environment) (env Environment, ok bool) {
	if len(envs) == 0 {
		return Environment{}, false
	}
	for _, e := range envs {
		if strings.EqualFold(e.Name, "production") {
			return e, true
		}
	}
	return envs[0], true
}

// CloneProjects returns a deep copy of projects.
func CloneProjects(projects []Project) []Project {
	if projects == nil {
		return nil
	}
	out := make([]Project, len(projects))
	for i, p := range projects {
		out[i] = Project{
			ID:           p.ID,
			Name:         p.Name,
			Environments: append([]Environment(nil), p.Environments...),
		}
		if p.Services != nil {
			out[i].Services = make([]Service, len(p.Services))
			for j, s := range p.Services {
				if s.LatestDeployment != nil {
					d := *s.LatestDeployment
					s.LatestDeployment = &d
				}
				out[i].Services[j] = s
			}
		}
	}
	return out
}
