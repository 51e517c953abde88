package railway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jpalmerr/railpulse/internal/graphql"
)

// Fetcher runs complete fetch cycles against the Railway API.
type Fetcher struct {
	exec    Executor
	batcher *Batcher
	logger  *slog.Logger
}

// NewFetcher creates a [Fetcher] that issues requests through exec.
func NewFetcher(exec Executor, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		exec:    exec,
		batcher: NewBatcher(exec, logger),
		logger:  logger,
	}
}

// FetchProjects enumerates projects and resolves each service's latest
// production deployment.
//
// The returned tree is freshly built; on error nothing partial is returned.
// Projects without environments keep nil deployments on all their services.
func (f *Fetcher) FetchProjects(ctx context.Context, token string) ([]Project, error) {
	var resp projectsResponse
	if err := f.exec.Execute(ctx, graphql.Request{Query: projectsQuery}, token, &resp); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	projects := resp.toProjects()

	reqs := deploymentRequests(projects)
	f.logger.Debug("resolving latest deployments",
		"projects", len(projects),
		"lookups", len(reqs),
	)
	if len(reqs) == 0 {
		return projects, nil
	}

	deployments, err := f.batcher.FetchLatest(ctx, token, reqs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deployments: %w", err)
	}

	for i, r := range reqs {
		projects[r.ProjectIndex].Services[r.ServiceIndex].LatestDeployment = deployments[i]
	}
	return projects, nil
}

// deploymentRequests flattens every (project, service) pair that has a
// production environment into one ordered request list.
func deploymentRequests(projects []Project) []DeploymentRequest {
	var reqs []DeploymentRequest
	for pi, p := range projects {
		env, ok := ProductionEnvironment(p.Environments)
		if !ok {
			continue
		}
		for si, s := range p.Services {
			reqs = append(reqs, DeploymentRequest{
				ProjectIndex:  pi,
				ServiceIndex:  si,
				ServiceID:     s.ID,
				EnvironmentID: env.ID,
			})
		}
	}
	return reqs
}
