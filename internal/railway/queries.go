package railway

import (
	"encoding/json"
	"fmt"
	"strings"
)

const projectsQuery = `query Projects {
  projects {
    edges {
      node {
        id
        name
        services {
          edges {
            node {
              id
              name
              icon
            }
          }
        }
        environments {
          edges {
            node {
              id
              name
            }
          }
        }
      }
    }
  }
}`

type projectsResponse struct {
	Projects struct {
		Edges []struct {
			Node struct {
				ID       string `json:"id"`
				Name     string `json:"name"`
				Services struct {
					Edges []struct {
						Node struct {
							ID   string  `json:"id"`
							Name string  `json:"name"`
							Icon *string `json:"icon"`
						} `json:"node"`
					} `json:"edges"`
				} `json:"services"`
				Environments struct {
					Edges []struct {
						Node struct {
							ID   string `json:"id"`
							Name string `json:"name"`
						} `json:"node"`
					} `json:"edges"`
				} `json:"environments"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"projects"`
}

// toProjects flattens the connection payload, preserving listing order.
func (r projectsResponse) toProjects() []Project {
	projects := make([]Project, 0, len(r.Projects.Edges))
	for _, pe := range r.Projects.Edges {
		p := Project{
			ID:           pe.Node.ID,
			Name:         pe.Node.Name,
			Services:     make([]Service, 0, len(pe.Node.Services.Edges)),
			Environments: make([]Environment, 0, len(pe.Node.Environments.Edges)),
		}
		for _, se := range pe.Node.Services.Edges {
			svc := Service{ID: se.Node.ID, Name: se.Node.Name}
			if se.Node.Icon != nil {
				svc.Icon = *se.Node.Icon
			}
			p.Services = append(p.Services, svc)
		}
		for _, ee := range pe.Node.Environments.Edges {
			p.Environments = append(p.Environments, Environment{ID: ee.Node.ID, Name: ee.Node.Name})
		}
		projects = append(projects, p)
	}
	return projects
}

// alias names the i-th lookup within a batch.
func alias(i int) string {
	return fmt.Sprintf("d%d", i)
}

// BuildBatchQuery composes one query that fetches the latest deployment for
// every request, each under its own alias d0..dN-1. Ids are embedded as
// quoted string literals.
func BuildBatchQuery(reqs []DeploymentRequest) string {
	var b strings.Builder
	b.WriteString("query LatestDeployments {\n")
	for i, r := range reqs {
		fmt.Fprintf(&b,
			"  %s: deployments(first: 1, input: {serviceId: %s, environmentId: %s}) {\n"+
				"    edges {\n      node {\n        id\n        status\n        createdAt\n      }\n    }\n  }\n",
			alias(i), quote(r.ServiceID), quote(r.EnvironmentID))
	}
	b.WriteString("}")
	return b.String()
}

// quote renders s as a GraphQL string literal. JSON string escaping is a
// subset of GraphQL's.
func quote(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(out)
}
