// Package railwaytest provides an in-process fake of the Railway GraphQL API
// for tests and demos.
//
// The fake understands exactly the two query shapes railpulse sends: the
// project listing and the aliased batch of latest-deployment lookups.
package railwaytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Service is a fixture service. Status is the raw upper-case Railway status of
// its latest production deployment; empty means no deployment.
type Service struct {
	ID     string
	Name   string
	Status string
}

// Project is a fixture project with one production environment.
type Project struct {
	ID       string
	Name     string
	EnvName  string
	Services []Service
}

var lookupPattern = regexp.MustCompile(`(d\d+): deployments\(first: 1, input: \{serviceId: "([^"]*)", environmentId: "([^"]*)"\}\)`)

// API is a fake Railway GraphQL endpoint.
type API struct {
	mu        sync.Mutex
	token     string
	projects  []Project
	limit     int
	remaining int
	resetAt   time.Time
	failWith  int

	requests atomic.Int64
}

// New returns an API serving projects. An empty token accepts any bearer.
func New(token string, projects ...Project) *API {
	return &API{token: token, projects: projects}
}

// NewServer starts an httptest.Server for api. Callers must Close it.
func NewServer(api *API) *httptest.Server {
	return httptest.NewServer(api)
}

// SetRateLimit makes every response carry X-RateLimit-* headers. remaining
// decreases by one per request, never below zero.
func (a *API) SetRateLimit(limit, remaining int, resetAt time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.limit, a.remaining, a.resetAt = limit, remaining, resetAt
}

// SetStatus changes the latest deployment status of serviceID.
func (a *API) SetStatus(serviceID, status string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for pi := range a.projects {
		for si := range a.projects[pi].Services {
			if a.projects[pi].Services[si].ID == serviceID {
				a.projects[pi].Services[si].Status = status
			}
		}
	}
}

// Status returns the latest deployment status of serviceID, or "" if it has
// none.
func (a *API) Status(serviceID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statusOf(serviceID)
}

// FailWith makes every subsequent request return code. Zero restores normal
// responses.
func (a *API) FailWith(code int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failWith = code
}

// Requests reports how many requests the API has served.
func (a *API) Requests() int64 {
	return a.requests.Load()
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.requests.Add(1)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.writeRateLimit(w)
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if a.token != "" && r.Header.Get("Authorization") != "Bearer "+a.token {
		writeError(w, http.StatusUnauthorized, "Not Authorized")
		return
	}
	if a.failWith != 0 {
		writeError(w, a.failWith, http.StatusText(a.failWith))
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	var data any
	if strings.Contains(req.Query, "projects {") {
		data = a.projectsData()
	} else {
		data = a.deploymentsData(req.Query)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func (a *API) writeRateLimit(w http.ResponseWriter) {
	if a.limit == 0 {
		return
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(a.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(a.remaining))
	if !a.resetAt.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(a.resetAt.Unix(), 10))
	}
	if a.remaining > 0 {
		a.remaining--
	}
}

type edges[T any] struct {
	Edges []struct {
		Node T `json:"node"`
	} `json:"edges"`
}

func edgesOf[T any](nodes []T) edges[T] {
	e := edges[T]{Edges: make([]struct {
		Node T `json:"node"`
	}, len(nodes))}
	for i, n := range nodes {
		e.Edges[i].Node = n
	}
	return e
}

type named struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (a *API) projectsData() any {
	type projectNode struct {
		ID           string       `json:"id"`
		Name         string       `json:"name"`
		Services     edges[named] `json:"services"`
		Environments edges[named] `json:"environments"`
	}
	nodes := make([]projectNode, 0, len(a.projects))
	for _, p := range a.projects {
		svcs := make([]named, 0, len(p.Services))
		for _, s := range p.Services {
			svcs = append(svcs, named{ID: s.ID, Name: s.Name})
		}
		env := p.EnvName
		if env == "" {
			env = "production"
		}
		nodes = append(nodes, projectNode{
			ID:           p.ID,
			Name:         p.Name,
			Services:     edgesOf(svcs),
			Environments: edgesOf([]named{{ID: EnvironmentID(p.ID), Name: env}}),
		})
	}
	return map[string]any{"projects": edgesOf(nodes)}
}

type deploymentNode struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

func (a *API) deploymentsData(query string) any {
	out := make(map[string]any)
	for _, m := range lookupPattern.FindAllStringSubmatch(query, -1) {
		alias, serviceID := m[1], m[2]
		var nodes []deploymentNode
		if status := a.statusOf(serviceID); status != "" {
			nodes = append(nodes, deploymentNode{
				ID:        "dep-" + serviceID,
				Status:    status,
				CreatedAt: "2024-05-01T12:00:00.000Z",
			})
		}
		out[alias] = edgesOf(nodes)
	}
	return out
}

func (a *API) statusOf(serviceID string) string {
	for _, p := range a.projects {
		for _, s := range p.Services {
			if s.ID == serviceID {
				return s.Status
			}
		}
	}
	return ""
}

// EnvironmentID is the id the fake assigns to a project's environment.
func EnvironmentID(projectID string) string {
	return fmt.Sprintf("env-%s", projectID)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"errors": []map[string]string{{"message": msg}},
	})
}
