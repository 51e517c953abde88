package status

import (
	"testing"

	"github.com/jpalmerr/railpulse/internal/railway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func svc(name string, st railway.DeploymentStatus) railway.Service {
	if st == "" {
		return railway.Service{Name: name}
	}
	return railway.Service{Name: name, LatestDeployment: &railway.Deployment{Status: st}}
}

func project(name string, services ...railway.Service) railway.Project {
	return railway.Project{ID: "id-" + name, Name: name, Services: services}
}

func TestBadgeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		services []railway.Service
		want     Badge
	}{
		{name: "all success", services: []railway.Service{svc("a", railway.StatusSuccess), svc("b", railway.StatusSuccess)}, want: BadgeSuccess},
		{name: "one building", services: []railway.Service{svc("a", railway.StatusSuccess), svc("b", railway.StatusBuilding)}, want: BadgeBuilding},
		{name: "one failed", services: []railway.Service{svc("a", railway.StatusSuccess), svc("b", railway.StatusFailed)}, want: BadgeCrashed},
		{name: "crash beats building", services: []railway.Service{svc("a", railway.StatusInitializing), svc("b", railway.StatusCrashed)}, want: BadgeCrashed},
		{name: "sleeping is not success", services: []railway.Service{svc("a", railway.StatusSuccess), svc("b", railway.StatusSleeping)}, want: BadgeUnknown},
		{name: "missing deployment", services: []railway.Service{svc("a", "")}, want: BadgeUnknown},
		{name: "no services", services: nil, want: BadgeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BadgeFor(project("p", tt.services...)))
		})
	}
}

func TestTally(t *testing.T) {
	t.Parallel()

	projects := []railway.Project{
		project("one",
			svc("a", railway.StatusSuccess),
			svc("b", railway.StatusFailed),
			svc("c", railway.StatusCrashed),
			svc("d", railway.StatusBuilding),
		),
		project("two",
			svc("e", railway.StatusDeploying),
			svc("f", railway.StatusInitializing),
			svc("g", railway.StatusSleeping),
			svc("h", railway.StatusRemoved),
			svc("i", ""),
			svc("j", railway.StatusSuccess),
		),
	}

	assert.Equal(t, Counts{Running: 2, Errored: 2, Active: 3, Sleeping: 1, Total: 10}, Tally(projects))
	assert.Equal(t, Counts{}, Tally(nil))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize([]railway.Project{
		project("ok", svc("a", railway.StatusSuccess)),
		project("bad", svc("b", railway.StatusCrashed)),
	})

	require.Len(t, s.Badges, 2)
	assert.Equal(t, ProjectBadge{ProjectID: "id-ok", ProjectName: "ok", Badge: BadgeSuccess}, s.Badges[0])
	assert.Equal(t, BadgeCrashed, s.Badges[1].Badge)
	assert.Equal(t, 1, s.Counts.Running)
	assert.Equal(t, 1, s.Counts.Errored)
}

func TestActiveServices(t *testing.T) {
	t.Parallel()

	active := ActiveServices([]railway.Project{
		project("one", svc("a", railway.StatusSuccess), svc("b", railway.StatusBuilding)),
		project("two", svc("c", railway.StatusDeploying), svc("d", "")),
	})

	assert.Equal(t, []ActiveService{
		{ProjectName: "one", ServiceName: "b", Status: railway.StatusBuilding},
		{ProjectName: "two", ServiceName: "c", Status: railway.StatusDeploying},
	}, active)
	assert.Empty(t, ActiveServices(nil))
}
