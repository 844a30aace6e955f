package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/modfetch/pkg/core/ledger"
	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/core/registry/registrytest"
	"github.com/matzehuels/modfetch/pkg/errors"
)

func node(id string, deps ...project.Edge) *project.Project {
	for i := range deps {
		deps[i].From = id
	}
	return &project.Project{ID: id, Name: id, Category: project.Mod, Dependencies: deps}
}

func req(to string) project.Edge { return project.Edge{To: to, Kind: project.Required} }

func TestResolveDiamondFetchesOnce(t *testing.T) {
	r := registrytest.New(project.CurseForge, nil)
	r.AddProject(node("A", req("B"), req("C")))
	r.AddProject(node("B", req("C")))
	r.AddProject(node("C"))

	got := New(r, nil).Resolve(context.Background(), "A")

	assert.Equal(t, []string{"curseforge:A", "curseforge:B", "curseforge:C"}, got.Keys())
	assert.Equal(t, 1, r.Calls("GetProject", "C"), "C reachable twice, fetched once")
	assert.Equal(t, 1, r.Calls("GetProject", "B"))
}

func TestResolveCycle(t *testing.T) {
	r := registrytest.New(project.CurseForge, nil)
	r.AddProject(node("A", req("B")))
	r.AddProject(node("B", req("A")))

	got := New(r, nil).Resolve(context.Background(), "A")

	assert.Len(t, got, 2)
	assert.Equal(t, 1, r.Calls("GetProject", "A"))
}

func TestResolveFollowsOnlyRequiredAndEmbedded(t *testing.T) {
	r := registrytest.New(project.CurseForge, nil)
	r.AddProject(node("A",
		req("B"),
		project.Edge{To: "C", Kind: project.Embedded},
		project.Edge{To: "D", Kind: project.Optional},
		project.Edge{To: "E", Kind: project.Incompatible},
		project.Edge{To: "F", Kind: project.Tool},
	))
	for _, id := range []string{"B", "C", "D", "E", "F"} {
		r.AddProject(node(id))
	}

	got := New(r, nil).Resolve(context.Background(), "A")

	assert.Equal(t, []string{"curseforge:A", "curseforge:B", "curseforge:C"}, got.Keys())
	assert.Zero(t, r.Calls("GetProject", "D"))
}

func TestResolveMissingDependencyDoesNotBlockSiblings(t *testing.T) {
	l := ledger.New()
	r := registrytest.New(project.CurseForge, l)
	r.AddProject(node("A", req("missing"), req("B")))
	r.AddProject(node("B", req("C")))
	r.AddProject(node("C"))

	got := New(r, nil).Resolve(context.Background(), "A")

	assert.Equal(t, []string{"curseforge:A", "curseforge:B", "curseforge:C"}, got.Keys())
	require.Equal(t, 1, l.Len())
	assert.Equal(t, errors.ErrCodeNotFound, l.Items()[0].Kind)
}

func TestResolveMissingSeed(t *testing.T) {
	l := ledger.New()
	r := registrytest.New(project.CurseForge, l)

	got := New(r, nil).Resolve(context.Background(), "nope")
	assert.Empty(t, got)
	assert.Equal(t, 1, l.Len(), "seed failure is recorded, not fatal")
}

func TestResolveOrderIndependent(t *testing.T) {
	build := func(order []string) *registrytest.Fake {
		r := registrytest.New(project.CurseForge, nil)
		graph := map[string][]string{
			"A": {"B", "C"},
			"B": {"D"},
			"C": {"D", "E"},
			"D": {"A"},
			"E": nil,
			"X": {"E"},
		}
		for _, id := range order {
			var deps []project.Edge
			for _, to := range graph[id] {
				deps = append(deps, req(to))
			}
			r.AddProject(node(id, deps...))
		}
		return r
	}

	first := New(build([]string{"A", "B", "C", "D", "E", "X"}), nil).Resolve(context.Background(), "A", "X")
	second := New(build([]string{"X", "E", "D", "C", "B", "A"}), nil).Resolve(context.Background(), "X", "A")

	assert.Equal(t, first.Keys(), second.Keys())
	assert.Len(t, first, 6)
}

func TestResolveStopsOnCancel(t *testing.T) {
	r := registrytest.New(project.CurseForge, nil)
	r.AddProject(node("A"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, New(r, nil).Resolve(ctx, "A"))
}

func TestResultProjects(t *testing.T) {
	res := Result{
		"curseforge:2": {ID: "2"},
		"curseforge:1": {ID: "1"},
	}
	ps := res.Projects()
	require.Len(t, ps, 2)
	assert.Equal(t, "1", ps[0].ID)
}
