// Package resolve walks a project's dependency graph breadth-first.
//
// The walk is sequential. Each id is fetched at most once: the visited set
// is checked when an id is dequeued, before the fetch, so an id reachable
// through several paths (or through a cycle) is never fetched twice. Only
// edges whose kind is followed ([project.Edge.Followed]) are walked.
//
// A failed fetch is already on the ledger through the registry adapter; the
// resolver simply skips that branch and carries on with its siblings.
package resolve

import (
	"context"
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/core/registry"
)

// Result is the resolved set keyed by project key. It has set semantics:
// the same seeds over the same graph always yield the same keys.
type Result map[string]*project.Project

// Keys returns the project keys in sorted order.
func (r Result) Keys() []string {
	return slices.Sorted(maps.Keys(r))
}

// Projects returns the projects ordered by key.
func (r Result) Projects() []*project.Project {
	out := make([]*project.Project, 0, len(r))
	for _, k := range r.Keys() {
		out = append(out, r[k])
	}
	return out
}

// Resolver walks dependency graphs on one registry.
type Resolver struct {
	reg registry.Registry
	log *log.Logger
}

// New creates a Resolver over reg. A nil logger discards output.
func New(reg registry.Registry, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Resolver{reg: reg, log: logger}
}

// Resolve fetches every seed and everything reachable from them over
// followed edges. Seeds that cannot be fetched are skipped like any other
// node. Resolve stops early only if ctx is done, returning what it has.
func (r *Resolver) Resolve(ctx context.Context, seeds ...string) Result {
	result := make(Result)
	visited := make(map[string]bool)
	queue := append([]string(nil), seeds...)

	for len(queue) > 0 {
		if ctx.Err() != nil {
			break
		}
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		p, ok := r.reg.GetProject(ctx, id)
		if !ok {
			continue
		}
		if _, seen := result[p.Key()]; !seen {
			result[p.Key()] = p
			r.log.Debug("resolved project", "name", p.Label(), "id", p.ID)
		}
		// A project can be known under an id other than the one asked for
		// (Modrinth slugs); mark both.
		visited[p.ID] = true

		for _, e := range p.Dependencies {
			if e.Followed() && !visited[e.To] {
				queue = append(queue, e.To)
			}
		}
	}
	return result
}
