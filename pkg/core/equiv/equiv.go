// Package equiv finds the same project on the other registry.
//
// A counterpart is accepted in one of two ways only:
//
//   - the project links to the other registry explicitly and the linked
//     slug resolves there under a compatible category, or
//   - a name search on the other registry, restricted to the mapped
//     category, returns a project whose title equals the name, ignoring
//     case.
//
// Partial or fuzzy title matches are never accepted. When a name is found
// on both registries through independent lookups, [Match.Ambiguous] is true
// and picking one is left to the caller.
package equiv

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/core/registry"
)

// Finder looks up counterparts through a run's registries.
type Finder struct {
	regs registry.Set
	log  *log.Logger
}

// New creates a Finder. A nil logger discards output.
func New(regs registry.Set, logger *log.Logger) *Finder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Finder{regs: regs, log: logger}
}

// MapCategory returns the category to search under on registry to, or ""
// when to has no counterpart for c.
func MapCategory(c project.Category, to project.Source) project.Category {
	switch to {
	case project.CurseForge:
		if c.CurseForgeClass() == 0 {
			return ""
		}
		return c
	case project.Modrinth:
		if c == "" {
			return project.Mod
		}
		return c
	}
	return ""
}

// compatible reports whether two categories denote the same kind of
// project. CurseForge files shaders under resource packs.
func compatible(a, b project.Category) bool {
	if a == b {
		return true
	}
	ca, cb := a.CurseForgeClass(), b.CurseForgeClass()
	return ca != 0 && ca == cb
}

// Counterpart finds p on registry to. It tries p's explicit links first
// and falls back to an exact-title search.
func (f *Finder) Counterpart(ctx context.Context, p *project.Project, to project.Source) (*project.Project, bool) {
	if p.Source == to {
		return p, true
	}
	r, ok := f.regs.For(to)
	if !ok {
		return nil, false
	}
	c := MapCategory(p.Category, to)
	if c == "" {
		f.log.Debug("no counterpart category", "name", p.Label(), "category", p.Category, "registry", to)
		return nil, false
	}

	if ref, ok := f.linked(p, to); ok {
		// A stale link is not a miss; the title search below decides.
		if q, ok := r.SearchBySlug(registry.Quiet(ctx), ref.Slug, ref.Category); ok {
			f.log.Debug("counterpart via link", "name", p.Label(), "registry", to, "slug", ref.Slug)
			return q, true
		}
	}
	return f.byTitle(ctx, r, p.Name, c)
}

// linked returns the first link of p that points at a compatible project
// on registry to.
func (f *Finder) linked(p *project.Project, to project.Source) (project.Ref, bool) {
	for _, l := range p.Links {
		ref, ok := project.ParseURL(l)
		if !ok || ref.Source != to {
			continue
		}
		if !compatible(ref.Category, p.Category) {
			f.log.Debug("ignoring link with incompatible category", "link", l, "category", p.Category)
			continue
		}
		return ref, true
	}
	return project.Ref{}, false
}

// byTitle runs a category-restricted name search and accepts only a hit
// whose title equals name, ignoring case.
func (f *Finder) byTitle(ctx context.Context, r registry.Registry, name string, c project.Category) (*project.Project, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	for _, hit := range r.SearchByName(ctx, name, c) {
		if strings.EqualFold(strings.TrimSpace(hit.Name), name) {
			found := hit
			return &found, true
		}
	}
	return nil, false
}

// Match is the outcome of looking a name up on both registries.
type Match struct {
	CurseForge *project.Project
	Modrinth   *project.Project
}

// Ambiguous reports whether both registries have the project.
func (m Match) Ambiguous() bool { return m.CurseForge != nil && m.Modrinth != nil }

// Found reports whether at least one registry has the project.
func (m Match) Found() bool { return m.CurseForge != nil || m.Modrinth != nil }

// Only returns the single hit of an unambiguous match.
func (m Match) Only() (*project.Project, bool) {
	switch {
	case m.Ambiguous():
		return nil, false
	case m.CurseForge != nil:
		return m.CurseForge, true
	case m.Modrinth != nil:
		return m.Modrinth, true
	}
	return nil, false
}

// Get returns the hit for source, or nil.
func (m Match) Get(source project.Source) *project.Project {
	switch source {
	case project.CurseForge:
		return m.CurseForge
	case project.Modrinth:
		return m.Modrinth
	}
	return nil
}

func (m *Match) set(p *project.Project) {
	switch p.Source {
	case project.CurseForge:
		m.CurseForge = p
	case project.Modrinth:
		m.Modrinth = p
	}
}

// Both searches each registry for an exact title match independently.
func (f *Finder) Both(ctx context.Context, name string, c project.Category) Match {
	var m Match
	for _, source := range []project.Source{project.CurseForge, project.Modrinth} {
		r, ok := f.regs.For(source)
		if !ok {
			continue
		}
		mapped := MapCategory(c, source)
		if mapped == "" {
			continue
		}
		if p, ok := f.byTitle(ctx, r, name, mapped); ok {
			m.set(p)
		}
	}
	return m
}

// From completes a match that starts at a known project: p fills its own
// registry's slot and its counterpart, if any, the other.
func (f *Finder) From(ctx context.Context, p *project.Project) Match {
	var m Match
	m.set(p)
	other := project.Modrinth
	if p.Source == project.Modrinth {
		other = project.CurseForge
	}
	if q, ok := f.Counterpart(ctx, p, other); ok {
		m.set(q)
	}
	return m
}
