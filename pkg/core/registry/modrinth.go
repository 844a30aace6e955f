package registry

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/modfetch/pkg/core/ledger"
	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/integrations/modrinth"
)

const mrSearchLimit = 5

// Modrinth adapts the Modrinth API to [Registry].
//
// Modrinth declares dependencies per version rather than per project.
// [Modrinth.GetProject] collects them from the newest version of each
// loader; projects found by slug or name carry no edges.
type Modrinth struct {
	base
	client *modrinth.Client
}

// NewModrinth builds an adapter bound to one run's ledger.
func NewModrinth(c *modrinth.Client, l *ledger.Ledger, opts Options) *Modrinth {
	return &Modrinth{base: newBase(project.Modrinth, l, opts), client: c}
}

// SearchBySlug implements [Registry]. Modrinth resolves slugs directly, so
// the category is only used for the ledger origin.
func (r *Modrinth) SearchBySlug(ctx context.Context, slug string, c project.Category) (*project.Project, bool) {
	p, err := r.client.GetProject(ctx, slug)
	r.pause(ctx)
	if err != nil {
		r.record(ctx, slug, project.ModrinthPage(c, slug), fmt.Sprintf("get project %q", slug), err)
		return nil, false
	}
	return mrProject(p), true
}

// GetProject implements [Registry].
func (r *Modrinth) GetProject(ctx context.Context, id string) (*project.Project, bool) {
	p, err := r.client.GetProject(ctx, id)
	r.pause(ctx)
	if err != nil {
		r.record(ctx, "Modrinth project "+id, project.Key(project.Modrinth, id), fmt.Sprintf("get project %q", id), err)
		return nil, false
	}
	out := mrProject(p)

	versions, err := r.client.GetVersions(ctx, r.ref(out), modrinth.VersionQuery{})
	r.pause(ctx)
	if err != nil {
		r.record(ctx, out.Label(), out.Origin(), "list versions for dependencies", err)
		return out, true
	}
	out.Dependencies = mrEdges(out.ID, versions)
	return out, true
}

// ListArtifacts implements [Registry]. Each version contributes its primary
// file, or its first file when none is flagged primary.
func (r *Modrinth) ListArtifacts(ctx context.Context, p *project.Project, q Query) []project.Artifact {
	var vq modrinth.VersionQuery
	if q.Version != "" {
		vq.GameVersions = []string{q.Version}
	}
	if p.Category.LoaderSensitive() && q.Loader.Filters() {
		vq.Loaders = []string{string(q.Loader)}
	}

	versions, err := r.client.GetVersions(ctx, r.ref(p), vq)
	r.pause(ctx)
	if err != nil {
		r.record(ctx, p.Label(), p.Origin(), "list versions", err)
		return nil
	}

	arts := make([]project.Artifact, 0, len(versions))
	for i := range versions {
		v := &versions[i]
		f := v.PrimaryFile()
		if f == nil {
			continue
		}
		size := f.Size
		if size <= 0 {
			size = project.SizeUnknown
		}
		arts = append(arts, project.Artifact{
			FileName:     f.Filename,
			URL:          f.URL,
			Size:         size,
			GameVersions: v.GameVersions,
			Loaders:      v.Loaders,
			Published:    parseTime(v.DatePublished),
		})
	}
	return newestFirst(arts)
}

// ListDeclaredVersions implements [Registry].
func (r *Modrinth) ListDeclaredVersions(ctx context.Context, p *project.Project) []string {
	versions, err := r.client.GetVersions(ctx, r.ref(p), modrinth.VersionQuery{})
	r.pause(ctx)
	if err != nil {
		r.record(ctx, p.Label(), p.Origin(), "list versions", err)
		return nil
	}
	var out []string
	for _, v := range versions {
		out = append(out, v.GameVersions...)
	}
	return dedupe(out)
}

// SearchByName implements [Registry].
func (r *Modrinth) SearchByName(ctx context.Context, name string, c project.Category) []project.Project {
	types := []string{string(c)}
	if c == "" {
		types = []string{string(project.Mod), string(project.ResourcePack)}
	}
	hits, err := r.client.Search(ctx, name, types, mrSearchLimit)
	r.pause(ctx)
	if err != nil {
		r.record(ctx, name, name, fmt.Sprintf("search by name %q", name), err)
		return nil
	}
	out := make([]project.Project, 0, len(hits))
	for _, h := range hits {
		c := project.Category(h.ProjectType)
		out = append(out, project.Project{
			Source:   project.Modrinth,
			ID:       h.ProjectID,
			Slug:     h.Slug,
			Name:     h.Title,
			Category: c,
			URL:      project.ModrinthPage(c, h.Slug),
		})
	}
	return out
}

// Open implements [Registry].
func (r *Modrinth) Open(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	return r.client.Stream(ctx, url)
}

func (r *Modrinth) ref(p *project.Project) string {
	if p.ID != "" {
		return p.ID
	}
	return p.Slug
}

func mrProject(p *modrinth.Project) *project.Project {
	c := project.Category(p.ProjectType)
	out := &project.Project{
		Source:   project.Modrinth,
		ID:       p.ID,
		Slug:     p.Slug,
		Name:     p.Title,
		Category: c,
		URL:      project.ModrinthPage(c, p.Slug),
	}
	if out.ID == "" {
		out.ID = p.Slug
	}
	for _, l := range []string{p.SourceURL, p.IssuesURL, p.WikiURL, p.DiscordURL} {
		if l != "" {
			out.Links = append(out.Links, l)
		}
	}
	for _, d := range p.DonationURLs {
		if d.URL != "" {
			out.Links = append(out.Links, d.URL)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(p.ExternalResources)) {
		if l := p.ExternalResources[k]; l != "" {
			out.Links = append(out.Links, l)
		}
	}
	return out
}

// mrEdges collects the relations declared by the newest version of each
// loader set. versions must be newest first, as the API returns them.
func mrEdges(from string, versions []modrinth.Version) []project.Edge {
	var edges []project.Edge
	seenLoaders := make(map[string]bool)
	seen := make(map[project.Edge]bool)
	for _, v := range versions {
		key := strings.Join(slices.Sorted(slices.Values(v.Loaders)), ",")
		if seenLoaders[key] {
			continue
		}
		seenLoaders[key] = true
		for _, d := range v.Dependencies {
			e := project.Edge{From: from, To: d.ProjectID, Kind: mrRelation(d.DependencyType)}
			if d.ProjectID == "" || d.ProjectID == from || seen[e] {
				continue
			}
			seen[e] = true
			edges = append(edges, e)
		}
	}
	return edges
}

func mrRelation(t string) project.EdgeKind {
	switch t {
	case modrinth.DependencyRequired:
		return project.Required
	case modrinth.DependencyOptional:
		return project.Optional
	case modrinth.DependencyEmbedded:
		return project.Embedded
	case modrinth.DependencyIncompatible:
		return project.Incompatible
	}
	return project.Other
}
