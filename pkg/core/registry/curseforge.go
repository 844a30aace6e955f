package registry

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/modfetch/pkg/core/ledger"
	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/integrations"
	"github.com/matzehuels/modfetch/pkg/integrations/curseforge"
)

const (
	cfFilteredPageSize = 50
	cfAllPageSize      = 200
	cfVersionsPageSize = 500
	cfSearchPageSize   = 5
	cfSortPopularity   = 2
)

// CurseForge adapts the CurseForge API to [Registry].
type CurseForge struct {
	base
	client *curseforge.Client
}

// NewCurseForge builds an adapter bound to one run's ledger.
func NewCurseForge(c *curseforge.Client, l *ledger.Ledger, opts Options) *CurseForge {
	return &CurseForge{base: newBase(project.CurseForge, l, opts), client: c}
}

// SearchBySlug implements [Registry]. CurseForge's slug filter is loose, so
// the returned slug is verified case-insensitively.
func (r *CurseForge) SearchBySlug(ctx context.Context, slug string, c project.Category) (*project.Project, bool) {
	origin := project.CurseForgePage(c, slug)
	class := c.CurseForgeClass()
	call := fmt.Sprintf("search by slug %q (class %d)", slug, class)
	if class == 0 {
		r.record(ctx, slug, origin, call, fmt.Errorf("%w: category %q has no CurseForge class", integrations.ErrNotFound, c))
		return nil, false
	}

	mods, err := r.client.Search(ctx, curseforge.SearchParams{ClassID: class, Slug: slug})
	r.pause(ctx)
	if err != nil {
		r.record(ctx, slug, origin, call, err)
		return nil, false
	}
	for i := range mods {
		if strings.EqualFold(mods[i].Slug, slug) {
			return cfProject(&mods[i]), true
		}
	}
	r.record(ctx, slug, origin, call, nil)
	return nil, false
}

// GetProject implements [Registry].
func (r *CurseForge) GetProject(ctx context.Context, id string) (*project.Project, bool) {
	name := "CurseForge project " + id
	origin := project.Key(project.CurseForge, id)
	call := "get project " + id

	n, err := strconv.Atoi(id)
	if err != nil {
		r.record(ctx, name, origin, call, fmt.Errorf("%w: invalid id %q", integrations.ErrNotFound, id))
		return nil, false
	}
	mod, err := r.client.GetMod(ctx, n)
	r.pause(ctx)
	if err != nil {
		r.record(ctx, name, origin, call, err)
		return nil, false
	}
	return cfProject(mod), true
}

// ListArtifacts implements [Registry]. The loader filter is only sent for
// loader-sensitive categories.
func (r *CurseForge) ListArtifacts(ctx context.Context, p *project.Project, q Query) []project.Artifact {
	n, err := strconv.Atoi(p.ID)
	if err != nil {
		r.record(ctx, p.Label(), p.Origin(), "list files", fmt.Errorf("%w: invalid id %q", integrations.ErrNotFound, p.ID))
		return nil
	}

	fq := curseforge.FilesQuery{GameVersion: q.Version, PageSize: cfAllPageSize}
	if q.Version != "" {
		fq.PageSize = cfFilteredPageSize
	}
	if p.Category.LoaderSensitive() {
		fq.ModLoaderType = q.Loader.CurseForgeType()
	}

	files, err := r.client.GetFiles(ctx, n, fq)
	r.pause(ctx)
	if err != nil {
		r.record(ctx, p.Label(), p.Origin(), "list files", err)
		return nil
	}

	arts := make([]project.Artifact, 0, len(files))
	for i := range files {
		arts = append(arts, cfArtifact(&files[i]))
	}
	return newestFirst(arts)
}

// ListDeclaredVersions implements [Registry].
func (r *CurseForge) ListDeclaredVersions(ctx context.Context, p *project.Project) []string {
	n, err := strconv.Atoi(p.ID)
	if err != nil {
		r.record(ctx, p.Label(), p.Origin(), "list versions", fmt.Errorf("%w: invalid id %q", integrations.ErrNotFound, p.ID))
		return nil
	}
	files, err := r.client.GetFiles(ctx, n, curseforge.FilesQuery{PageSize: cfVersionsPageSize})
	r.pause(ctx)
	if err != nil {
		r.record(ctx, p.Label(), p.Origin(), "list versions", err)
		return nil
	}

	var versions []string
	for i := range files {
		v, _ := splitGameVersions(files[i].GameVersions)
		versions = append(versions, v...)
	}
	return dedupe(versions)
}

// SearchByName implements [Registry]. Results are the registry's top hits
// by popularity; exact-title filtering is the caller's job.
func (r *CurseForge) SearchByName(ctx context.Context, name string, c project.Category) []project.Project {
	class := c.CurseForgeClass()
	if class == 0 {
		return nil
	}
	mods, err := r.client.Search(ctx, curseforge.SearchParams{
		ClassID:      class,
		SearchFilter: name,
		SortField:    cfSortPopularity,
		PageSize:     cfSearchPageSize,
	})
	r.pause(ctx)
	if err != nil {
		r.record(ctx, name, name, fmt.Sprintf("search by name %q", name), err)
		return nil
	}
	out := make([]project.Project, 0, len(mods))
	for i := range mods {
		out = append(out, *cfProject(&mods[i]))
	}
	return out
}

// Open implements [Registry].
func (r *CurseForge) Open(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	return r.client.Stream(ctx, url)
}

func cfProject(m *curseforge.Mod) *project.Project {
	id := strconv.Itoa(m.ID)
	c := project.CategoryFromCurseForgeClass(m.ClassID)
	p := &project.Project{
		Source:   project.CurseForge,
		ID:       id,
		Slug:     m.Slug,
		Name:     m.Name,
		Category: c,
		URL:      m.Links.WebsiteURL,
	}
	if p.URL == "" && m.Slug != "" {
		p.URL = project.CurseForgePage(c, m.Slug)
	}
	for _, l := range []string{m.Links.WebsiteURL, m.Links.WikiURL, m.Links.IssuesURL, m.Links.SourceURL} {
		if l != "" {
			p.Links = append(p.Links, l)
		}
	}

	// Relations live on files; some records also carry them at the top level.
	deps := append([]curseforge.Dependency(nil), m.Dependencies...)
	for _, f := range m.LatestFiles {
		deps = append(deps, f.Dependencies...)
	}
	seen := make(map[project.Edge]bool)
	for _, d := range deps {
		e := project.Edge{From: id, To: strconv.Itoa(d.ModID), Kind: cfRelation(d.RelationType)}
		if d.ModID == 0 || seen[e] {
			continue
		}
		seen[e] = true
		p.Dependencies = append(p.Dependencies, e)
	}
	return p
}

func cfRelation(t int) project.EdgeKind {
	switch t {
	case curseforge.RelationRequiredDependency:
		return project.Required
	case curseforge.RelationEmbeddedLibrary, curseforge.RelationInclude:
		return project.Embedded
	case curseforge.RelationOptionalDependency:
		return project.Optional
	case curseforge.RelationTool:
		return project.Tool
	case curseforge.RelationIncompatible:
		return project.Incompatible
	}
	return project.Other
}

func cfArtifact(f *curseforge.File) project.Artifact {
	versions, loaders := splitGameVersions(f.GameVersions)
	size := f.FileLength
	if size <= 0 {
		size = project.SizeUnknown
	}
	return project.Artifact{
		FileName:     f.FileName,
		URL:          f.DownloadURL,
		Size:         size,
		GameVersions: versions,
		Loaders:      loaders,
		Published:    parseTime(f.FileDate),
	}
}

// cfLoaderTags are the loader names CurseForge mixes into gameVersions.
var cfLoaderTags = map[string]bool{
	"forge": true, "fabric": true, "quilt": true, "neoforge": true,
	"liteloader": true, "rift": true, "risugami's modloader": true,
}

// cfEnvironmentTags are side markers that are neither versions nor loaders.
var cfEnvironmentTags = map[string]bool{"client": true, "server": true}

// splitGameVersions separates real game versions from loader tags.
func splitGameVersions(in []string) (versions, loaders []string) {
	for _, v := range in {
		lower := strings.ToLower(v)
		switch {
		case cfLoaderTags[lower]:
			loaders = append(loaders, lower)
		case cfEnvironmentTags[lower]:
		default:
			versions = append(versions, v)
		}
	}
	return versions, loaders
}
