package pipeline

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modfetch/pkg/core/equiv"
	"github.com/matzehuels/modfetch/pkg/core/ledger"
	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/core/registry"
	"github.com/matzehuels/modfetch/pkg/core/resolve"
	"github.com/matzehuels/modfetch/pkg/errors"
	"github.com/matzehuels/modfetch/pkg/integrations"
	"github.com/matzehuels/modfetch/pkg/integrations/curseforge"
	"github.com/matzehuels/modfetch/pkg/integrations/modrinth"
	"github.com/matzehuels/modfetch/pkg/source"
)

// RegistryFactory builds the adapters of one run, bound to its ledger.
type RegistryFactory func(l *ledger.Ledger, opts registry.Options) registry.Set

// Runner executes workflows. It holds only what runs share (API clients,
// the seed reader and the logger) and is safe for concurrent use; each
// call gets its own [Run].
type Runner struct {
	registries RegistryFactory
	reader     *source.Reader
	Logger     *log.Logger
}

// NewRunner creates a runner over the CurseForge and Modrinth API clients.
// Seed pages given as URLs are fetched with pages.
func NewRunner(cf *curseforge.Client, mr *modrinth.Client, pages *integrations.Client, logger *log.Logger) *Runner {
	factory := func(l *ledger.Ledger, opts registry.Options) registry.Set {
		return registry.NewSet(
			registry.NewCurseForge(cf, l, opts),
			registry.NewModrinth(mr, l, opts),
		)
	}
	return NewRunnerWith(factory, source.NewReader(nil, pages), logger)
}

// NewRunnerWith creates a runner from a registry factory and seed reader.
func NewRunnerWith(factory RegistryFactory, reader *source.Reader, logger *log.Logger) *Runner {
	if reader == nil {
		reader = source.NewReader(nil, nil)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{registries: factory, reader: reader, Logger: logger}
}

// start validates opts and opens a run.
func (r *Runner) start(ctx context.Context, workflow, seed string, opts *Options) (*Run, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return r.newRun(ctx, workflow, seed, *opts)
}

// SeedPage fetches every CurseForge project linked from an HTML page,
// given as a local file or a URL. Dependencies are not followed.
func (r *Runner) SeedPage(ctx context.Context, ref string, opts Options) (*Result, error) {
	run, err := r.start(ctx, WorkflowPage, ref, &opts)
	if err != nil {
		return nil, err
	}

	page, err := r.reader.Read(ctx, ref)
	if err != nil {
		return run.fail(ctx, err)
	}
	refs, err := source.CurseForgeLinks(page)
	if err != nil {
		return run.fail(ctx, err)
	}
	if len(refs) == 0 {
		return run.fail(ctx, errors.New(errors.ErrCodeSeedUnreadable, "no CurseForge project links in %s", ref))
	}
	run.Logger.Info("found project links", "count", len(refs))

	cf := run.registry(project.CurseForge)
	var projects projectSet
	for _, ref := range refs {
		if p, ok := cf.SearchBySlug(ctx, ref.Slug, ref.Category); ok {
			projects.add(p)
		}
	}
	return run.finish(ctx, projects.list)
}

// Dependencies fetches one CurseForge project and everything it requires
// or embeds, transitively.
func (r *Runner) Dependencies(ctx context.Context, url string, opts Options) (*Result, error) {
	run, err := r.start(ctx, WorkflowDependencies, url, &opts)
	if err != nil {
		return nil, err
	}

	ref, ok := project.ParseURL(url)
	if !ok || ref.Source != project.CurseForge {
		return run.fail(ctx, errors.New(errors.ErrCodeInvalidInput, "not a CurseForge project URL: %s", url))
	}

	cf := run.registry(project.CurseForge)
	root, ok := cf.SearchBySlug(ctx, ref.Slug, ref.Category)
	if !ok {
		return run.finish(ctx, nil)
	}
	resolved := resolve.New(cf, run.Logger).Resolve(ctx, root.ID)
	return run.finish(ctx, resolved.Projects())
}

// Collection fetches the projects of a Modrinth collection page. Each
// project is taken from CurseForge when a counterpart exists there and
// from Modrinth otherwise.
func (r *Runner) Collection(ctx context.Context, url string, opts Options) (*Result, error) {
	run, err := r.start(ctx, WorkflowCollection, url, &opts)
	if err != nil {
		return nil, err
	}
	if !project.IsCollectionURL(url) {
		return run.fail(ctx, errors.New(errors.ErrCodeInvalidInput, "not a Modrinth collection URL: %s", url))
	}

	page, err := r.reader.Read(ctx, url)
	if err != nil {
		return run.fail(ctx, err)
	}
	refs, err := source.CollectionRefs(page)
	if err != nil {
		return run.fail(ctx, err)
	}
	if len(refs) == 0 {
		return run.fail(ctx, errors.New(errors.ErrCodeSeedUnreadable, "no projects found on collection page %s", url))
	}
	run.Logger.Info("found collection projects", "count", len(refs))

	mr := run.registry(project.Modrinth)
	var projects projectSet
	for _, ref := range refs {
		p, ok := mr.SearchBySlug(ctx, ref.Slug, ref.Category)
		if !ok {
			continue
		}
		if cf, ok := run.Finder.Counterpart(ctx, p, project.CurseForge); ok {
			run.Logger.Debug("using CurseForge counterpart", "slug", ref.Slug, "id", cf.ID)
			p = cf
		}
		projects.add(p)
	}
	return run.finish(ctx, projects.list)
}

// Lookup fetches a single project named by a CurseForge URL, a Modrinth
// URL or a plain title. The project is looked up on both registries; when
// both have it the run's chooser decides. An explicit game version is
// required.
func (r *Runner) Lookup(ctx context.Context, identifier string, opts Options) (*Result, error) {
	run, err := r.start(ctx, WorkflowLookup, identifier, &opts)
	if err != nil {
		return nil, err
	}
	if run.Target.IsBest() {
		return run.fail(ctx, errors.New(errors.ErrCodeInvalidInput, "lookup needs an explicit game version, not %q", project.BestVersion))
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return run.fail(ctx, errors.New(errors.ErrCodeInvalidInput, "empty identifier"))
	}

	var projects projectSet
	if p, ok := run.lookup(ctx, identifier, project.Mod); ok {
		projects.add(p)
	}
	return run.finish(ctx, projects.list)
}

// lookup finds one project by URL or title on both registries and settles
// ambiguity through the broker.
func (run *Run) lookup(ctx context.Context, identifier string, c project.Category) (*project.Project, bool) {
	var m equiv.Match
	if ref, ok := project.ParseURL(identifier); ok {
		p, ok := run.registry(ref.Source).SearchBySlug(ctx, ref.Slug, ref.Category)
		if !ok {
			return nil, false
		}
		m = run.Finder.From(ctx, p)
	} else {
		m = run.Finder.Both(ctx, identifier, c)
	}
	return run.choose(ctx, m, identifier, identifier)
}

// Manifest fetches the projects listed in a TOML manifest, plus their
// required dependencies. The manifest's version and loader apply unless
// opts sets them.
func (r *Runner) Manifest(ctx context.Context, path string, opts Options) (*Result, error) {
	data, err := r.reader.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	m, err := source.ParseManifest(data)
	if err != nil {
		return nil, err
	}
	if opts.Version == "" {
		opts.Version = m.Version
	}
	if opts.Loader == "" {
		opts.Loader = project.Loader(m.Loader)
	}

	run, err := r.start(ctx, WorkflowManifest, path, &opts)
	if err != nil {
		return nil, err
	}

	seeds := make(map[project.Source][]string)
	for _, e := range m.Projects {
		var (
			p  *project.Project
			ok bool
		)
		if ref, isRef := e.Ref(); isRef {
			p, ok = run.registry(ref.Source).SearchBySlug(ctx, ref.Slug, ref.Category)
		} else {
			c := project.Category(strings.ToLower(e.Category))
			if c == "" {
				c = project.Mod
			}
			p, ok = run.lookup(ctx, e.Identifier(), c)
		}
		if ok {
			seeds[p.Source] = append(seeds[p.Source], p.ID)
		}
	}

	var projects projectSet
	for _, s := range []project.Source{project.CurseForge, project.Modrinth} {
		if len(seeds[s]) == 0 {
			continue
		}
		for _, p := range resolve.New(run.registry(s), run.Logger).Resolve(ctx, seeds[s]...).Projects() {
			projects.add(p)
		}
	}
	return run.finish(ctx, projects.list)
}

// projectSet collects projects in discovery order, once per key.
type projectSet struct {
	seen map[string]bool
	list []*project.Project
}

func (s *projectSet) add(p *project.Project) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[p.Key()] {
		return
	}
	s.seen[p.Key()] = true
	s.list = append(s.list, p)
}
