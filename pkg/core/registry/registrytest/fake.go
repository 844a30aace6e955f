// Package registrytest provides an in-memory [registry.Registry] for tests.
package registrytest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/matzehuels/modfetch/pkg/core/ledger"
	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/core/registry"
	"github.com/matzehuels/modfetch/pkg/errors"
)

// Fake is an in-memory registry. Populate it with [Fake.AddProject],
// [Fake.AddArtifacts] and [Fake.AddFile]; it records every call so tests
// can assert on fetch counts and tier fallbacks.
//
// ListArtifacts emulates server-side filtering: a version filter keeps
// artifacts declaring exactly that version, a loader filter (sent for
// loader-sensitive categories only) keeps artifacts declaring that loader.
type Fake struct {
	source project.Source
	ledger *ledger.Ledger

	mu        sync.Mutex
	projects  map[string]*project.Project
	slugs     map[string]string
	artifacts map[string][]project.Artifact
	versions  map[string][]string
	files     map[string][]byte
	openErr   map[string]error
	calls     map[string]int
	queries   []registry.Query
}

var _ registry.Registry = (*Fake)(nil)

// New returns an empty fake for source. Misses are recorded on l.
func New(source project.Source, l *ledger.Ledger) *Fake {
	if l == nil {
		l = ledger.New()
	}
	return &Fake{
		source:    source,
		ledger:    l,
		projects:  make(map[string]*project.Project),
		slugs:     make(map[string]string),
		artifacts: make(map[string][]project.Artifact),
		versions:  make(map[string][]string),
		files:     make(map[string][]byte),
		openErr:   make(map[string]error),
		calls:     make(map[string]int),
	}
}

// SetLedger rebinds the fake to a run's ledger.
func (f *Fake) SetLedger(l *ledger.Ledger) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledger = l
	return f
}

// AddProject registers p. Source defaults to the fake's source.
func (f *Fake) AddProject(p *project.Project) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.Source == "" {
		p.Source = f.source
	}
	f.projects[p.ID] = p
	if p.Slug != "" {
		f.slugs[strings.ToLower(p.Slug)] = p.ID
	}
	return f
}

// AddArtifacts appends artifacts to project id, in the order the registry
// would return them.
func (f *Fake) AddArtifacts(id string, arts ...project.Artifact) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artifacts[id] = append(f.artifacts[id], arts...)
	return f
}

// SetVersions sets the declared versions of project id.
func (f *Fake) SetVersions(id string, versions ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions[id] = versions
	return f
}

// AddFile makes url downloadable with the given content.
func (f *Fake) AddFile(url string, content []byte) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[url] = content
	return f
}

// FailOpen makes downloads of url fail with err.
func (f *Fake) FailOpen(url string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr[url] = err
	return f
}

// Calls returns how often method was called with arg, e.g.
// Calls("GetProject", "3").
func (f *Fake) Calls(method, arg string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method+":"+arg]
}

// Queries returns every ListArtifacts query in call order.
func (f *Fake) Queries() []registry.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]registry.Query(nil), f.queries...)
}

func (f *Fake) count(method, arg string) {
	f.calls[method+":"+arg]++
}

func (f *Fake) miss(ctx context.Context, name, origin, call string) {
	if registry.IsQuiet(ctx) {
		return
	}
	f.ledger.Addf(errors.ErrCodeNotFound, name, origin, "%s %s: no data", f.source.Display(), call)
}

// Source implements [registry.Registry].
func (f *Fake) Source() project.Source { return f.source }

// SearchBySlug implements [registry.Registry].
func (f *Fake) SearchBySlug(ctx context.Context, slug string, c project.Category) (*project.Project, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("SearchBySlug", slug)
	if id, ok := f.slugs[strings.ToLower(slug)]; ok {
		return f.projects[id], true
	}
	f.miss(ctx, slug, slug, fmt.Sprintf("search by slug %q", slug))
	return nil, false
}

// GetProject implements [registry.Registry].
func (f *Fake) GetProject(ctx context.Context, id string) (*project.Project, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("GetProject", id)
	if p, ok := f.projects[id]; ok {
		return p, true
	}
	f.miss(ctx, id, project.Key(f.source, id), "get project "+id)
	return nil, false
}

// ListArtifacts implements [registry.Registry].
func (f *Fake) ListArtifacts(_ context.Context, p *project.Project, q registry.Query) []project.Artifact {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("ListArtifacts", p.ID)
	f.queries = append(f.queries, q)

	var out []project.Artifact
	for _, a := range f.artifacts[p.ID] {
		if q.Version != "" && !contains(a.GameVersions, q.Version) {
			continue
		}
		if p.Category.LoaderSensitive() && q.Loader.Filters() && !contains(a.Loaders, string(q.Loader)) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// ListDeclaredVersions implements [registry.Registry].
func (f *Fake) ListDeclaredVersions(_ context.Context, p *project.Project) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("ListDeclaredVersions", p.ID)
	return append([]string(nil), f.versions[p.ID]...)
}

// SearchByName implements [registry.Registry]. Like the real registries it
// matches loosely: any project whose name contains the query.
func (f *Fake) SearchByName(_ context.Context, name string, c project.Category) []project.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("SearchByName", name)
	var out []project.Project
	for _, p := range f.projects {
		if c != "" && p.Category != c {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(name)) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Open implements [registry.Registry].
func (f *Fake) Open(_ context.Context, url string) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("Open", url)
	if err, ok := f.openErr[url]; ok {
		return nil, 0, err
	}
	data, ok := f.files[url]
	if !ok {
		return nil, 0, fmt.Errorf("no file at %s", url)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
