// Package registry adapts the CurseForge and Modrinth APIs to one capability
// set, [Registry], that the resolution components are written against.
//
// # Failure model
//
// Adapter methods never return errors. An HTTP error, a transport failure
// and an application-level "no data" answer all surface as not-found
// (false, or an empty slice), and each is appended to the run's ledger with
// a reason naming the call and the registry. A failed lookup therefore
// never aborts a run, but it is never silently lost either. The one
// exception is a speculative lookup made under a [Quiet] context, whose
// not-found answer is expected and only logged.
//
// # Pacing
//
// Every metadata call is followed by a short, context-aware pause
// ([Options.Delay]) to spread load on the registries during resolution.
// Downloads through [Registry.Open] are never paced.
package registry

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modfetch/pkg/core/ledger"
	"github.com/matzehuels/modfetch/pkg/core/project"
	modfetcherrors "github.com/matzehuels/modfetch/pkg/errors"
	"github.com/matzehuels/modfetch/pkg/integrations"
)

// DefaultDelay is the pause between metadata calls.
const DefaultDelay = 50 * time.Millisecond

// Registry is the capability set every registry adapter implements.
// Implementations must be safe for concurrent use.
type Registry interface {
	// Source names the registry.
	Source() project.Source

	// SearchBySlug finds the project whose slug equals slug
	// (case-insensitively) within the category.
	SearchBySlug(ctx context.Context, slug string, c project.Category) (*project.Project, bool)

	// GetProject fetches a project, with its dependency edges, by id.
	GetProject(ctx context.Context, id string) (*project.Project, bool)

	// ListArtifacts lists the project's artifacts newest first. Empty
	// fields in q disable the matching server-side filter.
	ListArtifacts(ctx context.Context, p *project.Project, q Query) []project.Artifact

	// ListDeclaredVersions returns every game version the project's
	// artifacts declare, deduplicated.
	ListDeclaredVersions(ctx context.Context, p *project.Project) []string

	// SearchByName runs a name search restricted to the category.
	SearchByName(ctx context.Context, name string, c project.Category) []project.Project

	// Open starts downloading an artifact. The returned size is the
	// Content-Length, or -1.
	Open(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// Query carries the server-side filters for [Registry.ListArtifacts].
type Query struct {
	Version string
	Loader  project.Loader
}

// Options configures an adapter.
type Options struct {
	// Delay is the pause after each metadata call. Zero disables pacing.
	Delay time.Duration
	// Logger receives debug output. Nil discards it.
	Logger *log.Logger
}

// Set holds one adapter per registry for a run.
type Set map[project.Source]Registry

// NewSet indexes regs by their source.
func NewSet(regs ...Registry) Set {
	s := make(Set, len(regs))
	for _, r := range regs {
		s[r.Source()] = r
	}
	return s
}

// For returns the adapter for source, if the set has one.
func (s Set) For(source project.Source) (Registry, bool) {
	r, ok := s[source]
	return r, ok
}

// DefaultOptions returns the production pacing with logging discarded.
func DefaultOptions() Options {
	return Options{Delay: DefaultDelay}
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.New(io.Discard)
}

// base holds what both adapters share: the run ledger and pacing.
type base struct {
	source project.Source
	ledger *ledger.Ledger
	delay  time.Duration
	log    *log.Logger
}

func newBase(s project.Source, l *ledger.Ledger, opts Options) base {
	if l == nil {
		l = ledger.New()
	}
	return base{source: s, ledger: l, delay: opts.Delay, log: opts.logger()}
}

func (b *base) Source() project.Source { return b.source }

// pause waits out the pacing delay unless ctx ends first.
func (b *base) pause(ctx context.Context) {
	if b.delay <= 0 {
		return
	}
	t := time.NewTimer(b.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// record appends a failed call to the ledger. A nil err means the
// registry answered without data. Not-found answers under a [Quiet]
// context are only logged.
func (b *base) record(ctx context.Context, name, origin, call string, err error) {
	kind := modfetcherrors.ErrCodeNotFound
	reason := "no data"
	if err != nil {
		reason = err.Error()
		if !errors.Is(err, integrations.ErrNotFound) {
			kind = modfetcherrors.ErrCodeUnreachable
		}
	}
	b.log.Debug("registry call failed", "registry", b.source, "call", call, "reason", reason)
	if kind == modfetcherrors.ErrCodeNotFound && IsQuiet(ctx) {
		return
	}
	b.ledger.Addf(kind, name, origin, "%s %s: %s", b.source.Display(), call, reason)
}

type quietKey struct{}

// Quiet marks ctx for speculative lookups: adapters called with it do not
// put not-found answers on the ledger. Transport failures are still
// recorded.
func Quiet(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietKey{}, true)
}

// IsQuiet reports whether ctx was marked with [Quiet].
func IsQuiet(ctx context.Context) bool {
	quiet, _ := ctx.Value(quietKey{}).(bool)
	return quiet
}

// newestFirst orders artifacts by publish time, newest first. Artifacts
// with equal timestamps keep registry order.
func newestFirst(arts []project.Artifact) []project.Artifact {
	sort.SliceStable(arts, func(i, j int) bool {
		return arts[i].Published.After(arts[j].Published)
	})
	return arts
}

// dedupe keeps the first occurrence of each string.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
