// Package match picks the one artifact of a project that fits a run's
// target game version and loader.
//
// # Tiers
//
// The search widens in three steps and stops at the first step that yields
// a compatible artifact:
//
//  1. server-side filter on version and loader
//  2. the same request without the loader filter
//  3. the unfiltered artifact list
//
// Every tier applies the same client-side rules ([project.Compatible]), so a
// looser server filter never loosens what is accepted. Step 2 is skipped
// when there is no loader filter to drop. Within a tier the newest artifact
// by publish time wins; there is no secondary scoring.
package match

import (
	"context"
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modfetch/pkg/core/ledger"
	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/core/registry"
	"github.com/matzehuels/modfetch/pkg/errors"
)

// Matcher selects artifacts. It is safe for concurrent use as long as the
// registries it is handed are.
type Matcher struct {
	mode   project.MatchMode
	ledger *ledger.Ledger
	log    *log.Logger
}

// New creates a Matcher recording misses on l. A nil logger discards output.
func New(mode project.MatchMode, l *ledger.Ledger, logger *log.Logger) *Matcher {
	if mode == "" {
		mode = project.MatchPrefix
	}
	if l == nil {
		l = ledger.New()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Matcher{mode: mode, ledger: l, log: logger}
}

// Mode returns the version comparison mode in use.
func (m *Matcher) Mode() project.MatchMode { return m.mode }

// Best returns the newest artifact of p compatible with t. When no tier
// yields one, a NO_COMPATIBLE_ARTIFACT item citing t is recorded and ok is
// false.
func (m *Matcher) Best(ctx context.Context, r registry.Registry, p *project.Project, t project.Target) (project.Artifact, bool) {
	for i, q := range tiers(p, t) {
		if i > 0 {
			m.log.Debug("widening artifact search", "project", p.Label(), "tier", i+1)
		}
		if a, ok := m.pick(r.ListArtifacts(ctx, p, q), p.Category, t); ok {
			return a, true
		}
	}
	m.ledger.Addf(errors.ErrCodeNoCompatibleArtifact, p.Label(), p.Origin(),
		"no compatible %s file (%s)", r.Source().Display(), t)
	return project.Artifact{}, false
}

// tiers returns the queries to try in order.
func tiers(p *project.Project, t project.Target) []registry.Query {
	out := make([]registry.Query, 0, 3)
	if p.Category.LoaderSensitive() && t.Loader.Filters() {
		out = append(out, registry.Query{Version: t.Version, Loader: t.Loader})
	}
	out = append(out, registry.Query{Version: t.Version})
	return append(out, registry.Query{})
}

// pick returns the newest compatible artifact.
func (m *Matcher) pick(arts []project.Artifact, c project.Category, t project.Target) (project.Artifact, bool) {
	var matches []project.Artifact
	for _, a := range arts {
		if project.Compatible(m.mode, t, c, a) {
			matches = append(matches, a)
		}
	}
	if len(matches) == 0 {
		return project.Artifact{}, false
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Published.After(matches[j].Published)
	})
	return matches[0], true
}
