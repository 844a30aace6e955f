package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/matzehuels/modfetch/pkg/core/acquire"
	"github.com/matzehuels/modfetch/pkg/core/bestversion"
	"github.com/matzehuels/modfetch/pkg/core/choice"
	"github.com/matzehuels/modfetch/pkg/core/equiv"
	"github.com/matzehuels/modfetch/pkg/core/ledger"
	"github.com/matzehuels/modfetch/pkg/core/match"
	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/core/registry"
	"github.com/matzehuels/modfetch/pkg/errors"
	"github.com/matzehuels/modfetch/pkg/observability"
)

// lockName is the lock file kept in a destination while a run writes to it.
const lockName = ".modfetch.lock"

// Run is the state of one workflow execution. Nothing about a run lives
// outside it, so runs are independent of each other.
type Run struct {
	ID       string
	Workflow string
	Seed     string
	Target   project.Target
	Dest     string

	Ledger     *ledger.Ledger
	Registries registry.Set
	Broker     *choice.Broker
	Matcher    *match.Matcher
	Finder     *equiv.Finder
	Logger     *log.Logger

	opts  Options
	start time.Time
	stop  context.CancelFunc
}

// newRun wires a run: a fresh ledger, adapters bound to it and a broker
// served by the configured chooser.
func (r *Runner) newRun(ctx context.Context, workflow, seed string, opts Options) (*Run, error) {
	id := uuid.NewString()
	logger := opts.Logger.With("run", id[:8])
	l := ledger.New()
	regs := r.registries(l, registry.Options{Delay: opts.Delay, Logger: logger})
	for _, s := range []project.Source{project.CurseForge, project.Modrinth} {
		if _, ok := regs.For(s); !ok {
			return nil, errors.New(errors.ErrCodeInternal, "no %s registry configured", s.Display())
		}
	}

	run := &Run{
		ID:         id,
		Workflow:   workflow,
		Seed:       seed,
		Target:     opts.Target(),
		Dest:       opts.Dest,
		Ledger:     l,
		Registries: regs,
		Broker:     choice.NewBroker(opts.ChoiceTimeout),
		Matcher:    match.New(opts.MatchMode, l, logger),
		Finder:     equiv.New(regs, logger),
		Logger:     logger,
		opts:       opts,
		start:      time.Now(),
		stop:       func() {},
	}

	chooser := opts.Chooser
	if opts.Prefer != "" {
		chooser = choice.Prefer(opts.Prefer)
	}
	if chooser != nil {
		serveCtx, cancel := context.WithCancel(ctx)
		go run.Broker.Serve(serveCtx, chooser)
		run.stop = cancel
	}

	logger.Info("starting run", "workflow", workflow, "seed", seed, "target", run.Target)
	observability.Pipeline().OnResolveStart(ctx, workflow, seed)
	return run, nil
}

// registry returns the run's adapter for source. Both registries are
// always present; newRun checks.
func (run *Run) registry(source project.Source) registry.Registry {
	return run.Registries[source]
}

// fail ends a run that could not get past its entry step. The result still
// carries whatever the ledger holds.
func (run *Run) fail(ctx context.Context, err error) (*Result, error) {
	run.stop()
	run.Logger.Error("run failed", "err", err)
	observability.Pipeline().OnResolveComplete(ctx, run.Workflow, 0, time.Since(run.start), err)
	return run.report(run.result()), err
}

// abort ends a run that failed after resolution. Misses recorded so far stay
// on the returned result.
func (run *Run) abort(res *Result, err error) (*Result, error) {
	run.Logger.Error("run failed", "err", err)
	return run.report(res), err
}

func (run *Run) result() *Result {
	return &Result{RunID: run.ID, Workflow: run.Workflow, Seed: run.Seed, Target: run.Target}
}

// finish takes resolved projects through selection, matching and
// acquisition and assembles the result.
func (run *Run) finish(ctx context.Context, projects []*project.Project) (*Result, error) {
	defer run.stop()
	observability.Pipeline().OnResolveComplete(ctx, run.Workflow, len(projects), time.Since(run.start), nil)
	run.Logger.Info("resolved projects", "count", len(projects))

	res := run.result()
	if len(projects) == 0 {
		return run.report(res), nil
	}

	if run.Target.IsBest() {
		sel, err := bestversion.New(run.Registries, run.Logger).Select(ctx, projects)
		if err != nil {
			return run.abort(res, errors.Wrap(errors.ErrCodeInvalidInput, err, "select game version"))
		}
		observability.Pipeline().OnVersionSelected(ctx, sel.Version, sel.Support, sel.Projects)
		run.Target.Version = sel.Version
		res.Target = run.Target
		res.Selection = &sel
	}

	for _, p := range projects {
		art, ok := run.Matcher.Best(ctx, run.registry(p.Source), p, run.Target)
		if ok {
			res.Resolved = append(res.Resolved, project.Resolved{Project: p, Artifact: art})
		}
	}
	if len(res.Resolved) == 0 {
		return run.report(res), nil
	}

	unlock, err := lockDest(run.opts.Fs, run.Dest)
	if err != nil {
		return run.abort(res, err)
	}
	defer unlock()

	res.Outcomes = acquire.New(run.opts.Fs, run.Dest, run.Registries, run.Ledger, acquire.Options{
		Workers:  run.opts.Workers,
		Progress: run.opts.Progress,
		Logger:   run.Logger,
	}).Run(ctx, res.Resolved)

	return run.report(res), nil
}

func (run *Run) report(res *Result) *Result {
	res.Missed = run.Ledger.Report()
	res.Duration = time.Since(run.start)
	run.Logger.Info("run complete", "resolved", len(res.Resolved), "missed", len(res.Missed), "duration", res.Duration)
	return res
}

// lockDest takes an exclusive lock on dest so two runs never write into
// the same directory at once. Locks are only taken on the OS filesystem.
func lockDest(fs afero.Fs, dest string) (func(), error) {
	if _, ok := fs.(*afero.OsFs); !ok {
		return func() {}, nil
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeWriteFailure, err, "create destination %s", dest)
	}
	lock := flock.New(filepath.Join(dest, lockName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeWriteFailure, err, "lock destination %s", dest)
	}
	if !locked {
		return nil, errors.New(errors.ErrCodeInvalidInput, "destination %s is in use by another run", dest)
	}
	return func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}, nil
}

// choose settles an ambiguous match through the broker. A declined or
// unanswered request is recorded on the ledger.
func (run *Run) choose(ctx context.Context, m equiv.Match, name, origin string) (*project.Project, bool) {
	if p, ok := m.Only(); ok {
		return p, true
	}
	if !m.Found() {
		run.Ledger.Addf(errors.ErrCodeNotFound, name, origin, "not found on CurseForge or Modrinth")
		return nil, false
	}

	options := []choice.Option{
		{Label: m.CurseForge.Label(), Source: project.CurseForge, URL: m.CurseForge.URL},
		{Label: m.Modrinth.Label(), Source: project.Modrinth, URL: m.Modrinth.URL},
	}
	run.Logger.Info("found on both registries", "name", name)
	i, err := run.Broker.Ask(ctx, fmt.Sprintf("Choose source for %q", name), options)
	switch {
	case err == nil:
		p := m.Get(options[i].Source)
		run.Logger.Info("source chosen", "name", name, "registry", p.Source)
		return p, true
	case stderrors.Is(err, choice.ErrChoiceTimeout):
		run.Ledger.Addf(errors.ErrCodeTimeout, name, origin, "no source chosen within %s", run.Broker.Timeout())
	default:
		run.Ledger.Addf(errors.ErrCodeAmbiguousSource, name, origin, "found on CurseForge and Modrinth, no source chosen: %v", err)
	}
	return nil, false
}
