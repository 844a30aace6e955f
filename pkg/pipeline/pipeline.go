// Package pipeline runs modfetch's workflows end to end.
//
// Every workflow has the same shape:
//
//  1. Seed: read the entry point (a page, a URL, a name, a manifest)
//  2. Resolve: turn it into a set of projects, following dependencies
//     where the workflow calls for it
//  3. Select: pick the target game version when "best" was asked for
//  4. Match: choose one compatible artifact per project
//  5. Acquire: download the artifacts into the destination
//
// Only step 1, version selection and locking the destination can fail a
// run. Everything else is per project: a failure is recorded on the run's
// ledger and the run carries on. Once a run has started, the returned
// [Result] carries the deduplicated miss report even when an error is
// returned alongside it.
//
// # Usage
//
//	runner := pipeline.NewRunner(cfClient, mrClient, pageClient, logger)
//	result, err := runner.Dependencies(ctx, "https://www.curseforge.com/minecraft/mc-mods/create", pipeline.Options{
//	    Version: "1.20.1",
//	    Loader:  project.Forge,
//	    Dest:    "mods",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, item := range result.Missed {
//	    fmt.Println(item.Name, item.Reason)
//	}
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/matzehuels/modfetch/pkg/core/acquire"
	"github.com/matzehuels/modfetch/pkg/core/bestversion"
	"github.com/matzehuels/modfetch/pkg/core/choice"
	"github.com/matzehuels/modfetch/pkg/core/ledger"
	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/errors"
)

// Workflow names, as reported to hooks and in results.
const (
	WorkflowPage         = "page"
	WorkflowDependencies = "deps"
	WorkflowCollection   = "collection"
	WorkflowLookup       = "lookup"
	WorkflowManifest     = "manifest"
)

const (
	// DefaultVersion asks for the most widely supported game version.
	DefaultVersion = project.BestVersion

	// DefaultLoader is the loader used when none is given.
	DefaultLoader = project.Forge

	// DefaultDest is the destination directory when none is given.
	DefaultDest = "mods"
)

// Options configures one run.
type Options struct {
	// Version is the target game version, or "best".
	Version string `json:"version"`
	// Loader is the target mod loader.
	Loader project.Loader `json:"loader"`
	// Dest is the directory artifacts are written to.
	Dest string `json:"dest"`
	// Workers bounds concurrent downloads.
	Workers int `json:"workers,omitempty"`
	// Delay is the pause after each registry metadata call. Zero disables
	// pacing; it is never defaulted.
	Delay time.Duration `json:"delay,omitempty"`
	// ChoiceTimeout bounds how long an ambiguous lookup waits for a
	// decision.
	ChoiceTimeout time.Duration `json:"choice_timeout,omitempty"`
	// MatchMode selects the game version comparison rule.
	MatchMode project.MatchMode `json:"match_mode,omitempty"`
	// Prefer answers every ambiguous lookup with this registry.
	Prefer project.Source `json:"prefer,omitempty"`

	// Runtime hooks (not serialized)
	Logger   *log.Logger      `json:"-"`
	Progress acquire.Progress `json:"-"`
	Chooser  choice.Chooser   `json:"-"`
	Fs       afero.Fs         `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Version == "" {
		o.Version = DefaultVersion
	}
	if o.Loader == "" {
		o.Loader = DefaultLoader
	}
	loader, err := project.ParseLoader(string(o.Loader))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "loader")
	}
	o.Loader = loader
	if o.Dest == "" {
		o.Dest = DefaultDest
	}
	if o.Workers == 0 {
		o.Workers = acquire.DefaultWorkers
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must be positive, got %d", o.Workers)
	}
	if o.Delay < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "delay must not be negative")
	}
	if o.ChoiceTimeout <= 0 {
		o.ChoiceTimeout = choice.DefaultTimeout
	}
	mode, err := project.ParseMatchMode(string(o.MatchMode))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "match mode")
	}
	o.MatchMode = mode
	switch o.Prefer {
	case "", project.CurseForge, project.Modrinth:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "prefer must be curseforge or modrinth, got %q", o.Prefer)
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	o.validated = true
	return nil
}

// Target returns the run target the options describe.
func (o *Options) Target() project.Target {
	return project.Target{Version: o.Version, Loader: o.Loader}
}

// Result is the outcome of one run.
type Result struct {
	RunID    string `json:"run_id"`
	Workflow string `json:"workflow"`
	Seed     string `json:"seed"`
	// Target is the target the run resolved against, with "best" replaced
	// by the selected version.
	Target    project.Target         `json:"target"`
	Selection *bestversion.Selection `json:"selection,omitempty"`
	Resolved  []project.Resolved     `json:"-"`
	Outcomes  []acquire.Outcome      `json:"outcomes"`
	// Missed is the deduplicated miss report. It is never nil.
	Missed   []ledger.Item `json:"missed"`
	Duration time.Duration `json:"duration"`
}

// Counts tallies the outcomes.
func (r *Result) Counts() (fetched, skipped, missed int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case acquire.Fetched:
			fetched++
		case acquire.Skipped:
			skipped++
		case acquire.Missed:
			missed++
		}
	}
	return fetched, skipped, missed
}

func (r *Result) String() string {
	fetched, skipped, _ := r.Counts()
	return fmt.Sprintf("run %s (%s): %s, %d fetched, %d already present, %d missed",
		r.RunID, r.Workflow, r.Target, fetched, skipped, len(r.Missed))
}
