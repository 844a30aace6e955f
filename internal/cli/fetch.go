package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/modfetch/pkg/config"
	"github.com/matzehuels/modfetch/pkg/core/project"
	pkgio "github.com/matzehuels/modfetch/pkg/io"
	"github.com/matzehuels/modfetch/pkg/pipeline"
)

// Flag names shared by the workflow commands.
const (
	flagVersion   = "mc-version"
	flagLoader    = "loader"
	flagDest      = "dest"
	flagWorkers   = "workers"
	flagDelay     = "delay"
	flagMatchMode = "match-mode"
	flagPrefer    = "prefer"
	flagNoCache   = "no-cache"
	flagReport    = "report"
)

// flagBindings maps config keys to the flags that override them.
var flagBindings = map[string]string{
	"version":        flagVersion,
	"loader":         flagLoader,
	"dest":           flagDest,
	"workers":        flagWorkers,
	"delay":          flagDelay,
	"match_mode":     flagMatchMode,
	"prefer":         flagPrefer,
	"cache.disabled": flagNoCache,
}

// workflowFunc runs one workflow for a command.
type workflowFunc func(ctx context.Context, r *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error)

// runFlags holds flags that only the CLI reads.
type runFlags struct {
	report string
}

// addRunFlags registers the run flags on cmd. Their defaults only document
// the built-in values; unset flags never override config or environment.
func addRunFlags(cmd *cobra.Command, rf *runFlags) {
	d := config.Defaults()
	f := cmd.Flags()
	f.StringP(flagVersion, "m", d.Version, `target game version, or "best" to pick the most supported one`)
	f.StringP(flagLoader, "l", d.Loader, "mod loader: forge, fabric, quilt, neoforge, any or none")
	f.StringP(flagDest, "d", d.Dest, "directory to download into")
	f.Int(flagWorkers, d.Workers, "maximum concurrent downloads")
	f.Duration(flagDelay, d.Delay, "pause after each registry request")
	f.String(flagMatchMode, d.MatchMode, "game version matching: prefix or segment")
	f.String(flagPrefer, "", "answer every ambiguous lookup with this registry (curseforge or modrinth)")
	f.StringVar(&rf.report, flagReport, "", "write a JSON run report to this file")
	completeRunFlags(cmd)
}

// =============================================================================
// Workflow Commands
// =============================================================================

// pageCommand creates the "page" command.
func (c *CLI) pageCommand() *cobra.Command {
	var rf runFlags
	cmd := &cobra.Command{
		Use:   "page <file-or-url>",
		Short: "Fetch every CurseForge project linked from an HTML page",
		Long: `Fetch every CurseForge project linked from an HTML page.

The page can be a saved file or a URL. Only links of the form
curseforge.com/minecraft/{mc-mods,texture-packs,resource-packs}/<slug> are
used, and dependencies are not followed.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeFileArg("html", "htm"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWorkflow(cmd, &rf, func(ctx context.Context, r *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
				return r.SeedPage(ctx, args[0], opts)
			})
		},
	}
	addRunFlags(cmd, &rf)
	return cmd
}

// depsCommand creates the "deps" command.
func (c *CLI) depsCommand() *cobra.Command {
	var rf runFlags
	cmd := &cobra.Command{
		Use:   "deps <curseforge-url>",
		Short: "Fetch a CurseForge project and its required dependencies",
		Long: `Fetch a CurseForge project and everything it requires or embeds,
transitively. Optional dependencies are not followed.`,
		Example: `  modfetch deps https://www.curseforge.com/minecraft/mc-mods/create -m 1.20.1 -l forge`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWorkflow(cmd, &rf, func(ctx context.Context, r *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
				return r.Dependencies(ctx, args[0], opts)
			})
		},
	}
	addRunFlags(cmd, &rf)
	return cmd
}

// collectionCommand creates the "collection" command.
func (c *CLI) collectionCommand() *cobra.Command {
	var rf runFlags
	cmd := &cobra.Command{
		Use:   "collection <modrinth-collection-url>",
		Short: "Fetch the projects of a Modrinth collection",
		Long: `Fetch the projects of a Modrinth collection page. Each project is taken
from CurseForge when it exists there and from Modrinth otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWorkflow(cmd, &rf, func(ctx context.Context, r *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
				return r.Collection(ctx, args[0], opts)
			})
		},
	}
	addRunFlags(cmd, &rf)
	return cmd
}

// getCommand creates the "get" command.
func (c *CLI) getCommand() *cobra.Command {
	var rf runFlags
	cmd := &cobra.Command{
		Use:   "get <url-or-name>",
		Short: "Fetch a single project by URL or name",
		Long: `Fetch a single project given as a CurseForge URL, a Modrinth URL or a
plain name. The project is looked up on both registries; when both have it
you are asked which to use, unless --prefer is set.

An explicit --mc-version is required.`,
		Example: `  modfetch get "Just Enough Items" -m 1.20.1
  modfetch get https://modrinth.com/mod/sodium -m 1.21 -l fabric --prefer modrinth`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier := strings.Join(args, " ")
			return c.runWorkflow(cmd, &rf, func(ctx context.Context, r *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
				return r.Lookup(ctx, identifier, opts)
			})
		},
	}
	addRunFlags(cmd, &rf)
	return cmd
}

// manifestCommand creates the "manifest" command.
func (c *CLI) manifestCommand() *cobra.Command {
	var rf runFlags
	cmd := &cobra.Command{
		Use:   "manifest <file.toml>",
		Short: "Fetch the projects listed in a TOML manifest",
		Long: `Fetch the projects listed in a TOML manifest, plus their required
dependencies. The manifest's version and loader are used unless given on
the command line.

Example manifest:

  version = "1.20.1"
  loader = "fabric"

  [[project]]
  url = "https://modrinth.com/mod/sodium"

  [[project]]
  source = "curseforge"
  slug = "jei"

  [[project]]
  name = "Iris Shaders"`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeFileArg("toml"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWorkflow(cmd, &rf, func(ctx context.Context, r *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
				manifestDefaults(cmd, &opts)
				return r.Manifest(ctx, args[0], opts)
			})
		},
	}
	addRunFlags(cmd, &rf)
	return cmd
}

// manifestDefaults clears version and loader when they hold only built-in
// defaults, so the manifest's own values apply.
func manifestDefaults(cmd *cobra.Command, opts *pipeline.Options) {
	d := config.Defaults()
	if !cmd.Flags().Changed(flagVersion) && opts.Version == d.Version {
		opts.Version = ""
	}
	if !cmd.Flags().Changed(flagLoader) && string(opts.Loader) == d.Loader {
		opts.Loader = ""
	}
}

// =============================================================================
// Run
// =============================================================================

// runWorkflow loads the configuration, runs fn and prints the outcome.
func (c *CLI) runWorkflow(cmd *cobra.Command, rf *runFlags, fn workflowFunc) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}
	runner, release, err := c.newRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	opts := runOptions(cfg, logger)
	opts.Chooser = terminalChooser(cfg.ChoiceTimeout)

	bar := newProgressBar(ctx)
	opts.Progress = bar.update
	res, err := fn(ctx, runner, opts)
	bar.stop()
	if err != nil {
		if res != nil {
			if report := renderMissReport(res.Missed); report != "" {
				fmt.Fprintln(os.Stderr, report)
			}
		}
		return err
	}

	printResult(res)
	if rf.report != "" {
		if err := pkgio.ExportJSON(res, rf.report); err != nil {
			return err
		}
		printFile(rf.report)
	}
	return nil
}

// runOptions converts the configuration into pipeline options.
func runOptions(cfg *config.Config, logger *log.Logger) pipeline.Options {
	return pipeline.Options{
		Version:       cfg.Version,
		Loader:        project.Loader(strings.ToLower(cfg.Loader)),
		Dest:          cfg.Dest,
		Workers:       cfg.Workers,
		Delay:         cfg.Delay,
		ChoiceTimeout: cfg.ChoiceTimeout,
		MatchMode:     project.MatchMode(cfg.MatchMode),
		Prefer:        project.Source(strings.ToLower(cfg.Prefer)),
		Logger:        logger,
	}
}

// progressBar shows download progress on a spinner, started by the first
// report.
type progressBar struct {
	ctx     context.Context
	once    sync.Once
	mu      sync.Mutex
	spinner *Spinner
}

func newProgressBar(ctx context.Context) *progressBar {
	return &progressBar{ctx: ctx}
}

func (b *progressBar) update(current, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg := fmt.Sprintf("Downloading %d/%d", current, total)
	b.once.Do(func() {
		b.spinner = newSpinnerWithContext(b.ctx, msg)
		b.spinner.Start()
	})
	b.spinner.SetMessage(msg)
}

func (b *progressBar) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.spinner != nil {
		b.spinner.Stop()
	}
}
