// Package cli implements the modfetch command-line interface.
//
// Every workflow is one subcommand (page, deps, collection, get, manifest)
// sharing the run flags. Settings come from pkg/config, so each flag can
// also be set in the config file or as a MODFETCH_* environment variable.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger
// is attached to the command context and handed to the pipeline.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/modfetch/pkg/buildinfo"
	"github.com/matzehuels/modfetch/pkg/cache"
	"github.com/matzehuels/modfetch/pkg/config"
	"github.com/matzehuels/modfetch/pkg/integrations"
	"github.com/matzehuels/modfetch/pkg/integrations/curseforge"
	"github.com/matzehuels/modfetch/pkg/integrations/modrinth"
	"github.com/matzehuels/modfetch/pkg/pipeline"
)

// cacheKeyPrefix namespaces modfetch keys in a shared Redis.
const cacheKeyPrefix = config.AppName + ":"

// retryDelay is the first backoff step when attempts is above one.
const retryDelay = time.Second

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configFile string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "modfetch",
		Short: "modfetch downloads Minecraft mods from CurseForge and Modrinth",
		Long: `modfetch resolves Minecraft mods, resource packs and shaders on CurseForge
and Modrinth, follows their required dependencies, picks files that match
your game version and loader, and downloads them into a directory.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/modfetch/config.toml)")
	root.PersistentFlags().Bool(flagNoCache, false, "disable the registry response cache")

	root.AddCommand(c.pageCommand())
	root.AddCommand(c.depsCommand())
	root.AddCommand(c.collectionCommand())
	root.AddCommand(c.getCommand())
	root.AddCommand(c.manifestCommand())
	root.AddCommand(c.reportCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner from cfg. The returned func releases
// the cache backend.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config) (*pipeline.Runner, func(), error) {
	backend, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, err
	}

	if cfg.CurseForge.APIKey == "" {
		c.Logger.Warn("no CurseForge API key set; CurseForge requests will be rejected", "env", config.EnvPrefix+"_CURSEFORGE_API_KEY")
	}

	cf, mr, pages := newClients(cfg, backend)
	runner := pipeline.NewRunner(cf, mr, pages, c.Logger)
	return runner, func() { _ = backend.Close() }, nil
}

// newClients builds the registry and page clients. Each metadata request is
// sent cfg.Attempts times at most.
func newClients(cfg *config.Config, backend cache.Cache) (*curseforge.Client, *modrinth.Client, *integrations.Client) {
	cf := curseforge.NewClient(backend, cfg.Cache.TTL, cfg.CurseForge.APIKey)
	cf.SetBaseURL(cfg.CurseForge.BaseURL)
	cf.SetRetry(cfg.Attempts, retryDelay)
	mr := modrinth.NewClient(backend, cfg.Cache.TTL, cfg.Modrinth.UserAgent)
	mr.SetBaseURL(cfg.Modrinth.BaseURL)
	mr.SetRetry(cfg.Attempts, retryDelay)
	pages := integrations.NewClient(nil, "pages", 0, map[string]string{"User-Agent": cfg.Modrinth.UserAgent})
	return cf, mr, pages
}

// newCache picks the cache backend: none, Redis, or files under the cache
// directory. A cache directory that cannot be created disables caching.
func newCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch {
	case cfg.Disabled:
		return cache.NewNullCache(), nil
	case cfg.RedisURL != "":
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL, cacheKeyPrefix)
		if err != nil {
			return nil, err
		}
		return rc, nil
	case cfg.Dir == "":
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(cfg.Dir)
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

// loadConfig reads the configuration with cmd's flags bound on top.
func (c *CLI) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(config.LoadOptions{
		File:     c.configFile,
		Flags:    cmd.Flags(),
		Bindings: flagBindings,
	})
}
