// Package config loads modfetch settings.
//
// Values are layered, lowest precedence first:
//
//  1. built-in defaults
//  2. the TOML config file ($XDG_CONFIG_HOME/modfetch/config.toml, or the
//     path given with --config)
//  3. MODFETCH_* environment variables, with "." in keys replaced by "_"
//     (MODFETCH_CURSEFORGE_API_KEY sets curseforge.api_key)
//  4. command-line flags that were set explicitly
//
// Example config file:
//
//	version = "1.20.1"
//	loader = "fabric"
//	dest = "~/minecraft/mods"
//	workers = 4
//	attempts = 3
//
//	[curseforge]
//	api_key = "..."
//
//	[cache]
//	ttl = "12h"
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/matzehuels/modfetch/pkg/core/acquire"
	"github.com/matzehuels/modfetch/pkg/core/choice"
	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/errors"
	"github.com/matzehuels/modfetch/pkg/integrations/curseforge"
	"github.com/matzehuels/modfetch/pkg/integrations/modrinth"
)

const (
	// AppName names the config and cache directories.
	AppName = "modfetch"
	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "MODFETCH"
	// FileName is the config file looked up in [Dir].
	FileName = "config.toml"

	// DefaultDelay is the pause after each registry metadata call.
	DefaultDelay = 50 * time.Millisecond
	// DefaultCacheTTL is how long registry responses are cached.
	DefaultCacheTTL = 24 * time.Hour
	// DefaultAttempts is how many times a metadata request is sent. One
	// means transient failures are not retried.
	DefaultAttempts = 1
)

// Config holds every setting modfetch reads.
type Config struct {
	Version       string        `mapstructure:"version"`
	Loader        string        `mapstructure:"loader"`
	Dest          string        `mapstructure:"dest"`
	Workers       int           `mapstructure:"workers"`
	Delay         time.Duration `mapstructure:"delay"`
	ChoiceTimeout time.Duration `mapstructure:"choice_timeout"`
	MatchMode     string        `mapstructure:"match_mode"`
	Prefer        string        `mapstructure:"prefer"`
	Attempts      int           `mapstructure:"attempts"`

	CurseForge CurseForgeConfig `mapstructure:"curseforge"`
	Modrinth   ModrinthConfig   `mapstructure:"modrinth"`
	Cache      CacheConfig      `mapstructure:"cache"`
}

// CurseForgeConfig configures the CurseForge API client.
type CurseForgeConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// ModrinthConfig configures the Modrinth API client.
type ModrinthConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

// CacheConfig configures the response cache. When RedisURL is set the
// cache lives in Redis instead of Dir.
type CacheConfig struct {
	Disabled bool          `mapstructure:"disabled"`
	Dir      string        `mapstructure:"dir"`
	TTL      time.Duration `mapstructure:"ttl"`
	RedisURL string        `mapstructure:"redis_url"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	cacheDir, _ := CacheDir()
	return Config{
		Version:       project.BestVersion,
		Loader:        string(project.Forge),
		Dest:          "mods",
		Workers:       acquire.DefaultWorkers,
		Delay:         DefaultDelay,
		ChoiceTimeout: choice.DefaultTimeout,
		MatchMode:     string(project.MatchPrefix),
		Attempts:      DefaultAttempts,
		CurseForge: CurseForgeConfig{
			BaseURL: curseforge.DefaultBaseURL,
		},
		Modrinth: ModrinthConfig{
			BaseURL:   modrinth.DefaultBaseURL,
			UserAgent: modrinth.DefaultUserAgent,
		},
		Cache: CacheConfig{
			Dir: cacheDir,
			TTL: DefaultCacheTTL,
		},
	}
}

// LoadOptions controls where [Load] reads from.
type LoadOptions struct {
	// File is an explicit config file. It must exist. When empty the file
	// in [Dir] is read if present.
	File string
	// Flags are command-line flags bound by key. Only flags the user set
	// override lower layers.
	Flags *pflag.FlagSet
	// Bindings maps config keys to flag names in Flags.
	Bindings map[string]string
	// Fs is the filesystem config files are read from. Defaults to the OS.
	Fs afero.Fs
}

// Load builds the configuration from defaults, file, environment and flags,
// then validates it.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	if opts.Fs != nil {
		v.SetFs(opts.Fs)
	}

	defaults := Defaults()
	v.SetDefault("version", defaults.Version)
	v.SetDefault("loader", defaults.Loader)
	v.SetDefault("dest", defaults.Dest)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("delay", defaults.Delay)
	v.SetDefault("choice_timeout", defaults.ChoiceTimeout)
	v.SetDefault("match_mode", defaults.MatchMode)
	v.SetDefault("prefer", defaults.Prefer)
	v.SetDefault("attempts", defaults.Attempts)
	v.SetDefault("curseforge.api_key", defaults.CurseForge.APIKey)
	v.SetDefault("curseforge.base_url", defaults.CurseForge.BaseURL)
	v.SetDefault("modrinth.base_url", defaults.Modrinth.BaseURL)
	v.SetDefault("modrinth.user_agent", defaults.Modrinth.UserAgent)
	v.SetDefault("cache.disabled", defaults.Cache.Disabled)
	v.SetDefault("cache.dir", defaults.Cache.Dir)
	v.SetDefault("cache.ttl", defaults.Cache.TTL)
	v.SetDefault("cache.redis_url", defaults.Cache.RedisURL)

	v.SetConfigType("toml")
	switch {
	case opts.File != "":
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config file %s", opts.File)
		}
	default:
		if dir, err := Dir(); err == nil {
			path := filepath.Join(dir, FileName)
			if exists(opts.Fs, path) {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config file %s", path)
				}
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for key, name := range opts.Bindings {
			f := opts.Flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "bind flag %s", name)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode config")
	}
	cfg.Dest = expandHome(cfg.Dest)
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no run could use.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Version) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "version must not be empty")
	}
	if _, err := project.ParseLoader(c.Loader); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "loader")
	}
	if strings.TrimSpace(c.Dest) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "destination must not be empty")
	}
	if c.Workers <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must be positive, got %d", c.Workers)
	}
	if c.Delay < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "delay must not be negative")
	}
	if c.ChoiceTimeout <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "choice timeout must be positive")
	}
	if _, err := project.ParseMatchMode(c.MatchMode); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "match mode")
	}
	switch project.Source(c.Prefer) {
	case "", project.CurseForge, project.Modrinth:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "prefer must be curseforge or modrinth, got %q", c.Prefer)
	}
	if c.Attempts < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "attempts must be at least 1, got %d", c.Attempts)
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cache ttl must not be negative")
	}
	return nil
}

// Dir returns the config directory ($XDG_CONFIG_HOME/modfetch, defaulting
// to ~/.config/modfetch).
func Dir() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName), nil
}

// CacheDir returns the cache directory ($XDG_CACHE_HOME/modfetch,
// defaulting to ~/.cache/modfetch).
func CacheDir() (string, error) {
	if home := os.Getenv("XDG_CACHE_HOME"); home != "" {
		return filepath.Join(home, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

func exists(fs afero.Fs, path string) bool {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	info, err := fs.Stat(path)
	return err == nil && !info.IsDir()
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
