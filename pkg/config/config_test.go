package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/modfetch/pkg/errors"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", "/nonexistent-config")
	t.Setenv("XDG_CACHE_HOME", "/tmp/modfetch-test-cache")
}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load(LoadOptions{Fs: afero.NewMemMapFs()})
	require.NoError(t, err)

	assert.Equal(t, "best", cfg.Version)
	assert.Equal(t, "forge", cfg.Loader)
	assert.Equal(t, "mods", cfg.Dest)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 50*time.Millisecond, cfg.Delay)
	assert.Equal(t, 300*time.Second, cfg.ChoiceTimeout)
	assert.Equal(t, "prefix", cfg.MatchMode)
	assert.Equal(t, 1, cfg.Attempts, "one request per registry call")
	assert.Equal(t, "https://api.curseforge.com/v1", cfg.CurseForge.BaseURL)
	assert.Equal(t, "https://api.modrinth.com/v2", cfg.Modrinth.BaseURL)
	assert.Equal(t, filepath.Join("/tmp/modfetch-test-cache", AppName), cfg.Cache.Dir)
	assert.Equal(t, DefaultCacheTTL, cfg.Cache.TTL)
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/etc/modfetch.toml", `
version = "1.20.1"
loader = "fabric"
workers = 3
delay = "0s"

[curseforge]
api_key = "secret"

[cache]
ttl = "12h"
redis_url = "redis://localhost:6379/0"
`)

	cfg, err := Load(LoadOptions{File: "/etc/modfetch.toml", Fs: fs})
	require.NoError(t, err)

	assert.Equal(t, "1.20.1", cfg.Version)
	assert.Equal(t, "fabric", cfg.Loader)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, time.Duration(0), cfg.Delay)
	assert.Equal(t, "secret", cfg.CurseForge.APIKey)
	assert.Equal(t, 12*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, "mods", cfg.Dest, "unset keys keep defaults")
}

func TestLoadDefaultFileLocation(t *testing.T) {
	isolate(t)
	t.Setenv("XDG_CONFIG_HOME", "/home/steve/.config")
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/home/steve/.config/modfetch/config.toml", `loader = "quilt"`)

	cfg, err := Load(LoadOptions{Fs: fs})
	require.NoError(t, err)
	assert.Equal(t, "quilt", cfg.Loader)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(LoadOptions{File: "/missing.toml", Fs: afero.NewMemMapFs()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestLoadEnvOverridesFile(t *testing.T) {
	isolate(t)
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/c.toml", `
workers = 3
[curseforge]
api_key = "from-file"
`)
	t.Setenv("MODFETCH_WORKERS", "5")
	t.Setenv("MODFETCH_ATTEMPTS", "3")
	t.Setenv("MODFETCH_CURSEFORGE_API_KEY", "from-env")

	cfg, err := Load(LoadOptions{File: "/c.toml", Fs: fs})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, 3, cfg.Attempts)
	assert.Equal(t, "from-env", cfg.CurseForge.APIKey)
}

func TestLoadFlagsOverrideEverything(t *testing.T) {
	isolate(t)
	t.Setenv("MODFETCH_LOADER", "fabric")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("loader", "l", "forge", "")
	flags.StringP("dest", "d", "mods", "")
	flags.Int("workers", 8, "")
	require.NoError(t, flags.Parse([]string{"--loader", "neoforge"}))

	cfg, err := Load(LoadOptions{
		Fs:    afero.NewMemMapFs(),
		Flags: flags,
		Bindings: map[string]string{
			"loader":  "loader",
			"dest":    "dest",
			"workers": "workers",
			"version": "not-a-flag",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "neoforge", cfg.Loader)
	assert.Equal(t, 8, cfg.Workers, "unset flags do not override")
}

func TestLoadRejectsInvalid(t *testing.T) {
	isolate(t)
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/bad.toml", `loader = "rift"`)

	_, err := Load(LoadOptions{File: "/bad.toml", Fs: fs})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"explicit version", func(c *Config) { c.Version = "1.19.2" }, true},
		{"empty version", func(c *Config) { c.Version = " " }, false},
		{"unknown loader", func(c *Config) { c.Loader = "rift" }, false},
		{"loader any", func(c *Config) { c.Loader = "ANY" }, true},
		{"empty dest", func(c *Config) { c.Dest = "" }, false},
		{"zero workers", func(c *Config) { c.Workers = 0 }, false},
		{"negative delay", func(c *Config) { c.Delay = -time.Second }, false},
		{"zero choice timeout", func(c *Config) { c.ChoiceTimeout = 0 }, false},
		{"segment mode", func(c *Config) { c.MatchMode = "segment" }, true},
		{"unknown mode", func(c *Config) { c.MatchMode = "fuzzy" }, false},
		{"prefer modrinth", func(c *Config) { c.Prefer = "modrinth" }, true},
		{"prefer unknown", func(c *Config) { c.Prefer = "github" }, false},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -time.Minute }, false},
		{"zero attempts", func(c *Config) { c.Attempts = 0 }, false},
		{"retrying attempts", func(c *Config) { c.Attempts = 3 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDirs(t *testing.T) {
	t.Run("xdg", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		t.Setenv("XDG_CACHE_HOME", "/custom/cache")

		dir, err := Dir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/custom/config", AppName), dir)

		cache, err := CacheDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/custom/cache", AppName), cache)
	})

	t.Run("home fallback", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("XDG_CACHE_HOME", "")
		t.Setenv("HOME", "/home/alex")

		dir, err := Dir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/home/alex", ".config", AppName), dir)

		cache, err := CacheDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/home/alex", ".cache", AppName), cache)
	})
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/alex")
	assert.Equal(t, "/home/alex/mods", expandHome("~/mods"))
	assert.Equal(t, "/home/alex", expandHome("~"))
	assert.Equal(t, "mods", expandHome("mods"))
	assert.Equal(t, "~user/mods", expandHome("~user/mods"))
}
