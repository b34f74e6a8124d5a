// Package config loads emergo settings.
//
// Values are layered, lowest priority first:
//
//  1. built-in defaults
//  2. a TOML file ($XDG_CONFIG_HOME/emergo/config.toml, or --config)
//  3. EMERGO_* environment variables (EMERGO_CACHE_BACKEND for cache.backend)
//  4. command-line flags
//
// Example file:
//
//	repo = "/var/db/repos/gentoo"
//	arch = "arm64"
//	policy = "newest"
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//	ttl = "12h"
package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/matzehuels/emergo/pkg/deps"
	"github.com/matzehuels/emergo/pkg/errors"
	"github.com/matzehuels/emergo/pkg/repo"
)

const (
	// AppName names the config directory and the environment prefix.
	AppName = "emergo"
	// FileName is the config file name inside the config directory.
	FileName = "config.toml"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "EMERGO"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config holds every setting.
type Config struct {
	Repo   string       `mapstructure:"repo"`
	Arch   string       `mapstructure:"arch"`
	Policy string       `mapstructure:"policy"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Server ServerConfig `mapstructure:"server"`
}

// CacheConfig selects and tunes the metadata cache.
type CacheConfig struct {
	Backend  string        `mapstructure:"backend"`
	TTL      time.Duration `mapstructure:"ttl"`
	RedisURL string        `mapstructure:"redis_url"`
	// Dir overrides the file cache location (default: user cache dir).
	Dir string `mapstructure:"dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Repo:   repo.DefaultRoot,
		Arch:   deps.DefaultArch,
		Policy: deps.PolicyFirst,
		Cache: CacheConfig{
			Backend: BackendFile,
			TTL:     deps.DefaultCacheTTL,
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// LoadOptions tells Load where to look.
type LoadOptions struct {
	// FilePath is an explicit config file. It must exist.
	FilePath string
	// Dir overrides the config directory searched for FileName.
	Dir string
	// Flags are bound to config keys through FlagKeys. Only flags the user
	// set take effect.
	Flags *pflag.FlagSet
}

// FlagKeys maps config keys to the command-line flags that override them.
var FlagKeys = map[string]string{
	"repo":        "repo",
	"arch":        "arch",
	"policy":      "policy",
	"server.addr": "addr",
}

// Dir returns the config directory: $XDG_CONFIG_HOME/emergo, falling back to
// ~/.config/emergo.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeIO, err, "locate home directory")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, AppName), nil
}

// Load reads the configuration. It returns the file that was used, or "" when
// only defaults, environment and flags apply.
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	v := viper.New()
	def := Default()
	v.SetDefault("repo", def.Repo)
	v.SetDefault("arch", def.Arch)
	v.SetDefault("policy", def.Policy)
	v.SetDefault("cache.backend", def.Cache.Backend)
	v.SetDefault("cache.ttl", def.Cache.TTL)
	v.SetDefault("cache.redis_url", def.Cache.RedisURL)
	v.SetDefault("cache.dir", def.Cache.Dir)
	v.SetDefault("server.addr", def.Server.Addr)

	path, err := configFile(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for key, name := range FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, "", errors.Wrap(errors.ErrCodeInternal, err, "bind flag --%s", name)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, path, nil
}

func configFile(opts LoadOptions) (string, error) {
	if opts.FilePath != "" {
		if _, err := os.Stat(opts.FilePath); err != nil {
			return "", errors.New(errors.ErrCodeInvalidConfig, "config file not found: %s", opts.FilePath)
		}
		return opts.FilePath, nil
	}

	dir := opts.Dir
	if dir == "" {
		d, err := Dir()
		if err != nil {
			return "", err
		}
		dir = d
	}
	p := filepath.Join(dir, FileName)
	if _, err := os.Stat(p); err != nil {
		return "", nil
	}
	return p, nil
}

// Validate checks value constraints.
func (c *Config) Validate() error {
	if c.Repo == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "repo must not be empty")
	}
	if c.Arch == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "arch must not be empty")
	}
	if _, err := deps.SelectorFor(c.Policy); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "policy")
	}
	switch c.Cache.Backend {
	case BackendFile, BackendNone:
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_url is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig,
			"unknown cache backend %q (want %s, %s or %s)", c.Cache.Backend, BackendFile, BackendRedis, BackendNone)
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}
	return nil
}
