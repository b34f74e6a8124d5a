// Package cli implements the emergo command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/emergo/pkg/buildinfo"
	"github.com/matzehuels/emergo/pkg/cache"
	"github.com/matzehuels/emergo/pkg/config"
	"github.com/matzehuels/emergo/pkg/deps"
	"github.com/matzehuels/emergo/pkg/pipeline"
	"github.com/matzehuels/emergo/pkg/repo"
)

const (
	// appName is the application name used for directories and display.
	appName = "emergo"

	// redisKeyPrefix scopes keys in a shared Redis database.
	redisKeyPrefix = appName + ":"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	// Out receives command results such as the build order.
	Out io.Writer

	configPath string
	noCache    bool
	ask        bool
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// Invoked with atoms, the root command prints their build order.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "emergo [atom...]",
		Short: "emergo computes Gentoo build orders",
		Long: `emergo reads ebuilds from a Gentoo repository, follows their DEPEND
declarations and prints the order in which the requested packages and all of
their build dependencies have to be built.`,
		Example: `  emergo app-misc/foo
  emergo --policy newest --repo ~/gentoo dev-lang/python-3.12.1
  emergo graph --format svg -o deps.svg app-misc/foo`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return c.runOrder(cmd, args)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.SetOut(c.Out)

	pf := root.PersistentFlags()
	pf.String("repo", repo.DefaultRoot, "ebuild repository root")
	pf.String("policy", deps.PolicyFirst, "version selection policy: first or newest")
	pf.String("arch", deps.DefaultArch, "architecture used to classify KEYWORDS")
	pf.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/emergo/config.toml)")
	pf.BoolVar(&c.noCache, "no-cache", false, "disable the metadata cache")
	pf.BoolVar(&c.ask, "ask", false, "choose interactively when a short name matches several categories")

	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig layers defaults, config file, environment and the flags of cmd.
func (c *CLI) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, path, err := config.Load(cmd.Context(), config.LoadOptions{
		FilePath: c.configPath,
		Flags:    cmd.Flags(),
	})
	if err != nil {
		return nil, err
	}
	if path != "" {
		c.Logger.Debug("loaded config", "file", path)
	}
	return cfg, nil
}

// newRunner creates a pipeline runner for cfg.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config) (*pipeline.Runner, error) {
	r, err := repo.Open(cfg.Repo)
	if err != nil {
		return nil, err
	}
	ch, keyer, err := c.newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(r, ch, keyer, c.Logger)
	if cfg.Cache.TTL > 0 {
		runner.CacheTTL = cfg.Cache.TTL
	}
	return runner, nil
}

// newCache opens the configured metadata cache. An unusable file cache
// degrades to no caching; an unreachable Redis server is an error.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config) (cache.Cache, cache.Keyer, error) {
	backend := cfg.Cache.Backend
	if c.noCache {
		backend = config.BackendNone
	}

	switch backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil, nil
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return rc, cache.NewScopedKeyer(cache.NewDefaultKeyer(), redisKeyPrefix), nil
	default:
		dir, err := fileCacheDir(cfg)
		if err != nil {
			c.Logger.Warn("cache disabled", "error", err)
			return cache.NewNullCache(), nil, nil
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			c.Logger.Warn("cache disabled", "error", err)
			return cache.NewNullCache(), nil, nil
		}
		return fc, nil, nil
	}
}

// chooser returns the interactive category chooser when --ask is set.
func (c *CLI) chooser() deps.CategoryChooser {
	if !c.ask {
		return nil
	}
	return categoryPrompt{}
}

func fileCacheDir(cfg *config.Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/emergo/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
