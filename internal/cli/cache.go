package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/emergo/pkg/cache"
	"github.com/matzehuels/emergo/pkg/config"
	"github.com/matzehuels/emergo/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the ebuild metadata cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached metadata entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.cacheDirFor(cmd)
			if err != nil {
				return err
			}

			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}

			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return err
			}
			count, err := fc.Clear()
			if err != nil {
				return errors.Wrap(errors.ErrCodeIO, err, "clear %s", dir)
			}

			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.cacheDirFor(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.Out, dir)
			return nil
		},
	}
}

func (c *CLI) cacheDirFor(cmd *cobra.Command) (string, error) {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.Cache.Backend == config.BackendRedis {
		printWarning("Configured backend is redis; only the local file cache is managed here")
	}
	dir, err := fileCacheDir(cfg)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "get cache dir")
	}
	return dir, nil
}
