package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/emergo/pkg/pipeline"
)

// runOrder prints the build order for atoms, one package per line.
func (c *CLI) runOrder(cmd *cobra.Command, atoms []string) error {
	res, err := c.resolve(cmd, atoms)
	if err != nil {
		return err
	}
	for _, name := range res.Order {
		fmt.Fprintln(c.Out, name)
	}
	return nil
}

// resolve loads the configuration and runs one resolution for atoms.
func (c *CLI) resolve(cmd *cobra.Command, atoms []string) (*pipeline.Result, error) {
	ctx := cmd.Context()
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	runner, err := c.newRunner(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	res, err := runner.Resolve(ctx, pipeline.Options{
		Atoms:   atoms,
		Arch:    cfg.Arch,
		Policy:  cfg.Policy,
		Chooser: c.chooser(),
	})
	if err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("Resolved %d packages", res.Stats.PackageCount), "run", res.RunID.String()[:8])
	return res, nil
}
