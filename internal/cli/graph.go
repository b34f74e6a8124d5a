package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/matzehuels/emergo/pkg/dag/transform"
	"github.com/matzehuels/emergo/pkg/errors"
	pkgio "github.com/matzehuels/emergo/pkg/io"
	"github.com/matzehuels/emergo/pkg/pipeline"
	"github.com/matzehuels/emergo/pkg/render/nodelink"
)

// Graph export formats.
const (
	formatJSON = "json"
	formatTOML = "toml"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

var validFormats = []string{formatJSON, formatTOML, formatDOT, formatSVG}

// graphCommand creates the graph export command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
		reduce   bool
	)

	cmd := &cobra.Command{
		Use:   "graph <atom>...",
		Short: "Export the dependency graph and build order",
		Long: `Resolve atoms and export the result.

Formats:
  json  nodes, edges and build order
  toml  build order as [[step]] tables
  dot   Graphviz source
  svg   rendered diagram`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			res, err := c.resolve(cmd, args)
			if err != nil {
				return err
			}
			if reduce {
				reduced, err := transform.TransitiveReduction(res.Graph)
				if err != nil {
					return err
				}
				c.Logger.Debug("transitive reduction", "removed_edges", transform.RemovedEdges(res.Graph, reduced))
				res.Graph = reduced
			}
			data, err := encodeGraph(cmd.Context(), cmd.ErrOrStderr(), res, format, detailed)
			if err != nil {
				return err
			}

			if output == "" {
				_, err := c.Out.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return errors.Wrap(errors.ErrCodeIO, err, "write %s", output)
			}
			printSuccess("Wrote %s graph", format)
			printFile(output)
			printStats(res.Stats)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format: json, toml, dot or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label diagram nodes with their build step")
	cmd.Flags().BoolVar(&reduce, "reduce", false, "drop edges implied by longer paths")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return validFormats, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func validateFormat(format string) error {
	if lo.Contains(validFormats, format) {
		return nil
	}
	return errors.New(errors.ErrCodeInvalidInput,
		"invalid format: %q (must be one of: json, toml, dot, svg)", format)
}

// encodeGraph renders res in format. SVG rendering shows a spinner on status.
func encodeGraph(ctx context.Context, status io.Writer, res *pipeline.Result, format string, detailed bool) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case formatJSON:
		if err := pkgio.WriteJSON(res.Graph, res.Order, &buf); err != nil {
			return nil, err
		}
	case formatTOML:
		if err := pkgio.WriteTOML(res.Order, &buf); err != nil {
			return nil, err
		}
	case formatDOT, formatSVG:
		dot := nodelink.ToDOT(res.Graph, nodelink.Options{Detailed: detailed, Order: res.Order})
		if format == formatDOT {
			return []byte(dot), nil
		}
		var svg []byte
		err := withSpinner(status, "Rendering SVG...", func() error {
			var err error
			svg, err = nodelink.RenderSVG(ctx, dot)
			return err
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render svg")
		}
		return svg, nil
	default:
		return nil, fmt.Errorf("unhandled format %q", format)
	}
	return buf.Bytes(), nil
}
