package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/emergo/pkg/dag"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds each package's build step number to its label.
	Detailed bool
	// Order is the topological order used for step numbers. Only read when
	// Detailed is set.
	Order []string
}

// ToDOT converts a dependency graph to Graphviz DOT format. Edges point from
// a prerequisite to the package that needs it, so the diagram reads top to
// bottom in build order.
//
// The sentinel nodes are drawn as small grey circles to set them apart from
// packages.
func ToDOT(g *dag.Graph, opts Options) string {
	steps := make(map[string]int)
	if opts.Detailed {
		n := 0
		for _, name := range opts.Order {
			if isSentinel(name) {
				continue
			}
			n++
			steps[name] = n
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, name := range g.Names() {
		fmt.Fprintf(&buf, "  %q [%s];\n", name, strings.Join(fmtAttrs(name, steps[name]), ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if isSentinel(e.From) || isSentinel(e.To) {
			fmt.Fprintf(&buf, "  %q -> %q [style=dotted, color=grey];\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func isSentinel(name string) bool {
	return name == dag.Source || name == dag.Sink
}

func fmtAttrs(name string, step int) []string {
	if isSentinel(name) {
		return []string{
			fmt.Sprintf("label=%q", name),
			"shape=circle", "style=filled", "fillcolor=lightgrey", "fontcolor=dimgrey", "fontsize=14",
		}
	}
	label := name
	if step > 0 {
		label = fmt.Sprintf("%s\nstep: %d", name, step)
	}
	return []string{fmt.Sprintf("label=%q", label)}
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
