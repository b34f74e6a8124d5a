// Package nodelink renders dependency graphs as node-link diagrams.
//
// Convert a graph to DOT, then render it to SVG in-process:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// With [Options].Detailed set and an order supplied, every package label
// carries its build step. The DOT text can also be saved and fed to external
// Graphviz tools.
//
// Rendering uses [github.com/goccy/go-graphviz], which runs Graphviz as
// WebAssembly and needs no system installation.
package nodelink
