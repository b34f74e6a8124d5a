package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/emergo/pkg/dag"
)

type graph struct {
	Nodes []node   `json:"nodes"`
	Edges []edge   `json:"edges"`
	Order []string `json:"order"`
}

type node struct {
	ID       string `json:"id"`
	Sentinel bool   `json:"sentinel,omitempty"`
}

type edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type plan struct {
	Steps []step `toml:"step"`
}

type step struct {
	Index   int    `toml:"index"`
	Package string `toml:"package"`
}

// BuildOrder strips the sentinel nodes from a topological order.
func BuildOrder(order []string) []string {
	out := make([]string, 0, len(order))
	for _, name := range order {
		if !IsSentinel(name) {
			out = append(out, name)
		}
	}
	return out
}

// IsSentinel reports whether name is dag.Source or dag.Sink.
func IsSentinel(name string) bool {
	return name == dag.Source || name == dag.Sink
}

// WriteJSON encodes a graph and its build order as JSON and writes it to w.
// Nodes and edges include the sentinels; the order does not.
func WriteJSON(g *dag.Graph, order []string, w io.Writer) error {
	names := g.Names()
	edges := g.Edges()
	out := graph{
		Nodes: make([]node, len(names)),
		Edges: make([]edge, len(edges)),
		Order: BuildOrder(order),
	}
	for i, name := range names {
		out.Nodes[i] = node{ID: name, Sentinel: IsSentinel(name)}
	}
	for i, e := range edges {
		out.Edges[i] = edge{From: e.From, To: e.To}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteTOML writes a build order as a sequence of [[step]] tables.
func WriteTOML(order []string, w io.Writer) error {
	pkgs := BuildOrder(order)
	p := plan{Steps: make([]step, len(pkgs))}
	for i, name := range pkgs {
		p.Steps[i] = step{Index: i + 1, Package: name}
	}
	if err := toml.NewEncoder(w).Encode(p); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes a graph and its build order to a JSON file at path.
func ExportJSON(g *dag.Graph, order []string, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, order, f)
}
