// Package transform derives simplified views of a dependency graph.
//
// [TransitiveReduction] drops every edge implied by a longer path. The build
// order of the reduced graph is unchanged, but diagrams get much easier to
// read: in
//
//	s -> zlib -> openssl -> curl -> t
//	     zlib ---------------> curl
//
// the zlib -> curl edge is redundant because curl already waits for openssl,
// which waits for zlib.
package transform

import "github.com/matzehuels/emergo/pkg/dag"

// TransitiveReduction returns a copy of g without redundant edges. An edge
// u -> v is redundant when another successor w of u reaches v.
//
// Node names and ids are preserved, so the reduced graph toposorts to the
// same order as g. Reachability is tracked as one bitset per node, giving
// O(V·E/64) time and O(V²/64) words of memory.
//
// g must be acyclic; TransitiveReduction returns a CYCLE_DETECTED error
// otherwise.
func TransitiveReduction(g *dag.Graph) (*dag.Graph, error) {
	order, err := g.Toposort()
	if err != nil {
		return nil, err
	}

	n := g.NodeCount()
	words := (n + 63) / 64
	reach := make([][]uint64, n)
	children := make([][]int, n)
	for _, name := range order {
		u, _ := g.ID(name)
		for _, c := range g.Children(name) {
			v, _ := g.ID(c)
			children[u] = append(children[u], v)
		}
	}

	// Successors come later in the order, so walking it backwards finishes
	// every child's reach set before its parents need it.
	for i := len(order) - 1; i >= 0; i-- {
		u, _ := g.ID(order[i])
		set := make([]uint64, words)
		for _, v := range children[u] {
			set[v/64] |= 1 << (v % 64)
			for w, word := range reach[v] {
				set[w] |= word
			}
		}
		reach[u] = set
	}

	out := dag.New()
	for _, name := range g.Names() {
		out.AddNode(name)
	}
	for u, succ := range children {
		from, _ := g.Name(u)
		for _, v := range succ {
			if impliedByOther(reach, succ, v) {
				continue
			}
			to, _ := g.Name(v)
			if err := out.AddEdge(from, to); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func impliedByOther(reach [][]uint64, succ []int, v int) bool {
	for _, w := range succ {
		if w != v && reach[w][v/64]&(1<<(v%64)) != 0 {
			return true
		}
	}
	return false
}

// RemovedEdges counts the edges TransitiveReduction dropped.
func RemovedEdges(original, reduced *dag.Graph) int {
	return original.EdgeCount() - reduced.EdgeCount()
}

