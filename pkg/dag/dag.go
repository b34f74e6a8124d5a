package dag

import (
	"container/heap"
	"slices"

	"github.com/matzehuels/emergo/pkg/errors"
)

// Sentinel node names. Source precedes every package without prerequisites
// and Sink follows every requested package that nothing else depends on.
const (
	Source = "s"
	Sink   = "t"
)

// Edge is a directed prerequisite relation: From must be built before To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type idEdge struct{ from, to int }

// Graph is a directed graph whose nodes are identified by unique names.
// Internally each name is bound to an integer id assigned in insertion order
// and never reused; edges store ids only.
//
// The zero value is not usable - use New to create a valid Graph instance.
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	ids   map[string]int // name -> id
	names []string       // id -> name
	out   [][]int        // id -> successor ids, insertion order
	in    [][]int        // id -> predecessor ids, insertion order
	edges map[idEdge]struct{}
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		ids:   make(map[string]int),
		edges: make(map[idEdge]struct{}),
	}
}

// AddNode adds a node for name. It is a no-op if the node already exists.
func (g *Graph) AddNode(name string) {
	if _, ok := g.ids[name]; ok {
		return
	}
	g.ids[name] = len(g.names)
	g.names = append(g.names, name)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
}

// AddEdge adds the directed edge from -> to. It returns a NODE_NOT_FOUND
// error, leaving the graph untouched, if either endpoint has no node.
// Adding an existing edge is a no-op.
func (g *Graph) AddEdge(from, to string) error {
	u, err := g.mustID(from)
	if err != nil {
		return err
	}
	v, err := g.mustID(to)
	if err != nil {
		return err
	}
	e := idEdge{u, v}
	if _, ok := g.edges[e]; ok {
		return nil
	}
	g.edges[e] = struct{}{}
	g.out[u] = append(g.out[u], v)
	g.in[v] = append(g.in[v], u)
	return nil
}

// HasOutgoing reports whether at least one edge starts at name. It returns a
// NODE_NOT_FOUND error if name has no node.
func (g *Graph) HasOutgoing(name string) (bool, error) {
	id, err := g.mustID(name)
	if err != nil {
		return false, err
	}
	return len(g.out[id]) > 0, nil
}

func (g *Graph) mustID(name string) (int, error) {
	id, ok := g.ids[name]
	if !ok {
		return 0, errors.New(errors.ErrCodeNodeNotFound, "'%s' node doesn't exist", name)
	}
	return id, nil
}

// HasNode reports whether name has a node.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.ids[name]
	return ok
}

// HasEdge reports whether the edge from -> to exists.
func (g *Graph) HasEdge(from, to string) bool {
	u, okU := g.ids[from]
	v, okV := g.ids[to]
	if !okU || !okV {
		return false
	}
	_, ok := g.edges[idEdge{u, v}]
	return ok
}

// ID returns the id bound to name.
func (g *Graph) ID(name string) (int, bool) {
	id, ok := g.ids[name]
	return id, ok
}

// Name returns the name bound to id.
func (g *Graph) Name(id int) (string, bool) {
	if id < 0 || id >= len(g.names) {
		return "", false
	}
	return g.names[id], true
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.names) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Names returns all node names in id order.
func (g *Graph) Names() []string { return slices.Clone(g.names) }

// Edges returns all edges, grouped by source in id order and then in
// insertion order.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, len(g.edges))
	for u, succ := range g.out {
		for _, v := range succ {
			edges = append(edges, Edge{From: g.names[u], To: g.names[v]})
		}
	}
	return edges
}

// Children returns the names of the nodes that name is a prerequisite of.
// Returns nil if the node has no children or doesn't exist.
func (g *Graph) Children(name string) []string {
	id, ok := g.ids[name]
	if !ok {
		return nil
	}
	return g.namesOf(g.out[id])
}

// Parents returns the names of the prerequisites of name.
// Returns nil if the node has no parents or doesn't exist.
func (g *Graph) Parents(name string) []string {
	id, ok := g.ids[name]
	if !ok {
		return nil
	}
	return g.namesOf(g.in[id])
}

func (g *Graph) namesOf(ids []int) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.names[id]
	}
	return out
}

// IsCyclic reports whether the graph contains a directed cycle.
func (g *Graph) IsCyclic() bool {
	return g.FindCycle() != nil
}

// FindCycle returns the names along one directed cycle, starting and ending
// at the same node, or nil if the graph is acyclic.
//
// It runs an iterative depth-first search with white/gray/black coloring in
// O(V+E); any edge reaching a gray node closes a cycle.
func (g *Graph) FindCycle() []string {
	const (
		white = iota
		gray
		black
	)

	type frame struct{ v, next int }

	color := make([]uint8, len(g.names))
	parent := make([]int, len(g.names))

	for start := range g.names {
		if color[start] != white {
			continue
		}
		color[start] = gray
		stack := []frame{{v: start}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(g.out[top.v]) {
				color[top.v] = black
				stack = stack[:len(stack)-1]
				continue
			}
			w := g.out[top.v][top.next]
			top.next++
			switch color[w] {
			case white:
				color[w] = gray
				parent[w] = top.v
				stack = append(stack, frame{v: w})
			case gray:
				return g.cyclePath(parent, w, top.v)
			}
		}
	}
	return nil
}

func (g *Graph) cyclePath(parent []int, head, tail int) []string {
	ids := []int{head}
	for v := tail; v != head; v = parent[v] {
		ids = append(ids, v)
	}
	ids = append(ids, head)
	slices.Reverse(ids)
	return g.namesOf(ids)
}

// Toposort returns all node names ordered so that for every edge u -> v, u
// precedes v. Among nodes that are ready at the same time the one with the
// lowest id comes first, so the order is deterministic.
//
// Toposort returns a CYCLE_DETECTED error if the graph is cyclic.
func (g *Graph) Toposort() ([]string, error) {
	indeg := make([]int, len(g.names))
	for v := range g.names {
		indeg[v] = len(g.in[v])
	}

	ready := &idHeap{}
	for v, d := range indeg {
		if d == 0 {
			heap.Push(ready, v)
		}
	}

	order := make([]string, 0, len(g.names))
	for ready.Len() > 0 {
		u := heap.Pop(ready).(int)
		order = append(order, g.names[u])
		for _, v := range g.out[u] {
			indeg[v]--
			if indeg[v] == 0 {
				heap.Push(ready, v)
			}
		}
	}

	if len(order) != len(g.names) {
		return nil, errors.New(errors.ErrCodeCycle, "directed graph contains a cycle")
	}
	return order, nil
}

// idHeap is a min-heap of node ids.
type idHeap []int

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *idHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}
