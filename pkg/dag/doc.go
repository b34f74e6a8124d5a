// Package dag provides the directed graph used to compute build orders.
//
// # Overview
//
// Every package discovered during resolution becomes a node identified by its
// atom text. An edge u -> v means u is a prerequisite of v: u must be built
// before v. A topological order of the graph is therefore a valid build
// sequence.
//
// Two sentinel nodes anchor the order: [Source] ("s") precedes every package
// without prerequisites, and [Sink] ("t") follows every requested package
// that nothing depends on. The builder in package deps creates them; this
// package treats them as ordinary nodes.
//
// # Basic Usage
//
//	g := dag.New()
//	g.AddNode("lib/bar")
//	g.AddNode("app/foo")
//	_ = g.AddEdge("lib/bar", "app/foo")
//	order, err := g.Toposort() // [lib/bar app/foo]
//
// [Graph.AddNode] and [Graph.AddEdge] are idempotent. AddEdge fails with a
// NODE_NOT_FOUND error if an endpoint is missing, and leaves the graph
// unchanged in that case.
//
// # Identity
//
// Names and integer ids form a bijection: an id is assigned on first
// insertion, in order, and never reused. Edges are stored as id pairs only.
//
// # Algorithms
//
// [Graph.FindCycle] and [Graph.IsCyclic] use an iterative depth-first search
// with white/gray/black coloring. [Graph.Toposort] uses Kahn's algorithm with
// a min-heap on ids, so repeated runs over the same graph return the same
// order. Both run in O(V+E) time (plus a log factor for the heap) and do not
// recurse, so deep dependency chains cannot exhaust the call stack.
//
// # Concurrency
//
// Graph instances are not safe for concurrent use. A graph is owned by the
// single build that creates it.
package dag
