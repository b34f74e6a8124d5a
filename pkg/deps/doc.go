// Package deps resolves package atoms into a build-order graph.
//
// # Overview
//
// [Builder.Build] starts from the requested atoms and walks DEPEND
// declarations through a [Repository]:
//
//  1. Resolve the atom's category if it was given as a short name
//  2. List the candidate ebuilds and let the [Selector] pick one
//  3. Extract its metadata (memoized per build, optionally cached across runs)
//  4. Add an edge from every dependency to the atom and queue the dependency
//
// The result is a [dag.Graph] whose topological order is a valid build
// sequence, framed by the [dag.Source] and [dag.Sink] sentinels:
//
//	b := deps.NewBuilder(r, deps.Options{Selector: deps.NewestCandidate{}})
//	g, err := b.Build(ctx, []string{"app-misc/foo"})
//	order, err := g.Toposort() // [s lib/bar app-misc/foo t]
//
// # Options
//
// [Options] controls resolution behavior:
//
//   - Arch: KEYWORDS architecture used to classify versions (default amd64)
//   - Selector: version selection policy (default [FirstCandidate])
//   - Chooser: settles ambiguous short names instead of failing
//   - Cache, Keyer, CacheTTL: cross-run metadata cache
//   - Logger: progress callback
//
// # Package Data
//
// Every resolved ebuild becomes a [Version] filed under its [Package]
// (keyed by category/name). [Builder.Packages] returns them after a build
// for reporting; they do not influence the graph.
//
// # Limitations
//
// Version operators, blockers, USE conditionals and slots are parsed but not
// enforced: every package reference in DEPEND becomes a dependency, and one
// ebuild is chosen per atom.
package deps
