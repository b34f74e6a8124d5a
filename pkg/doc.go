// Package pkg holds the libraries behind emergo, a Gentoo build-order
// calculator.
//
// # Overview
//
// Given package atoms such as "app-misc/foo" or "dev-lang/python-3.12.1",
// emergo reads the matching ebuilds from a repository, follows their DEPEND
// declarations and prints an order in which everything can be built.
//
// # Architecture
//
//	atoms
//	  ↓
//	[atom]         parse "cat/name-ver:slot"
//	  ↓
//	[repo]         find categories and candidate ebuild files
//	  ↓
//	[ebuild]       extract EAPI, SLOT, KEYWORDS, IUSE, DEPEND
//	  ↓            ([depexpr] tokenizes DEPEND)
//	[deps]         expand dependencies into a graph
//	  ↓
//	[dag]          cycle check + topological sort
//	  ↓
//	[io], [render/nodelink]   JSON, TOML, DOT, SVG
//
// [pipeline] ties these together with caching ([cache]), hooks
// ([observability]) and logging; the CLI and [server] both go through it.
// [config] loads settings from defaults, a TOML file, the environment and
// flags. [errors] defines the coded errors every package returns.
//
// # Quick Start
//
//	r, err := repo.Open(repo.DefaultRoot)
//	if err != nil {
//	    return err
//	}
//	res, err := pipeline.NewRunner(r, nil, nil, nil).Resolve(ctx, pipeline.Options{
//	    Atoms: []string{"app-misc/foo"},
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(strings.Join(res.Order, "\n"))
//
// [atom]: github.com/matzehuels/emergo/pkg/atom
// [repo]: github.com/matzehuels/emergo/pkg/repo
// [ebuild]: github.com/matzehuels/emergo/pkg/ebuild
// [depexpr]: github.com/matzehuels/emergo/pkg/depexpr
// [deps]: github.com/matzehuels/emergo/pkg/deps
// [dag]: github.com/matzehuels/emergo/pkg/dag
// [io]: github.com/matzehuels/emergo/pkg/io
// [render/nodelink]: github.com/matzehuels/emergo/pkg/render/nodelink
// [pipeline]: github.com/matzehuels/emergo/pkg/pipeline
// [cache]: github.com/matzehuels/emergo/pkg/cache
// [observability]: github.com/matzehuels/emergo/pkg/observability
// [server]: github.com/matzehuels/emergo/pkg/server
// [config]: github.com/matzehuels/emergo/pkg/config
// [errors]: github.com/matzehuels/emergo/pkg/errors
package pkg
