// Package io serializes resolved dependency graphs and build orders.
//
// # JSON
//
// [WriteJSON] dumps the whole graph, sentinels included, together with the
// build order:
//
//	{
//	  "nodes": [{"id": "s", "sentinel": true}, {"id": "t", "sentinel": true}, {"id": "app-misc/foo"}],
//	  "edges": [{"from": "s", "to": "app-misc/foo"}, {"from": "app-misc/foo", "to": "t"}],
//	  "order": ["app-misc/foo"]
//	}
//
// # TOML
//
// [WriteTOML] writes only the build order, one table per package:
//
//	[[step]]
//	  index = 1
//	  package = "sys-libs/zlib"
//
// The sentinel nodes "s" and "t" never appear in an exported order.
package io
