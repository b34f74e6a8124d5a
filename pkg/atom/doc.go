// Package atom parses package atoms, the textual references to packages used
// on the command line and inside dependency expressions.
//
// # Grammar
//
// An atom has the shape
//
//	[[category]/]name[-version[-r<revision>]][:slot]
//
// where category and name are ASCII identifiers that may contain ".", "+" and
// "-", and version follows the ebuild version syntax:
//
//	\d+(\.\d+)*[a-z]?(_(pre|p|beta|alpha|rc)\d*)*
//
// The name is matched as short as possible, so a trailing "-<version>" is
// always split off. When the ":slot" suffix is absent the slot is "0".
//
//	a, err := atom.Parse("sys-libs/zlib-1.3-r1:0")
//
// # Versions
//
// [CompareVersions] orders ebuild versions the way the package manager does:
// numeric components first, then the letter suffix, then release suffixes
// (_alpha < _beta < _pre < _rc < release < _p), then the revision.
//
// # Concurrency
//
// All patterns are compiled at package initialization and never written
// afterwards; every function in this package is safe for concurrent use.
package atom
