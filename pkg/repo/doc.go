// Package repo looks up ebuilds in an on-disk package repository.
//
// A repository is a tree of category directories, each holding one directory
// per package with one ebuild file per version:
//
//	<root>/
//	    profiles/categories        # optional list of category names
//	    app-misc/
//	        foo/
//	            foo-1.0.ebuild
//	            foo-1.1-r2.ebuild
//	    virtual/
//	        libc/
//	            libc-1.ebuild
//
// [FS] answers the four questions the resolver asks: which categories exist,
// which category holds a short package name, which ebuild files match an
// atom, and what a file contains. It works on any [io/fs.FS], so tests run
// against [testing/fstest.MapFS] and production against [os.DirFS].
//
// All paths returned and accepted by FS are relative to the repository root
// and use forward slashes.
package repo
