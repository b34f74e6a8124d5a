package repo

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/matzehuels/emergo/pkg/atom"
	"github.com/matzehuels/emergo/pkg/errors"
)

// DefaultRoot is where Gentoo keeps the main repository.
const DefaultRoot = "/var/db/repos/gentoo"

const (
	ebuildExt      = ".ebuild"
	categoriesFile = "profiles/categories"
)

// nonCategoryDirs are top-level directories that never hold packages.
var nonCategoryDirs = []string{"eclass", "licenses", "metadata", "profiles", "scripts"}

// FS is a repository backed by an fs.FS. The category list is read once per
// FS and reused; create a new FS after the repository changes on disk.
//
// FS is safe for concurrent use.
type FS struct {
	root       string
	fsys       fs.FS
	categories func() ([]string, error)
}

// New creates a repository over fsys. root is only used for display and as
// part of cache keys.
func New(fsys fs.FS, root string) *FS {
	r := &FS{root: root, fsys: fsys}
	r.categories = sync.OnceValues(r.readCategories)
	return r
}

// Open creates a repository rooted at the directory root.
func Open(root string) (*FS, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open repository %s", root)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeIO, "repository %s is not a directory", root)
	}
	return New(os.DirFS(root), root), nil
}

// Root returns the repository root passed to New or Open.
func (r *FS) Root() string { return r.root }

// Categories returns the repository's category names in sorted order.
//
// profiles/categories is authoritative when present. Otherwise every
// top-level directory counts except hidden ones and the well-known
// non-package directories (eclass, licenses, metadata, profiles, scripts).
func (r *FS) Categories(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cats, err := r.categories()
	return slices.Clone(cats), err
}

func (r *FS) readCategories() ([]string, error) {
	if f, err := r.fsys.Open(categoriesFile); err == nil {
		defer f.Close()
		var cats []string
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			cats = append(cats, line)
		}
		if err := sc.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", categoriesFile)
		}
		slices.Sort(cats)
		return slices.Compact(cats), nil
	}

	entries, err := fs.ReadDir(r.fsys, ".")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "list repository %s", r.root)
	}
	dirs := lo.FilterMap(entries, func(e fs.DirEntry, _ int) (string, bool) {
		return e.Name(), e.IsDir() && isCategoryName(e.Name())
	})
	return dirs, nil
}

func isCategoryName(name string) bool {
	return !slices.Contains(nonCategoryDirs, name) && !strings.HasPrefix(name, ".")
}

// MatchCategories returns every category containing a package directory
// called name, in sorted order. The result may be empty.
func (r *FS) MatchCategories(ctx context.Context, name string) ([]string, error) {
	if err := errors.ValidatePackageName(name); err != nil {
		return nil, err
	}
	cats, err := r.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(cats, func(cat string, _ int) bool {
		info, err := fs.Stat(r.fsys, path.Join(cat, name))
		return err == nil && info.IsDir()
	}), nil
}

// FindCategory returns the single category containing a package directory
// called name. It fails with AMBIGUOUS_SHORT_NAME when several categories
// do, and NO_MATCHING_EBUILD when none does.
func (r *FS) FindCategory(ctx context.Context, name string) (string, error) {
	matches, err := r.MatchCategories(ctx, name)
	if err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", errors.New(errors.ErrCodeNoEbuild, "there are no ebuilds to satisfy %q", name)
	case 1:
		return matches[0], nil
	default:
		return "", errors.New(errors.ErrCodeAmbiguousName,
			"the short ebuild name %q is ambiguous; specify one of: %s",
			name, strings.Join(lo.Map(matches, func(cat string, _ int) string {
				return cat + "/" + name
			}), ", "))
	}
}

// CandidateFiles lists the ebuilds of category/name, sorted by file name.
//
// When version is empty every ebuild qualifies. Otherwise only files for that
// exact version do; a version without "-rN" also matches every revision of
// it. The result is never empty: no match fails with NO_MATCHING_EBUILD.
func (r *FS) CandidateFiles(ctx context.Context, category, name, version string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := path.Join(category, name)
	if err := errors.ValidatePath(dir); err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(r.fsys, dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "list %s", dir)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		v, ok := ebuildVersion(e.Name(), name)
		if !ok || !matchVersion(v, version) {
			continue
		}
		files = append(files, path.Join(dir, e.Name()))
	}

	if len(files) == 0 {
		want := dir
		if version != "" {
			want += "-" + version
		}
		return nil, errors.New(errors.ErrCodeNoEbuild, "there are no ebuilds to satisfy %q", want)
	}
	return files, nil
}

// ebuildVersion extracts the version from "<name>-<version>.ebuild".
func ebuildVersion(file, name string) (string, bool) {
	base, ok := strings.CutSuffix(file, ebuildExt)
	if !ok {
		return "", false
	}
	v, ok := strings.CutPrefix(base, name+"-")
	if !ok || !atom.ValidVersion(v) {
		return "", false
	}
	return v, true
}

func matchVersion(have, want string) bool {
	if want == "" || have == want {
		return true
	}
	if strings.Contains(want, "-r") {
		return false
	}
	base, _, _ := strings.Cut(have, "-r")
	return base == want
}

// ReadFile returns the content of the file at p. Failures are IO errors
// wrapping the underlying cause.
func (r *FS) ReadFile(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := errors.ValidatePath(p); err != nil {
		return "", err
	}
	data, err := fs.ReadFile(r.fsys, p)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "read %s", p)
	}
	return string(data), nil
}

// Fingerprint identifies the current content of the file at p without
// reading it: "<mtime>:<size>". File systems that report no modification
// time get a SHA-256 of the content instead, so an edit always changes the
// fingerprint.
func (r *FS) Fingerprint(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := errors.ValidatePath(p); err != nil {
		return "", err
	}
	info, err := fs.Stat(r.fsys, p)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "stat %s", p)
	}
	if !info.ModTime().IsZero() {
		return fmt.Sprintf("%d:%d", info.ModTime().UnixNano(), info.Size()), nil
	}
	data, err := fs.ReadFile(r.fsys, p)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "read %s", p)
	}
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}
