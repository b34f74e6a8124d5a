package deps

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/samber/lo"

	"github.com/matzehuels/emergo/pkg/atom"
	"github.com/matzehuels/emergo/pkg/dag"
	"github.com/matzehuels/emergo/pkg/ebuild"
	"github.com/matzehuels/emergo/pkg/errors"
	"github.com/matzehuels/emergo/pkg/observability"
)

const metadataKeyType = "ebuild"

// Repository is the lookup service the builder reads ebuilds from.
// repo.FS implements it.
type Repository interface {
	// Root identifies the repository in cache keys.
	Root() string
	// FindCategory resolves a short package name to its category.
	FindCategory(ctx context.Context, name string) (string, error)
	// MatchCategories lists every category containing name.
	MatchCategories(ctx context.Context, name string) ([]string, error)
	// CandidateFiles lists the ebuilds for category/name, optionally
	// restricted to one version.
	CandidateFiles(ctx context.Context, category, name, version string) ([]string, error)
	// ReadFile returns an ebuild's text.
	ReadFile(ctx context.Context, path string) (string, error)
	// Fingerprint changes whenever the file at path changes. It becomes
	// part of the metadata cache key.
	Fingerprint(ctx context.Context, path string) (string, error)
}

// CategoryChooser settles a short name that exists in several categories.
type CategoryChooser interface {
	ChooseCategory(ctx context.Context, name string, categories []string) (string, error)
}

// CategoryChooserFunc adapts a function to CategoryChooser.
type CategoryChooserFunc func(ctx context.Context, name string, categories []string) (string, error)

func (f CategoryChooserFunc) ChooseCategory(ctx context.Context, name string, categories []string) (string, error) {
	return f(ctx, name, categories)
}

// Builder expands requested atoms into a dependency graph.
//
// A Builder is not safe for concurrent use. Each call to Build starts from
// an empty graph; the packages of the last build stay available through
// Packages.
type Builder struct {
	repo Repository
	opts Options

	g         *dag.Graph
	resolved  map[string]*resolution      // atom text -> resolution
	metadata  map[string]*ebuild.Metadata // ebuild path -> metadata
	packages  map[string]*Package         // category/name -> package
	pkgOrder  []string
	wantFlags map[string][]string // dependency atom text -> requested USE flags
}

type resolution struct {
	pkg     *Package
	version *Version
	depends []string // raw dependency atom texts
}

// NewBuilder creates a Builder reading from repo.
func NewBuilder(repo Repository, opts Options) *Builder {
	return &Builder{repo: repo, opts: opts.WithDefaults()}
}

// Build resolves atoms and their transitive dependencies into a graph.
//
// Every package is a node named by the atom text that referenced it. An edge
// u -> v means u must be built before v. Packages without dependencies hang
// off dag.Source, and requested packages nothing depends on lead to
// dag.Sink, so a topological order of the result starts with "s", ends with
// "t" and lists a valid build sequence in between.
//
// The bare names "s" and "t" are reserved for the sentinels and fail with
// INVALID_INPUT; request such packages by category/name.
//
// Expansion is depth-first over an explicit stack. Each atom text is
// resolved once per build. Build fails with the first error: invalid atom,
// lookup failure, unreadable or malformed ebuild, or a dependency cycle.
func (b *Builder) Build(ctx context.Context, atoms []string) (*dag.Graph, error) {
	roots := lo.Uniq(atoms)
	if lo.Contains(roots, dag.Source) || lo.Contains(roots, dag.Sink) {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"%q and %q are reserved and cannot be requested; use category/name", dag.Source, dag.Sink)
	}

	b.reset()
	g := b.g
	g.AddNode(dag.Source)
	g.AddNode(dag.Sink)

	for _, text := range roots {
		g.AddNode(text)
	}

	stack := make([]string, len(roots))
	copy(stack, roots)
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, done := b.resolved[text]; done {
			continue
		}

		res, err := b.resolve(ctx, text)
		if err != nil {
			return nil, err
		}
		b.resolved[text] = res

		if len(res.depends) == 0 {
			if err := g.AddEdge(dag.Source, text); err != nil {
				return nil, err
			}
		}
		for _, dep := range res.depends {
			g.AddNode(dep)
			if err := g.AddEdge(dep, text); err != nil {
				return nil, err
			}
			stack = append(stack, dep)
		}
	}

	for _, text := range roots {
		has, err := g.HasOutgoing(text)
		if err != nil {
			return nil, err
		}
		if !has {
			if err := g.AddEdge(text, dag.Sink); err != nil {
				return nil, err
			}
		}
	}

	if cycle := g.FindCycle(); cycle != nil {
		return nil, errors.New(errors.ErrCodeCycle,
			"directed graph contains a cycle: %s", strings.Join(cycle, " -> "))
	}
	return g, nil
}

// Packages returns the packages discovered by the last Build, in discovery
// order.
func (b *Builder) Packages() []*Package {
	return lo.Map(b.pkgOrder, func(key string, _ int) *Package { return b.packages[key] })
}

func (b *Builder) reset() {
	b.g = dag.New()
	b.resolved = make(map[string]*resolution)
	b.metadata = make(map[string]*ebuild.Metadata)
	b.packages = make(map[string]*Package)
	b.pkgOrder = nil
	b.wantFlags = make(map[string][]string)
}

// resolve turns one atom text into the version that satisfies it.
func (b *Builder) resolve(ctx context.Context, text string) (*resolution, error) {
	a, err := atom.Parse(text)
	if err != nil {
		return nil, err
	}

	if !a.HasCategory() {
		cat, err := b.findCategory(ctx, a.Name)
		if err != nil {
			return nil, err
		}
		a = a.WithCategory(cat)
	}

	files, err := b.repo.CandidateFiles(ctx, a.Category, a.Name, a.FullVersion())
	if err != nil {
		return nil, err
	}
	file, err := b.opts.Selector.Select(files)
	if err != nil {
		return nil, errors.Annotate(err, "select ebuild for %s", text)
	}

	md, err := b.loadMetadata(ctx, file)
	if err != nil {
		return nil, errors.Annotate(err, "%s (%s)", text, file)
	}

	dependsOn := make([]atom.Atom, 0, len(md.Depends))
	for _, dep := range md.Depends {
		da, err := atom.Parse(dep)
		if err != nil {
			return nil, errors.Annotate(err, "%s (%s)", text, file)
		}
		dependsOn = append(dependsOn, da)
	}

	v := &Version{
		Raw:       versionOf(file),
		Path:      file,
		EAPI:      md.EAPI,
		Kind:      KindFor(md.Keywords, b.opts.Arch),
		Status:    StatusUnchanged,
		UseFlags:  md.UseFlags,
		UseGroups: md.UseConditionals,
		DependsOn: dependsOn,
	}
	pkg, v := b.record(a, text, md, v)

	b.opts.Logger("resolved %s -> %s (%s)", text, file, v.Kind)
	return &resolution{pkg: pkg, version: v, depends: md.Depends}, nil
}

func (b *Builder) findCategory(ctx context.Context, name string) (string, error) {
	cat, err := b.repo.FindCategory(ctx, name)
	if err == nil || b.opts.Chooser == nil || !errors.Is(err, errors.ErrCodeAmbiguousName) {
		return cat, err
	}

	cats, merr := b.repo.MatchCategories(ctx, name)
	if merr != nil {
		return "", merr
	}
	chosen, cerr := b.opts.Chooser.ChooseCategory(ctx, name, cats)
	if cerr != nil {
		return "", cerr
	}
	if !lo.Contains(cats, chosen) {
		return "", errors.New(errors.ErrCodeInvalidInput,
			"category %q does not contain %q", chosen, name)
	}
	return chosen, nil
}

// record files v under its package and applies USE flags requested by
// dependents. If the package already holds the same version, that instance
// is reused and returned.
func (b *Builder) record(a atom.Atom, text string, md *ebuild.Metadata, v *Version) (*Package, *Version) {
	key := a.Key()
	pkg, ok := b.packages[key]
	if !ok {
		pkg = &Package{Name: key, Slot: md.Slot, Subslot: md.Subslot}
		b.packages[key] = pkg
		b.pkgOrder = append(b.pkgOrder, key)
	}
	if existing, found := lo.Find(pkg.Versions, func(o *Version) bool { return o.Raw == v.Raw }); found {
		v = existing
	}
	pkg.addVersion(v)
	pkg.addNeeded(v)
	pkg.addUseFlags(b.wantFlags[text])

	for _, dep := range lo.Uniq(md.Depends) {
		flags := enabledFlags(md.UseDeps[dep])
		if len(flags) == 0 {
			continue
		}
		if r, done := b.resolved[dep]; done {
			r.pkg.addUseFlags(flags)
			continue
		}
		b.wantFlags[dep] = append(b.wantFlags[dep], flags...)
	}
	return pkg, v
}

// enabledFlags reduces USE dependency entries to the flags they turn on:
// "ssl" and "ssl(+)" enable ssl; "-ssl", "!ssl?" and "ssl?" are not
// unconditional requirements and are dropped.
func enabledFlags(entries []string) []string {
	return lo.FilterMap(entries, func(e string, _ int) (string, bool) {
		if strings.HasPrefix(e, "-") || strings.HasPrefix(e, "!") ||
			strings.HasSuffix(e, "?") || strings.HasSuffix(e, "=") {
			return "", false
		}
		e = strings.TrimSuffix(strings.TrimSuffix(e, "(+)"), "(-)")
		return e, e != ""
	})
}

// loadMetadata returns the parsed metadata for an ebuild, consulting the
// per-build memo, then the cache, then the repository. Cache entries are
// keyed by the file's fingerprint. Cache failures are logged and treated as
// misses.
func (b *Builder) loadMetadata(ctx context.Context, file string) (*ebuild.Metadata, error) {
	if md, ok := b.metadata[file]; ok {
		return md, nil
	}

	key := ""
	if fp, err := b.repo.Fingerprint(ctx, file); err != nil {
		b.opts.Logger("metadata cache skipped: %s: %v", file, err)
	} else {
		key = b.opts.Keyer.MetadataKey(b.repo.Root(), file, fp)
	}
	if key != "" {
		if md, ok := b.cachedMetadata(ctx, key, file); ok {
			b.metadata[file] = md
			observability.Resolve().OnMetadataLoad(ctx, file, true, nil)
			return md, nil
		}
	}

	text, err := b.repo.ReadFile(ctx, file)
	if err != nil {
		observability.Resolve().OnMetadataLoad(ctx, file, false, err)
		return nil, err
	}
	md, err := ebuild.Extract(text)
	observability.Resolve().OnMetadataLoad(ctx, file, false, err)
	if err != nil {
		return nil, err
	}
	b.metadata[file] = md
	if key == "" {
		return md, nil
	}

	if data, err := json.Marshal(md); err == nil {
		if err := b.opts.Cache.Set(ctx, key, data, b.opts.CacheTTL); err != nil {
			b.opts.Logger("metadata cache write failed: %s: %v", file, err)
		} else {
			observability.Cache().OnCacheSet(ctx, metadataKeyType, len(data))
		}
	}
	return md, nil
}

func (b *Builder) cachedMetadata(ctx context.Context, key, file string) (*ebuild.Metadata, bool) {
	data, hit, err := b.opts.Cache.Get(ctx, key)
	if err != nil {
		b.opts.Logger("metadata cache read failed: %s: %v", file, err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, metadataKeyType)
		return nil, false
	}

	var md ebuild.Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		b.opts.Logger("metadata cache entry corrupt: %s: %v", file, err)
		observability.Cache().OnCacheMiss(ctx, metadataKeyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, metadataKeyType)
	return &md, true
}
