package deps

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/emergo/pkg/cache"
	"github.com/matzehuels/emergo/pkg/dag"
	"github.com/matzehuels/emergo/pkg/errors"
	"github.com/matzehuels/emergo/pkg/repo"
)

// ebuildText renders a minimal ebuild.
func ebuildText(depend string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(fmt.Sprintf("EAPI=7\nKEYWORDS=\"amd64\"\nDEPEND=\"%s\"\n", depend))}
}

// countingRepo counts ReadFile calls per path.
type countingRepo struct {
	*repo.FS
	reads map[string]int
}

func newCountingRepo(files fstest.MapFS) *countingRepo {
	return &countingRepo{FS: repo.New(files, "/test"), reads: make(map[string]int)}
}

func (r *countingRepo) ReadFile(ctx context.Context, p string) (string, error) {
	r.reads[p]++
	return r.FS.ReadFile(ctx, p)
}

func (r *countingRepo) totalReads() int {
	n := 0
	for _, c := range r.reads {
		n += c
	}
	return n
}

func TestBuildEndToEnd(t *testing.T) {
	r := repo.New(fstest.MapFS{
		"app/foo/foo-1.0.ebuild": ebuildText("lib/bar"),
		"lib/bar/bar-1.0.ebuild": ebuildText(""),
	}, "/test")

	g, err := NewBuilder(r, Options{}).Build(context.Background(), []string{"app/foo"})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if diff := cmp.Diff([]string{"s", "t", "app/foo", "lib/bar"}, g.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	wantEdges := []dag.Edge{
		{From: "s", To: "lib/bar"},
		{From: "app/foo", To: "t"},
		{From: "lib/bar", To: "app/foo"},
	}
	if diff := cmp.Diff(wantEdges, g.Edges()); diff != "" {
		t.Errorf("Edges() mismatch (-want +got):\n%s", diff)
	}

	order, err := g.Toposort()
	if err != nil {
		t.Fatalf("Toposort() error: %v", err)
	}
	if diff := cmp.Diff([]string{"s", "lib/bar", "app/foo", "t"}, order); diff != "" {
		t.Errorf("Toposort() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSharedRootDependency(t *testing.T) {
	r := repo.New(fstest.MapFS{
		"app/foo/foo-1.ebuild": ebuildText("lib/bar"),
		"lib/bar/bar-1.ebuild": ebuildText(""),
	}, "/test")

	g, err := NewBuilder(r, Options{}).Build(context.Background(), []string{"app/foo", "lib/bar"})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	// lib/bar is requested but app/foo depends on it, so only app/foo
	// leads to the sink.
	if g.HasEdge("lib/bar", "t") || !g.HasEdge("app/foo", "t") {
		t.Errorf("sink edges wrong: %v", g.Edges())
	}
}

func TestBuildCycle(t *testing.T) {
	r := repo.New(fstest.MapFS{
		"x/a/a-1.ebuild": ebuildText("x/b"),
		"x/b/b-1.ebuild": ebuildText("x/a"),
	}, "/test")

	g, err := NewBuilder(r, Options{}).Build(context.Background(), []string{"x/a"})
	if !errors.Is(err, errors.ErrCodeCycle) {
		t.Fatalf("Build() error = %v, want CYCLE_DETECTED", err)
	}
	if g != nil {
		t.Error("Build() should not return a graph on cycle")
	}
	if msg := errors.UserMessage(err); !strings.Contains(msg, "x/a -> x/b -> x/a") && !strings.Contains(msg, "x/b -> x/a -> x/b") {
		t.Errorf("cycle message %q should name the cycle", msg)
	}
}

func TestBuildSelfDependency(t *testing.T) {
	r := repo.New(fstest.MapFS{"x/a/a-1.ebuild": ebuildText("x/a")}, "/test")

	_, err := NewBuilder(r, Options{}).Build(context.Background(), []string{"x/a"})
	if !errors.Is(err, errors.ErrCodeCycle) {
		t.Errorf("Build() error = %v, want CYCLE_DETECTED", err)
	}
}

func TestBuildErrors(t *testing.T) {
	files := fstest.MapFS{
		"dev-libs/bar/bar-1.ebuild":   ebuildText(""),
		"net-misc/bar/bar-1.ebuild":   ebuildText(""),
		"app-misc/old/old-1.ebuild":   {Data: []byte("EAPI=4\n")},
		"app-misc/none/none-1.ebuild": {Data: []byte("SLOT=0\n")},
		"app-misc/lex/lex-1.ebuild":   {Data: []byte("EAPI=7\nDEPEND=\"~a/b-1\"\n")},
		"app-misc/dep/dep-1.ebuild":   ebuildText("app-misc/missing"),
	}

	tests := []struct {
		name string
		atom string
		code errors.Code
	}{
		{"invalid atom", "=app-misc/foo", errors.ErrCodeInvalidAtom},
		{"ambiguous short name", "bar", errors.ErrCodeAmbiguousName},
		{"unknown short name", "nothing", errors.ErrCodeNoEbuild},
		{"unknown package", "app-misc/nothing", errors.ErrCodeNoEbuild},
		{"unknown version", "dev-libs/bar-2", errors.ErrCodeNoEbuild},
		{"unsupported eapi", "app-misc/old", errors.ErrCodeUnsupportedEAPI},
		{"missing eapi", "app-misc/none", errors.ErrCodeMissingEAPI},
		{"lex error", "app-misc/lex", errors.ErrCodeLex},
		{"missing dependency", "app-misc/dep", errors.ErrCodeNoEbuild},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := repo.New(files, "/test")
			g, err := NewBuilder(r, Options{}).Build(context.Background(), []string{tt.atom})
			if !errors.Is(err, tt.code) {
				t.Errorf("Build(%q) error = %v, want %s", tt.atom, err, tt.code)
			}
			if g != nil {
				t.Errorf("Build(%q) returned a graph on error", tt.atom)
			}
		})
	}
}

func TestBuildErrorNamesAtom(t *testing.T) {
	r := repo.New(fstest.MapFS{"app-misc/old/old-1.ebuild": {Data: []byte("EAPI=9\n")}}, "/test")

	_, err := NewBuilder(r, Options{}).Build(context.Background(), []string{"app-misc/old"})
	want := "app-misc/old (app-misc/old/old-1.ebuild): EAPI 9 is not supported (supported: 5-7)"
	if got := errors.UserMessage(err); got != want {
		t.Errorf("UserMessage() = %q, want %q", got, want)
	}
}

func TestBuildShortNameWithChooser(t *testing.T) {
	files := fstest.MapFS{
		"dev-libs/bar/bar-1.ebuild": ebuildText(""),
		"net-misc/bar/bar-1.ebuild": ebuildText(""),
	}

	var offered []string
	chooser := CategoryChooserFunc(func(_ context.Context, name string, cats []string) (string, error) {
		offered = cats
		return "net-misc", nil
	})

	b := NewBuilder(repo.New(files, "/test"), Options{Chooser: chooser})
	g, err := b.Build(context.Background(), []string{"bar"})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if diff := cmp.Diff([]string{"dev-libs", "net-misc"}, offered); diff != "" {
		t.Errorf("offered categories mismatch (-want +got):\n%s", diff)
	}
	if !g.HasEdge("s", "bar") || !g.HasEdge("bar", "t") {
		t.Errorf("Edges() = %v", g.Edges())
	}
	if pkgs := b.Packages(); len(pkgs) != 1 || pkgs[0].Name != "net-misc/bar" {
		t.Errorf("Packages() = %+v, want net-misc/bar", pkgs)
	}

	bad := CategoryChooserFunc(func(context.Context, string, []string) (string, error) {
		return "sys-libs", nil
	})
	_, err = NewBuilder(repo.New(files, "/test"), Options{Chooser: bad}).Build(context.Background(), []string{"bar"})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Build() with foreign category error = %v, want INVALID_INPUT", err)
	}
}

func TestBuildShortNameUnique(t *testing.T) {
	r := repo.New(fstest.MapFS{
		"app-misc/foo/foo-1.ebuild": ebuildText("dev-libs/bar"),
		"dev-libs/bar/bar-1.ebuild": ebuildText(""),
	}, "/test")

	b := NewBuilder(r, Options{})
	g, err := b.Build(context.Background(), []string{"foo"})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	order, _ := g.Toposort()
	if diff := cmp.Diff([]string{"s", "t", "foo", "dev-libs/bar"}, g.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if pkgs := b.Packages(); len(pkgs) == 0 || pkgs[0].Name != "app-misc/foo" {
		t.Errorf("Packages() = %+v, want app-misc/foo first", pkgs)
	}
	if diff := cmp.Diff([]string{"s", "dev-libs/bar", "foo", "t"}, order); diff != "" {
		t.Errorf("Toposort() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSelectionPolicy(t *testing.T) {
	files := fstest.MapFS{
		"app-misc/foo/foo-1.0.ebuild":    ebuildText(""),
		"app-misc/foo/foo-1.0_p1.ebuild": ebuildText("dev-libs/patch"),
		"dev-libs/patch/patch-1.ebuild":  ebuildText(""),
	}

	tests := []struct {
		name     string
		selector Selector
		want     []string
	}{
		{"first", FirstCandidate{}, []string{"s", "app-misc/foo", "t"}},
		{"newest", NewestCandidate{}, []string{"s", "dev-libs/patch", "app-misc/foo", "t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(repo.New(files, "/test"), Options{Selector: tt.selector})
			g, err := b.Build(context.Background(), []string{"app-misc/foo"})
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}
			order, _ := g.Toposort()
			if diff := cmp.Diff(tt.want, order); diff != "" {
				t.Errorf("Toposort() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildPinnedVersion(t *testing.T) {
	r := repo.New(fstest.MapFS{
		"app-misc/foo/foo-1.ebuild":    ebuildText(""),
		"app-misc/foo/foo-2-r1.ebuild": ebuildText("dev-libs/two"),
		"dev-libs/two/two-1.ebuild":    ebuildText(""),
	}, "/test")

	b := NewBuilder(r, Options{})
	g, err := b.Build(context.Background(), []string{"app-misc/foo-2"})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !g.HasEdge("dev-libs/two", "app-misc/foo-2") {
		t.Errorf("Edges() = %v, want dev-libs/two -> app-misc/foo-2", g.Edges())
	}
	if v := b.Packages()[0].Needed[0]; v.Raw != "2-r1" {
		t.Errorf("selected version = %s, want 2-r1", v.Raw)
	}
}

func TestBuildMemoizesMetadata(t *testing.T) {
	// Diamond: top depends on left and right, both depend on base.
	r := newCountingRepo(fstest.MapFS{
		"x/top/top-1.ebuild":     ebuildText("x/left x/right"),
		"x/left/left-1.ebuild":   ebuildText("x/base"),
		"x/right/right-1.ebuild": ebuildText("x/base"),
		"x/base/base-1.ebuild":   ebuildText(""),
	})

	g, err := NewBuilder(r, Options{}).Build(context.Background(), []string{"x/top"})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if n := r.reads["x/base/base-1.ebuild"]; n != 1 {
		t.Errorf("x/base read %d times, want 1", n)
	}
	if g.NodeCount() != 6 || g.EdgeCount() != 6 {
		t.Errorf("graph = %d nodes, %d edges; want 6, 6", g.NodeCount(), g.EdgeCount())
	}
	assertOrderRespectsEdges(t, g)
}

func TestBuildCachedMetadataIdenticalGraph(t *testing.T) {
	files := fstest.MapFS{
		"x/top/top-1.ebuild":     ebuildText("x/left x/right[ssl]"),
		"x/left/left-1.ebuild":   ebuildText("x/base"),
		"x/right/right-1.ebuild": ebuildText("x/base"),
		"x/base/base-1.ebuild":   ebuildText(""),
	}
	fc, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Cache: fc, CacheTTL: time.Hour}

	cold := newCountingRepo(files)
	g1, err := NewBuilder(cold, opts).Build(context.Background(), []string{"x/top"})
	if err != nil {
		t.Fatalf("cold Build() error: %v", err)
	}

	warm := newCountingRepo(files)
	b := NewBuilder(warm, opts)
	g2, err := b.Build(context.Background(), []string{"x/top"})
	if err != nil {
		t.Fatalf("warm Build() error: %v", err)
	}

	if warm.totalReads() != 0 {
		t.Errorf("warm build read %d files, want 0", warm.totalReads())
	}
	if diff := cmp.Diff(g1.Names(), g2.Names()); diff != "" {
		t.Errorf("Names() differ (-cold +warm):\n%s", diff)
	}
	if diff := cmp.Diff(g1.Edges(), g2.Edges()); diff != "" {
		t.Errorf("Edges() differ (-cold +warm):\n%s", diff)
	}

	var right *Package
	for _, p := range b.Packages() {
		if p.Name == "x/right" {
			right = p
		}
	}
	if right == nil || !cmp.Equal([]string{"ssl"}, right.NeededUseFlags) {
		t.Errorf("x/right NeededUseFlags = %+v, want [ssl]", right)
	}
}

func TestBuildCacheSeesEditedEbuild(t *testing.T) {
	then := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		before, after time.Time
	}{
		{"mtime changes", then, then.Add(time.Second)},
		{"no mtime", time.Time{}, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := fstest.MapFS{
				"app-x/foo/foo-1.ebuild": {Data: ebuildText("lib-x/bar").Data, ModTime: tt.before},
				"lib-x/bar/bar-1.ebuild": ebuildText(""),
				"lib-x/baz/baz-1.ebuild": ebuildText(""),
			}
			fc, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
			if err != nil {
				t.Fatal(err)
			}
			opts := Options{Cache: fc, CacheTTL: time.Hour}

			if _, err := NewBuilder(repo.New(files, "/test"), opts).Build(context.Background(), []string{"app-x/foo"}); err != nil {
				t.Fatalf("first Build() error: %v", err)
			}

			// Same size, new dependency.
			files["app-x/foo/foo-1.ebuild"] = &fstest.MapFile{Data: ebuildText("lib-x/baz").Data, ModTime: tt.after}

			cached, err := NewBuilder(repo.New(files, "/test"), opts).Build(context.Background(), []string{"app-x/foo"})
			if err != nil {
				t.Fatalf("cached Build() error: %v", err)
			}
			fresh, err := NewBuilder(repo.New(files, "/test"), Options{}).Build(context.Background(), []string{"app-x/foo"})
			if err != nil {
				t.Fatalf("uncached Build() error: %v", err)
			}
			if diff := cmp.Diff(fresh.Edges(), cached.Edges()); diff != "" {
				t.Errorf("cached Edges() differ (-uncached +cached):\n%s", diff)
			}
			if !cached.HasEdge("lib-x/baz", "app-x/foo") {
				t.Errorf("Edges() = %v, want lib-x/baz -> app-x/foo", cached.Edges())
			}
		})
	}
}

func TestBuildRejectsSentinelNames(t *testing.T) {
	r := repo.New(fstest.MapFS{
		"app-misc/t/t-1.ebuild": ebuildText(""),
		"app-misc/s/s-1.ebuild": ebuildText(""),
	}, "/test")

	for _, name := range []string{dag.Source, dag.Sink} {
		g, err := NewBuilder(r, Options{}).Build(context.Background(), []string{"app-misc/foo", name})
		if !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("Build(%q) error = %v, want INVALID_INPUT", name, err)
		}
		if g != nil {
			t.Errorf("Build(%q) returned a graph", name)
		}
	}

	g, err := NewBuilder(r, Options{}).Build(context.Background(), []string{"app-misc/t"})
	if err != nil {
		t.Fatalf("Build(app-misc/t) error: %v", err)
	}
	order, _ := g.Toposort()
	if diff := cmp.Diff([]string{"s", "app-misc/t", "t"}, order); diff != "" {
		t.Errorf("Toposort() mismatch (-want +got):\n%s", diff)
	}
}

// failingCache errors on every operation.
type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, cache.ErrNetwork
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return cache.ErrNetwork
}

func (failingCache) Delete(context.Context, string) error { return cache.ErrNetwork }
func (failingCache) Close() error                         { return nil }

func TestBuildCacheFailureIsMiss(t *testing.T) {
	r := repo.New(fstest.MapFS{
		"app/foo/foo-1.ebuild": ebuildText("lib/bar"),
		"lib/bar/bar-1.ebuild": ebuildText(""),
	}, "/test")

	var logged []string
	opts := Options{
		Cache:  failingCache{},
		Logger: func(format string, args ...any) { logged = append(logged, fmt.Sprintf(format, args...)) },
	}
	g, err := NewBuilder(r, opts).Build(context.Background(), []string{"app/foo"})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if g.EdgeCount() != 3 {
		t.Errorf("EdgeCount() = %d, want 3", g.EdgeCount())
	}
	if !strings.Contains(strings.Join(logged, "\n"), "metadata cache read failed") {
		t.Errorf("cache failure not logged: %v", logged)
	}
}

func TestBuildCanceled(t *testing.T) {
	r := repo.New(fstest.MapFS{"app/foo/foo-1.ebuild": ebuildText("")}, "/test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(r, Options{}).Build(ctx, []string{"app/foo"})
	if err != context.Canceled {
		t.Errorf("Build() error = %v, want context.Canceled", err)
	}
}

func TestBuildDeepChain(t *testing.T) {
	const depth = 2000
	files := fstest.MapFS{}
	for i := range depth {
		dep := ""
		if i+1 < depth {
			dep = fmt.Sprintf("c/p%d", i+1)
		}
		files[fmt.Sprintf("c/p%d/p%d-1.ebuild", i, i)] = ebuildText(dep)
	}

	g, err := NewBuilder(repo.New(files, "/test"), Options{}).Build(context.Background(), []string{"c/p0"})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	order, err := g.Toposort()
	if err != nil {
		t.Fatal(err)
	}
	if len(order) != depth+2 || order[1] != fmt.Sprintf("c/p%d", depth-1) || order[depth] != "c/p0" {
		t.Errorf("order has %d entries, starts %v", len(order), order[:3])
	}
}

func TestBuildResetsBetweenRuns(t *testing.T) {
	r := repo.New(fstest.MapFS{
		"app/foo/foo-1.ebuild": ebuildText(""),
		"app/baz/baz-1.ebuild": ebuildText(""),
	}, "/test")
	b := NewBuilder(r, Options{})

	if _, err := b.Build(context.Background(), []string{"app/foo"}); err != nil {
		t.Fatal(err)
	}
	g, err := b.Build(context.Background(), []string{"app/baz"})
	if err != nil {
		t.Fatal(err)
	}
	if g.HasNode("app/foo") || len(b.Packages()) != 1 {
		t.Errorf("second build leaked state: nodes %v, %d packages", g.Names(), len(b.Packages()))
	}
}

func TestPackages(t *testing.T) {
	r := repo.New(fstest.MapFS{
		"app-misc/foo/foo-1.ebuild": {Data: []byte(
			"EAPI=7\nSLOT=\"2/2.1\"\nKEYWORDS=\"~amd64 x86\"\nIUSE=\"+ssl\"\n" +
				"DEPEND=\"ssl? ( dev-libs/ssl[static(+),-shared,doc?] ) dev-libs/ssl\"\n")},
		"dev-libs/ssl/ssl-3.ebuild": {Data: []byte("EAPI=6\nKEYWORDS=\"-amd64\"\n")},
	}, "/test")

	b := NewBuilder(r, Options{})
	if _, err := b.Build(context.Background(), []string{"app-misc/foo"}); err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	pkgs := b.Packages()
	if len(pkgs) != 2 {
		t.Fatalf("Packages() = %d, want 2", len(pkgs))
	}

	foo, ssl := pkgs[0], pkgs[1]
	if foo.Name != "app-misc/foo" || foo.Slot != "2" || foo.Subslot != "2.1" {
		t.Errorf("foo = %+v", foo)
	}
	v := foo.Needed[0]
	if v.Kind != KindUnstable || v.EAPI != 7 || v.Raw != "1" {
		t.Errorf("foo version = %+v", v)
	}
	if diff := cmp.Diff([]string{"ssl"}, v.UseGroups); diff != "" {
		t.Errorf("UseGroups mismatch (-want +got):\n%s", diff)
	}
	if len(v.DependsOn) != 2 || v.DependsOn[0].Key() != "dev-libs/ssl" {
		t.Errorf("DependsOn = %+v", v.DependsOn)
	}

	if ssl.Name != "dev-libs/ssl" || ssl.Needed[0].Kind != KindMasked || ssl.Slot != "0" {
		t.Errorf("ssl = %+v", ssl)
	}
	if diff := cmp.Diff([]string{"static"}, ssl.NeededUseFlags); diff != "" {
		t.Errorf("NeededUseFlags mismatch (-want +got):\n%s", diff)
	}
	if ssl.Installed != nil || ssl.Needed[0].Status != StatusUnchanged {
		t.Errorf("ssl installed/status = %v/%v", ssl.Installed, ssl.Needed[0].Status)
	}
}

func assertOrderRespectsEdges(t *testing.T, g *dag.Graph) {
	t.Helper()
	order, err := g.Toposort()
	if err != nil {
		t.Fatalf("Toposort() error: %v", err)
	}
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	for _, e := range g.Edges() {
		if pos[e.From] >= pos[e.To] {
			t.Errorf("edge %s -> %s violated by order %v", e.From, e.To, order)
		}
	}
}
