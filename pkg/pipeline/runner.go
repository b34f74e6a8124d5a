package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/matzehuels/emergo/pkg/cache"
	"github.com/matzehuels/emergo/pkg/dag"
	"github.com/matzehuels/emergo/pkg/deps"
	"github.com/matzehuels/emergo/pkg/observability"
)

// Runner resolves build orders against one repository.
//
// The Runner holds no per-run state: every Resolve call creates its own
// builder and graph, so a single Runner may serve concurrent requests as long
// as its Cache is safe for concurrent use.
type Runner struct {
	Repo     deps.Repository
	Cache    cache.Cache
	Keyer    cache.Keyer
	CacheTTL time.Duration
	Logger   *log.Logger
}

// NewRunner creates a runner reading from repo.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
// If logger is nil, log output is discarded.
func NewRunner(repo deps.Repository, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Runner{
		Repo:     repo,
		Cache:    c,
		Keyer:    keyer,
		CacheTTL: DefaultCacheTTL,
		Logger:   logger,
	}
}

// Resolve builds the dependency graph for opts.Atoms and orders it.
func (r *Runner) Resolve(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	selector, err := deps.SelectorFor(opts.Policy)
	if err != nil {
		return nil, err
	}

	runID := uuid.New()
	logger := r.Logger.With("run", runID.String()[:8])
	logger.Info("resolving", "atoms", opts.Atoms, "policy", opts.Policy, "arch", opts.Arch)

	hooks := observability.Resolve()
	hooks.OnResolveStart(ctx, opts.Atoms)
	start := time.Now()

	b := deps.NewBuilder(r.Repo, deps.Options{
		Arch:     opts.Arch,
		Selector: selector,
		Chooser:  opts.Chooser,
		Cache:    r.Cache,
		Keyer:    r.Keyer,
		CacheTTL: r.CacheTTL,
		Logger:   logger.Debugf,
	})

	g, order, err := build(ctx, b, opts.Atoms)
	elapsed := time.Since(start)
	nodes := 0
	if g != nil {
		nodes = g.NodeCount()
	}
	hooks.OnResolveComplete(ctx, opts.Atoms, nodes, elapsed, err)
	if err != nil {
		logger.Error("resolution failed", "error", err, "duration", elapsed)
		return nil, err
	}

	res := &Result{
		RunID:    runID,
		Graph:    g,
		Order:    lo.Reject(order, func(name string, _ int) bool { return name == dag.Source || name == dag.Sink }),
		Packages: b.Packages(),
	}
	res.Stats = Stats{
		NodeCount:    g.NodeCount(),
		EdgeCount:    g.EdgeCount(),
		PackageCount: len(res.Packages),
		Duration:     elapsed,
	}

	logger.Info("resolved build order",
		"packages", res.Stats.PackageCount,
		"nodes", res.Stats.NodeCount,
		"edges", res.Stats.EdgeCount,
		"duration", elapsed)
	return res, nil
}

func build(ctx context.Context, b *deps.Builder, atoms []string) (*dag.Graph, []string, error) {
	g, err := b.Build(ctx, atoms)
	if err != nil {
		return nil, nil, err
	}
	order, err := g.Toposort()
	if err != nil {
		return g, nil, err
	}
	return g, order, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
