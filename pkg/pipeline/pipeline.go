// Package pipeline runs a complete resolution: repository lookup, graph
// construction and topological ordering, with caching and logging wired in.
//
// The CLI and the HTTP server both go through a [Runner], so they share the
// same defaults, cache handling and log output.
//
// # Usage
//
//	runner := pipeline.NewRunner(repo.Open(root), fileCache, nil, logger)
//	res, err := runner.Resolve(ctx, pipeline.Options{
//	    Atoms:  []string{"app-misc/foo"},
//	    Policy: deps.PolicyNewest,
//	})
//	if err != nil {
//	    return err
//	}
//	for _, name := range res.Order {
//	    fmt.Println(name)
//	}
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/emergo/pkg/dag"
	"github.com/matzehuels/emergo/pkg/deps"
	"github.com/matzehuels/emergo/pkg/errors"
)

// Defaults shared by the CLI, the config file and the HTTP server.
const (
	DefaultArch     = deps.DefaultArch
	DefaultPolicy   = deps.PolicyFirst
	DefaultCacheTTL = deps.DefaultCacheTTL
)

// Options describes one resolution request.
type Options struct {
	// Atoms are the requested package atoms, full or short.
	Atoms []string `json:"atoms"`
	// Arch classifies versions by KEYWORDS (default: amd64).
	Arch string `json:"arch,omitempty"`
	// Policy selects among candidate ebuilds: "first" or "newest".
	Policy string `json:"policy,omitempty"`
	// Chooser settles ambiguous short names. Without one they fail.
	Chooser deps.CategoryChooser `json:"-"`

	validated bool
}

// Result is the outcome of a successful resolution.
type Result struct {
	// RunID identifies the run in logs and API responses.
	RunID uuid.UUID
	// Graph is the full dependency graph, sentinels included.
	Graph *dag.Graph
	// Order is the build order without the sentinels.
	Order []string
	// Packages lists the discovered packages in discovery order.
	Packages []*deps.Package
	// Stats holds sizes and timing.
	Stats Stats
}

// Stats contains resolution statistics.
type Stats struct {
	NodeCount    int
	EdgeCount    int
	PackageCount int
	Duration     time.Duration
}

// ValidateAndSetDefaults checks the request and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Atoms) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "at least one package atom is required")
	}
	for _, a := range o.Atoms {
		if a == "" {
			return errors.New(errors.ErrCodeInvalidInput, "package atom must not be empty")
		}
	}
	if o.Arch == "" {
		o.Arch = DefaultArch
	}
	if o.Policy == "" {
		o.Policy = DefaultPolicy
	}
	if _, err := deps.SelectorFor(o.Policy); err != nil {
		return err
	}
	o.validated = true
	return nil
}

func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}
