package deps

import (
	"slices"
	"time"

	"github.com/matzehuels/emergo/pkg/atom"
	"github.com/matzehuels/emergo/pkg/cache"
)

const (
	DefaultArch     = "amd64"        // Default KEYWORDS architecture
	DefaultCacheTTL = 24 * time.Hour // Default metadata cache duration
)

// Options configures a Builder.
type Options struct {
	Arch     string               // Architecture used to classify versions (default: amd64)
	Selector Selector             // Picks one ebuild among candidates (default: FirstCandidate)
	Chooser  CategoryChooser      // Settles ambiguous short names (default: fail)
	Cache    cache.Cache          // Cross-run metadata cache (default: none)
	Keyer    cache.Keyer          // Cache key derivation (default: cache.DefaultKeyer)
	CacheTTL time.Duration        // Metadata cache duration (default: 24h)
	Logger   func(string, ...any) // Progress/error callback (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Arch == "" {
		opts.Arch = DefaultArch
	}
	if opts.Selector == nil {
		opts.Selector = FirstCandidate{}
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}

// Kind is the stability of a version on the configured architecture.
type Kind int

const (
	KindStable   Kind = iota // keyworded "arch"
	KindUnstable             // keyworded "~arch"
	KindMasked               // not keyworded, or "-arch"
)

func (k Kind) String() string {
	switch k {
	case KindStable:
		return "stable"
	case KindUnstable:
		return "unstable"
	default:
		return "masked"
	}
}

// KindFor classifies a version from its KEYWORDS for arch.
func KindFor(keywords []string, arch string) Kind {
	kind := KindMasked
	for _, kw := range keywords {
		switch kw {
		case arch:
			return KindStable
		case "~" + arch:
			kind = KindUnstable
		}
	}
	return kind
}

// Status records user overrides of a version's Kind. Overrides are not read
// from any configuration yet, so every resolved version is StatusUnchanged.
type Status int

const (
	StatusUnchanged Status = iota
	StatusMaskedByUser
	StatusUnmaskedByUser
)

func (s Status) String() string {
	switch s {
	case StatusMaskedByUser:
		return "masked-by-user"
	case StatusUnmaskedByUser:
		return "unmasked-by-user"
	default:
		return "unchanged"
	}
}

// Version is one ebuild of a package.
type Version struct {
	Raw       string      // Version with revision, e.g. "1.2.3-r1"
	Path      string      // Ebuild path relative to the repository root
	EAPI      int         // Declared EAPI
	Kind      Kind        // Stability on the configured architecture
	Status    Status      // User override of Kind
	UseFlags  []string    // IUSE, defaults kept ("+ssl")
	UseGroups []string    // USE flags gating DEPEND groups ("!static")
	DependsOn []atom.Atom // Parsed DEPEND references, source order
}

// Package aggregates the versions of one category/name discovered during a
// build.
type Package struct {
	Name      string   // category/name
	Slot      string   // Slot of the first version loaded
	Subslot   string   // Subslot of the first version loaded
	Installed *Version // Installed version; no installed-package database is read, so always nil
	// Versions holds every version loaded for the package, and Needed the
	// ones selected to satisfy an atom. With a single selection per atom the
	// two only differ in order when a version is reached through several atoms.
	Versions []*Version
	Needed   []*Version
	// NeededUseFlags lists flags that dependents enable through USE
	// dependencies ("cat/pkg[flag]"), in discovery order.
	NeededUseFlags []string
}

func (p *Package) addVersion(v *Version) {
	if !slices.ContainsFunc(p.Versions, func(o *Version) bool { return o.Raw == v.Raw }) {
		p.Versions = append(p.Versions, v)
	}
}

func (p *Package) addNeeded(v *Version) {
	if !slices.Contains(p.Needed, v) {
		p.Needed = append(p.Needed, v)
	}
}

func (p *Package) addUseFlags(flags []string) {
	for _, f := range flags {
		if !slices.Contains(p.NeededUseFlags, f) {
			p.NeededUseFlags = append(p.NeededUseFlags, f)
		}
	}
}
