// Package ebuild extracts build metadata from the text of an ebuild file.
//
// Ebuilds are shell scripts; only the top-level variable assignments that
// matter for dependency ordering are read:
//
//	EAPI="7"
//	SLOT="0/1.2"
//	KEYWORDS="amd64 ~arm64"
//	IUSE="+ssl static"
//	DEPEND="ssl? ( dev-libs/openssl:0= ) sys-libs/zlib"
//
// Each field is located independently, so their order in the file does not
// matter. Values may be double-quoted (and then span lines), single-quoted
// or bare. Only EAPI is mandatory.
package ebuild

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/emergo/pkg/atom"
	"github.com/matzehuels/emergo/pkg/depexpr"
	"github.com/matzehuels/emergo/pkg/errors"
)

// Supported EAPI range, inclusive.
const (
	MinEAPI = 5
	MaxEAPI = 7
)

// Metadata is the subset of an ebuild needed to place it in a build order.
type Metadata struct {
	EAPI     int      `json:"eapi"`
	Slot     string   `json:"slot"`
	Subslot  string   `json:"subslot,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	// Depends lists the package references of DEPEND in source order, as
	// raw atom text.
	Depends []string `json:"depends,omitempty"`
	// UseConditionals lists the USE flags gating groups in DEPEND, with a
	// leading "!" for negated conditions.
	UseConditionals []string `json:"use_conditionals,omitempty"`
	// UseDeps maps a package reference from Depends to the USE flags it
	// requests in brackets, e.g. "net-misc/curl" -> ["ssl", "http2?"].
	UseDeps  map[string][]string `json:"use_deps,omitempty"`
	UseFlags []string            `json:"use_flags,omitempty"`
}

func fieldPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[ \t]*(?:export[ \t]+)?` + name +
		`=(?:"([^"]*)"|'([^']*)'|([^\s"'#;]*))`)
}

var (
	eapiRe     = fieldPattern("EAPI")
	slotRe     = fieldPattern("SLOT")
	keywordsRe = fieldPattern("KEYWORDS")
	dependRe   = fieldPattern("DEPEND")
	iuseRe     = fieldPattern("IUSE")
)

// field returns the value assigned by the first match of re and whether the
// variable was assigned at all.
func field(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	for _, v := range m[1:] {
		if v != "" {
			return v, true
		}
	}
	return "", true
}

// Extract parses raw ebuild text. It fails with MISSING_EAPI when no EAPI is
// assigned, UNSUPPORTED_EAPI when the EAPI is not an integer in
// [MinEAPI, MaxEAPI], and LEX_ERROR when DEPEND cannot be tokenized.
func Extract(text string) (*Metadata, error) {
	eapi, err := parseEAPI(text)
	if err != nil {
		return nil, err
	}
	md := &Metadata{EAPI: eapi, Slot: atom.DefaultSlot}

	if v, _ := field(slotRe, text); v != "" {
		md.Slot, md.Subslot, _ = strings.Cut(strings.TrimSpace(v), "/")
		if md.Slot == "" {
			md.Slot = atom.DefaultSlot
		}
	}

	if v, ok := field(keywordsRe, text); ok {
		md.Keywords = strings.Fields(v)
	}

	if v, ok := field(iuseRe, text); ok {
		md.UseFlags = strings.Fields(v)
	}

	if v, ok := field(dependRe, text); ok {
		if err := md.readDepend(v); err != nil {
			return nil, err
		}
	}

	return md, nil
}

func parseEAPI(text string) (int, error) {
	v, ok := field(eapiRe, text)
	if !ok {
		return 0, errors.New(errors.ErrCodeMissingEAPI, "EAPI is not declared")
	}
	eapi, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, errors.New(errors.ErrCodeUnsupportedEAPI, "EAPI %q is not supported", v)
	}
	if eapi < MinEAPI || eapi > MaxEAPI {
		return 0, errors.New(errors.ErrCodeUnsupportedEAPI,
			"EAPI %d is not supported (supported: %d-%d)", eapi, MinEAPI, MaxEAPI)
	}
	return eapi, nil
}

func (md *Metadata) readDepend(expr string) error {
	var prev *depexpr.Token
	negated := false
	lastPkg := ""
	for tok, err := range depexpr.Tokenize(expr) {
		if err != nil {
			return err
		}
		switch {
		case tok.Kind == depexpr.PackageName:
			md.Depends = append(md.Depends, tok.Text)
			lastPkg = tok.Text
		case tok.Kind == depexpr.PackageSlot:
			// A slot may sit between a package and its USE group.
		case tok.Kind == depexpr.PackageUseGroup && lastPkg != "":
			if md.UseDeps == nil {
				md.UseDeps = make(map[string][]string)
			}
			md.UseDeps[lastPkg] = append(md.UseDeps[lastPkg], tok.Flags...)
		case tok.Kind == depexpr.Conditional && tok.Op == depexpr.If && prev != nil && prev.Kind == depexpr.UseFlag:
			label := prev.Text
			if negated {
				label = "!" + label
			}
			md.UseConditionals = append(md.UseConditionals, label)
		}
		if tok.Kind != depexpr.PackageName && tok.Kind != depexpr.PackageSlot {
			lastPkg = ""
		}
		// A "!" directly before a USE flag negates the conditional.
		negated = prev != nil && prev.Kind == depexpr.Conditional && prev.Op == depexpr.WeakBlocker &&
			tok.Kind == depexpr.UseFlag
		t := tok
		prev = &t
	}
	return nil
}
