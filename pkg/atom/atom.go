package atom

import (
	"regexp"
	"strings"

	"github.com/matzehuels/emergo/pkg/errors"
)

// DefaultSlot is assigned when an atom carries no ":slot" suffix.
const DefaultSlot = "0"

const (
	catPattern  = `[A-Za-z0-9_][A-Za-z0-9_.+-]*`
	namePattern = `[A-Za-z0-9_][A-Za-z0-9_.+-]*?`
	slotPattern = `[A-Za-z0-9_+][A-Za-z0-9_+.-]*`
	// VersionPattern matches a bare ebuild version without revision.
	VersionPattern = `\d+(?:\.\d+)*[a-z]?(?:_(?:pre|p|beta|alpha|rc)\d*)*`
)

var atomRe = regexp.MustCompile(
	`^(?:(?P<cat>` + catPattern + `)/)?` +
		`(?P<name>` + namePattern + `)` +
		`(?:-(?P<ver>` + VersionPattern + `)(?:-r(?P<rev>\d+))?)?` +
		`(?::(?P<slot>` + slotPattern + `))?$`,
)

var (
	catIdx  = atomRe.SubexpIndex("cat")
	nameIdx = atomRe.SubexpIndex("name")
	verIdx  = atomRe.SubexpIndex("ver")
	revIdx  = atomRe.SubexpIndex("rev")
	slotIdx = atomRe.SubexpIndex("slot")
)

// Atom is a parsed package reference. Empty strings mean the component was
// absent from the source text, except Slot which defaults to [DefaultSlot].
type Atom struct {
	Category string
	Name     string
	Slot     string
	Version  string
	Revision string
}

// Parse parses text of the form [[category]/]name[-version[-r<rev>]][:slot].
// It returns an INVALID_ATOM_SYNTAX error when text does not match.
// Parse is safe for concurrent use.
func Parse(text string) (Atom, error) {
	m := atomRe.FindStringSubmatch(text)
	if m == nil {
		return Atom{}, errors.New(errors.ErrCodeInvalidAtom, "'%s' is not a valid package atom", text)
	}
	a := Atom{
		Category: m[catIdx],
		Name:     m[nameIdx],
		Version:  m[verIdx],
		Revision: m[revIdx],
		Slot:     m[slotIdx],
	}
	if a.Slot == "" {
		a.Slot = DefaultSlot
	}
	return a, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level tables.
func MustParse(text string) Atom {
	a, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return a
}

// HasCategory reports whether the atom was qualified with a category.
func (a Atom) HasCategory() bool { return a.Category != "" }

// HasVersion reports whether the atom pins a version.
func (a Atom) HasVersion() bool { return a.Version != "" }

// Key returns "category/name", or just the name when no category is known.
// Packages are aggregated under this key.
func (a Atom) Key() string {
	if a.Category == "" {
		return a.Name
	}
	return a.Category + "/" + a.Name
}

// FullVersion returns the version with its "-rN" revision suffix, if any.
func (a Atom) FullVersion() string {
	if a.Revision == "" {
		return a.Version
	}
	return a.Version + "-r" + a.Revision
}

// WithCategory returns a copy of a with the category replaced.
func (a Atom) WithCategory(category string) Atom {
	a.Category = category
	return a
}

// String renders the atom back into its textual form. The default slot is
// omitted.
func (a Atom) String() string {
	var b strings.Builder
	b.WriteString(a.Key())
	if v := a.FullVersion(); v != "" {
		b.WriteByte('-')
		b.WriteString(v)
	}
	if a.Slot != "" && a.Slot != DefaultSlot {
		b.WriteByte(':')
		b.WriteString(a.Slot)
	}
	return b.String()
}
