package atom

import (
	"cmp"
	"regexp"
	"strconv"
	"strings"
)

var versionRe = regexp.MustCompile(`^(\d+(?:\.\d+)*)([a-z]?)((?:_(?:pre|p|beta|alpha|rc)\d*)*)(?:-r(\d+))?$`)

var suffixRe = regexp.MustCompile(`_(pre|p|beta|alpha|rc)(\d*)`)

// suffixRank orders release suffixes; a missing suffix sits between rc and p.
var suffixRank = map[string]int{
	"alpha": 0,
	"beta":  1,
	"pre":   2,
	"rc":    3,
	"p":     5,
}

const noSuffixRank = 4

type suffix struct {
	rank int
	num  int64
}

type parsedVersion struct {
	components []string
	letter     string
	suffixes   []suffix
	revision   int64
}

// ValidVersion reports whether v is a well-formed ebuild version, with an
// optional "-rN" revision.
func ValidVersion(v string) bool {
	return versionRe.MatchString(v)
}

func parseVersion(v string) (parsedVersion, bool) {
	m := versionRe.FindStringSubmatch(v)
	if m == nil {
		return parsedVersion{}, false
	}
	pv := parsedVersion{
		components: strings.Split(m[1], "."),
		letter:     m[2],
	}
	for _, s := range suffixRe.FindAllStringSubmatch(m[3], -1) {
		n, _ := strconv.ParseInt(s[2], 10, 64)
		pv.suffixes = append(pv.suffixes, suffix{rank: suffixRank[s[1]], num: n})
	}
	if m[4] != "" {
		pv.revision, _ = strconv.ParseInt(m[4], 10, 64)
	}
	return pv, true
}

// CompareVersions compares two ebuild versions (revision suffix allowed) and
// returns -1, 0 or +1. Malformed versions sort before well-formed ones and
// compare lexically among themselves.
func CompareVersions(a, b string) int {
	pa, okA := parseVersion(a)
	pb, okB := parseVersion(b)
	switch {
	case !okA && !okB:
		return strings.Compare(a, b)
	case !okA:
		return -1
	case !okB:
		return 1
	}

	if c := compareComponents(pa.components, pb.components); c != 0 {
		return c
	}
	if c := strings.Compare(pa.letter, pb.letter); c != 0 {
		return c
	}
	if c := compareSuffixes(pa.suffixes, pb.suffixes); c != 0 {
		return c
	}
	return cmp.Compare(pa.revision, pb.revision)
}

func compareComponents(a, b []string) int {
	if c := compareInt(a[0], b[0]); c != 0 {
		return c
	}
	for i := 1; i < min(len(a), len(b)); i++ {
		x, y := a[i], b[i]
		var c int
		if strings.HasPrefix(x, "0") || strings.HasPrefix(y, "0") {
			// Leading zeros compare as decimal fractions.
			c = strings.Compare(strings.TrimRight(x, "0"), strings.TrimRight(y, "0"))
		} else {
			c = compareInt(x, y)
		}
		if c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

func compareInt(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func compareSuffixes(a, b []suffix) int {
	for i := range max(len(a), len(b)) {
		x, y := suffix{rank: noSuffixRank}, suffix{rank: noSuffixRank}
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if c := cmp.Compare(x.rank, y.rank); c != 0 {
			return c
		}
		if c := cmp.Compare(x.num, y.num); c != 0 {
			return c
		}
	}
	return 0
}
