package deps

import (
	"path"
	"strings"

	"github.com/samber/lo"

	"github.com/matzehuels/emergo/pkg/atom"
	"github.com/matzehuels/emergo/pkg/errors"
)

// Policy names accepted by SelectorFor.
const (
	PolicyFirst  = "first"
	PolicyNewest = "newest"
)

// Selector picks the ebuild that satisfies an atom from the candidates the
// repository returned. Candidates are never empty.
type Selector interface {
	Select(candidates []string) (string, error)
}

// FirstCandidate selects the first candidate in repository order.
type FirstCandidate struct{}

func (FirstCandidate) Select(candidates []string) (string, error) {
	return candidates[0], nil
}

// NewestCandidate selects the candidate with the highest version. Ties keep
// the earlier candidate.
type NewestCandidate struct{}

func (NewestCandidate) Select(candidates []string) (string, error) {
	return lo.MaxBy(candidates, func(a, b string) bool {
		return atom.CompareVersions(versionOf(a), versionOf(b)) > 0
	}), nil
}

// SelectorFor returns the selector for a policy name.
func SelectorFor(policy string) (Selector, error) {
	switch policy {
	case "", PolicyFirst:
		return FirstCandidate{}, nil
	case PolicyNewest:
		return NewestCandidate{}, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"unknown selection policy %q (want %s or %s)", policy, PolicyFirst, PolicyNewest)
	}
}

// versionOf extracts "1.2-r1" from "cat/name/name-1.2-r1.ebuild".
func versionOf(p string) string {
	name := path.Base(path.Dir(p))
	base := strings.TrimSuffix(path.Base(p), ".ebuild")
	return strings.TrimPrefix(base, name+"-")
}
