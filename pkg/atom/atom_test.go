package atom

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/emergo/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Atom
	}{
		{"cat/name-1.2.3-r4:slot1", Atom{Category: "cat", Name: "name", Version: "1.2.3", Revision: "4", Slot: "slot1"}},
		{"name", Atom{Name: "name", Slot: "0"}},
		{"app/foo", Atom{Category: "app", Name: "foo", Slot: "0"}},
		{"sys-libs/zlib-1.3", Atom{Category: "sys-libs", Name: "zlib", Version: "1.3", Slot: "0"}},
		{"dev-lang/python-3.12.1_rc2:3.12", Atom{Category: "dev-lang", Name: "python", Version: "3.12.1_rc2", Slot: "3.12"}},
		{"gentoo-sources-6.6.13", Atom{Name: "gentoo-sources", Version: "6.6.13", Slot: "0"}},
		{"x11-libs/gtk+:3", Atom{Category: "x11-libs", Name: "gtk+", Slot: "3"}},
		{"media-libs/libpng-1.6.43a_p20240101", Atom{Category: "media-libs", Name: "libpng", Version: "1.6.43a_p20240101", Slot: "0"}},
		{"dev-util/foo-bar-baz", Atom{Category: "dev-util", Name: "foo-bar-baz", Slot: "0"}},
		{"foo-1", Atom{Name: "foo", Version: "1", Slot: "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.in, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	inputs := []string{
		"",
		"/name",
		"cat/",
		"a/b/c",
		"-foo",
		"foo:",
		"foo bar",
		">=dev-libs/openssl-3",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", in)
			}
			if !errors.Is(err, errors.ErrCodeInvalidAtom) {
				t.Errorf("Parse(%q) code = %v, want %v", in, errors.GetCode(err), errors.ErrCodeInvalidAtom)
			}
		})
	}
}

func TestAtomString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cat/name-1.2.3-r4:slot1", "cat/name-1.2.3-r4:slot1"},
		{"name", "name"},
		{"app/foo:0", "app/foo"},
		{"app/foo-2", "app/foo-2"},
	}

	for _, tt := range tests {
		if got := MustParse(tt.in).String(); got != tt.want {
			t.Errorf("String() of %q = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAtomKey(t *testing.T) {
	if got := MustParse("cat/name-1.0").Key(); got != "cat/name" {
		t.Errorf("Key() = %q, want cat/name", got)
	}
	if got := MustParse("name").Key(); got != "name" {
		t.Errorf("Key() = %q, want name", got)
	}
	if got := MustParse("name").WithCategory("app").Key(); got != "app/name" {
		t.Errorf("WithCategory().Key() = %q, want app/name", got)
	}
}

func TestParseConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				a, err := Parse("cat/name-1.2.3-r4:slot1")
				if err != nil || a.Revision != "4" {
					t.Errorf("concurrent Parse() = %+v, %v", a, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
