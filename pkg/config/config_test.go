package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"github.com/matzehuels/emergo/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	cfg, path, err := Load(context.Background(), LoadOptions{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want none", path)
	}
	if diff := cmp.Diff(Default(), *cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	dir := writeConfig(t, `
repo = "/srv/gentoo"
policy = "newest"

[cache]
backend = "redis"
redis_url = "redis://localhost:6379/1"
ttl = "90m"
`)
	cfg, path, err := Load(context.Background(), LoadOptions{Dir: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if path != filepath.Join(dir, FileName) {
		t.Errorf("path = %q", path)
	}

	want := Default()
	want.Repo = "/srv/gentoo"
	want.Policy = "newest"
	want.Cache.Backend = BackendRedis
	want.Cache.RedisURL = "redis://localhost:6379/1"
	want.Cache.TTL = 90 * time.Minute
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := writeConfig(t, "arch = \"arm64\"\npolicy = \"newest\"\nrepo = \"/from/file\"\n")
	t.Setenv("EMERGO_ARCH", "riscv")
	t.Setenv("EMERGO_SERVER_ADDR", ":9000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("repo", "/flag/default", "")
	flags.String("arch", "", "")
	flags.String("policy", "first", "")
	if err := flags.Parse([]string{"--repo", "/from/flag"}); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := Load(context.Background(), LoadOptions{Dir: dir, Flags: flags})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"flag beats file", cfg.Repo, "/from/flag"},
		{"env beats file", cfg.Arch, "riscv"},
		{"unset flag keeps file", cfg.Policy, "newest"},
		{"env beats default", cfg.Server.Addr, ":9000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestLoadExplicitFile(t *testing.T) {
	dir := writeConfig(t, "arch = \"x86\"\n")
	cfg, path, err := Load(context.Background(), LoadOptions{FilePath: filepath.Join(dir, FileName), Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Arch != "x86" || path == "" {
		t.Errorf("Arch = %q, path = %q", cfg.Arch, path)
	}

	_, _, err = Load(context.Background(), LoadOptions{FilePath: filepath.Join(dir, "missing.toml")})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("missing explicit file: error = %v, want INVALID_CONFIG", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad toml", "repo = \n"},
		{"unknown backend", "[cache]\nbackend = \"memcached\"\n"},
		{"redis without url", "[cache]\nbackend = \"redis\"\n"},
		{"unknown policy", "policy = \"oldest\"\n"},
		{"empty repo", "repo = \"\"\n"},
		{"negative ttl", "[cache]\nttl = \"-1h\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(context.Background(), LoadOptions{Dir: writeConfig(t, tt.body)})
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Load() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	got, err := Dir()
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join("/xdg", AppName) {
		t.Errorf("Dir() = %q", got)
	}
}
